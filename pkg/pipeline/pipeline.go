// Package pipeline wires the five stages into the coordinateBatch
// contract (spec.md §6): Request Coordinator, Weather Analyzer, Smoke
// Predictor, Schedule Optimizer, Alert Dispatcher. Per-request work
// within a stage runs over a bounded worker pool; the pipeline itself
// runs stages sequentially. Worker lifecycle follows the teacher's
// ctx/cancel + worker-slice convention (pkg/scheduler/intelligent_scheduler.go).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/alerts"
	"github.com/khryptorgraphics/burnwise/pkg/coordinator"
	"github.com/khryptorgraphics/burnwise/pkg/optimizer"
	"github.com/khryptorgraphics/burnwise/pkg/smoke"
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/weather"
)

// workerConcurrency bounds per-stage parallel work (spec.md §5:
// "recommended concurrency = min(16, NumCPU)").
func workerConcurrency() int {
	n := runtime.NumCPU()
	if n > 16 {
		return 16
	}
	if n < 1 {
		return 1
	}
	return n
}

// Options configures a single coordinateBatch call.
type Options struct {
	Seed             int64
	MaxOptimizerIter int // 0 uses the optimizer's built-in default
	AlertsEnabled    bool
}

// Pipeline wires the five stage implementations together. Every
// dependency is injected so production code and tests share the same
// orchestration logic behind different capability adapters.
type Pipeline struct {
	coord      *coordinator.Coordinator
	weatherAn  *weather.Analyzer
	predictor  *smoke.Predictor
	optimizerS *optimizer.Optimizer
	dispatcher *alerts.Dispatcher

	recipients    map[int64]types.RecipientPreference
	channelStates map[types.AlertChannel]bool

	logger *slog.Logger
}

// New builds a Pipeline from its five stage components.
func New(
	coord *coordinator.Coordinator,
	weatherAn *weather.Analyzer,
	predictor *smoke.Predictor,
	optimizerS *optimizer.Optimizer,
	dispatcher *alerts.Dispatcher,
	recipients map[int64]types.RecipientPreference,
	channelStates map[types.AlertChannel]bool,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		coord:         coord,
		weatherAn:     weatherAn,
		predictor:     predictor,
		optimizerS:    optimizerS,
		dispatcher:    dispatcher,
		recipients:    recipients,
		channelStates: channelStates,
		logger:        logger,
	}
}

// CoordinateBatch runs all five stages over requests for date, per
// spec.md §6's coordinateBatch(date, requests, options) -> BatchResult
// contract. Per-request failures are collected as warnings rather than
// aborting the batch. No stage produces a Conflict-kind error, so the
// batch is never aborted early and the returned error is always nil.
func (p *Pipeline) CoordinateBatch(ctx context.Context, date string, requests []types.BurnRequest, opts Options) (types.BatchResult, error) {
	now := time.Now().Unix()

	validated, warnings := p.validateStage(ctx, requests, now)

	weatherByRequest, warnings2 := p.weatherStage(ctx, validated)
	warnings = append(warnings, warnings2...)

	predictions, conflicts, warnings3 := p.predictStage(validated, weatherByRequest)
	warnings = append(warnings, warnings3...)

	schedule, metrics := p.optimizeStage(ctx, date, validated, weatherByRequest, predictions, conflicts, opts)

	alertsQueued := 0
	if opts.AlertsEnabled && p.dispatcher != nil {
		alertsQueued = p.dispatchAlerts(ctx, schedule, validated)
	}

	unscheduled := make([]int64, 0, len(schedule.Unscheduled))
	for id := range schedule.Unscheduled {
		unscheduled = append(unscheduled, id)
	}

	return types.BatchResult{
		ScheduleID:   uuid.NewString(),
		Schedule:     schedule,
		Metrics:      metrics,
		Unscheduled:  unscheduled,
		AlertsQueued: alertsQueued,
		Warnings:     warnings,
	}, nil
}

// validateStage runs the Request Coordinator over requests using a
// bounded worker pool, collecting per-request InvalidInput failures as
// warnings instead of aborting the batch.
func (p *Pipeline) validateStage(ctx context.Context, requests []types.BurnRequest, now int64) ([]types.ValidatedRequest, []types.Warning) {
	results := make([]*types.ValidatedRequest, len(requests))
	warningsCh := make(chan types.Warning, len(requests))

	p.runBounded(ctx, len(requests), func(i int) {
		vr, err := p.coord.Validate(ctx, requests[i], now)
		if err != nil {
			warningsCh <- warningFromErr("coordinator", requests[i].ID, err)
			return
		}
		results[i] = &vr
	})
	close(warningsCh)

	validated := make([]types.ValidatedRequest, 0, len(requests))
	for _, r := range results {
		if r != nil {
			validated = append(validated, *r)
		}
	}
	return validated, drainWarnings(warningsCh)
}

// weatherStage fetches weather per validated request's location.
func (p *Pipeline) weatherStage(ctx context.Context, validated []types.ValidatedRequest) (map[int64]types.WeatherSample, []types.Warning) {
	results := make([]types.WeatherSample, len(validated))
	ok := make([]bool, len(validated))
	warningsCh := make(chan types.Warning, len(validated))

	p.runBounded(ctx, len(validated), func(i int) {
		req := validated[i].Request
		analysis, err := p.weatherAn.Analyze(ctx, req.Location, req.BurnDate, req.TimeWindow, req.ID)
		if err != nil {
			warningsCh <- warningFromErr("weather", req.ID, err)
			return
		}
		results[i] = analysis.Current
		ok[i] = true
	})
	close(warningsCh)

	byRequest := make(map[int64]types.WeatherSample, len(validated))
	for i, vr := range validated {
		if ok[i] {
			byRequest[vr.Request.ID] = results[i]
		}
	}
	return byRequest, drainWarnings(warningsCh)
}

// predictStage runs the Smoke Predictor per request with weather, then
// detects pairwise conflicts across the resulting batch.
func (p *Pipeline) predictStage(validated []types.ValidatedRequest, weatherByRequest map[int64]types.WeatherSample) (map[int64]types.Prediction, map[int64][]types.Conflict, []types.Warning) {
	predictions := make(map[int64]types.Prediction, len(validated))
	var warnings []types.Warning
	var requests []types.BurnRequest

	for _, vr := range validated {
		req := vr.Request
		sample, ok := weatherByRequest[req.ID]
		if !ok {
			warnings = append(warnings, types.Warning{RequestID: req.ID, Stage: "weather", Message: "no weather sample available, excluded from prediction"})
			continue
		}
		pred, err := p.predictor.Predict(req, sample)
		if err != nil {
			warnings = append(warnings, warningFromErr("smoke", req.ID, err))
			continue
		}
		predictions[req.ID] = pred
		requests = append(requests, req)
	}

	conflicts := smoke.BatchDetectConflicts(requests, predictions)
	for id, cs := range conflicts {
		if pred, ok := predictions[id]; ok {
			pred.Conflicts = cs
			predictions[id] = pred
		}
	}

	return predictions, conflicts, warnings
}

// optimizeStage builds optimizer.Input per predicted request, passes
// detected conflicts to the search as pairwise severities, and runs
// the annealing search.
func (p *Pipeline) optimizeStage(ctx context.Context, date string, validated []types.ValidatedRequest, weatherByRequest map[int64]types.WeatherSample, predictions map[int64]types.Prediction, conflicts map[int64][]types.Conflict, opts Options) (types.Schedule, types.OptimizationMetrics) {
	var inputs []optimizer.Input
	severity := make(map[[2]int64]float64)
	outsideWindow := make(map[int64]bool)

	for _, vr := range validated {
		req := vr.Request
		pred, hasPred := predictions[req.ID]
		if !hasPred {
			continue
		}

		startSlot, endSlot, inWindow := timeWindowToSlots(req.TimeWindow)
		if !inWindow {
			outsideWindow[req.ID] = true
			continue
		}

		suitability := 0.5
		if sample, ok := weatherByRequest[req.ID]; ok {
			suitability = weather.Suitability(sample)
		}

		durationSlots := int(pred.BurnDurationHours * 2) // 30-min slots
		if durationSlots < 1 {
			durationSlots = 1
		}

		inputs = append(inputs, optimizer.Input{
			RequestID:       req.ID,
			PriorityScore:   vr.PriorityScore,
			DurationSlots:   durationSlots,
			WindowStartSlot: startSlot,
			WindowEndSlot:   endSlot,
			Suitability:     suitability,
		})
	}

	for id, cs := range conflicts {
		for _, c := range cs {
			if c.Type != types.ConflictSpatial {
				continue
			}
			key := [2]int64{id, c.OtherBurnRequestID}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			severity[key] = types.SeverityWeight(c.Severity)
		}
	}

	p.optimizerS.MaxIterations = opts.MaxOptimizerIter
	result := p.optimizerS.Optimize(ctx, date, inputs, severity, opts.Seed)
	if result.Schedule.Unscheduled == nil {
		result.Schedule.Unscheduled = make(map[int64]string)
	}
	for id := range outsideWindow {
		result.Schedule.Unscheduled[id] = "outside operating window"
	}

	return result.Schedule, result.Metrics
}

// operatingWindowStart/End are the optimizer's fixed slot-grid bounds
// in minutes from midnight (spec.md §4.4: 06:00-20:00 inclusive).
const (
	operatingWindowStartMin = 6 * 60
	operatingWindowEndMin   = 20 * 60
)

// timeWindowToSlots converts a request's [Start,End) time-of-day
// window into slot indices on the 06:00-20:00 grid. inWindow is false
// if the request's window falls entirely outside operating hours.
func timeWindowToSlots(w types.TimeWindow) (startSlot, endSlot int, inWindow bool) {
	startMin := int(w.Start.Minutes()) - operatingWindowStartMin
	endMin := int(w.End.Minutes()) - operatingWindowStartMin
	if endMin <= 0 || startMin >= operatingWindowEndMin-operatingWindowStartMin {
		return 0, 0, false
	}
	if startMin < 0 {
		startMin = 0
	}
	maxSlot := types.SlotsPerDay
	startSlot = startMin / types.SlotMinutes
	endSlot = (endMin + types.SlotMinutes - 1) / types.SlotMinutes
	if endSlot > maxSlot {
		endSlot = maxSlot
	}
	if startSlot >= endSlot {
		return 0, 0, false
	}
	return startSlot, endSlot, true
}

// dispatchAlerts builds one "scheduled" alert per assignment and sends
// it through the Alert Dispatcher.
func (p *Pipeline) dispatchAlerts(ctx context.Context, schedule types.Schedule, validated []types.ValidatedRequest) int {
	var batch []types.Alert
	for id := range schedule.Assignments {
		batch = append(batch, types.Alert{
			ID:          uuid.NewString(),
			DedupKey:    fmt.Sprintf("scheduled-%s-%d", schedule.Date, id),
			RecipientID: requestOwner(validated, id),
			Priority:    types.PriorityMedium,
			Payload:     "scheduled",
			CreatedAt:   time.Now(),
		})
	}
	if len(batch) == 0 {
		return 0
	}
	report := p.dispatcher.Dispatch(ctx, batch, p.recipients, p.channelStates)
	return len(report.Delivered) + len(report.Deferred) + len(report.Dropped) + len(report.Failed)
}

func requestOwner(validated []types.ValidatedRequest, requestID int64) int64 {
	for _, vr := range validated {
		if vr.Request.ID == requestID {
			return vr.Request.FarmID
		}
	}
	return 0
}

// runBounded runs fn(i) for i in [0,n) over a worker pool sized by
// workerConcurrency, blocking until every call completes or ctx is
// cancelled.
func (p *Pipeline) runBounded(ctx context.Context, n int, fn func(i int)) {
	if n == 0 {
		return
	}
	sem := make(chan struct{}, workerConcurrency())
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

func warningFromErr(stage string, requestID int64, err error) types.Warning {
	msg := err.Error()
	if be, ok := err.(*cerrors.BatchError); ok {
		msg = be.Message
	}
	return types.Warning{RequestID: requestID, Stage: stage, Message: msg}
}

func drainWarnings(ch <-chan types.Warning) []types.Warning {
	var out []types.Warning
	for w := range ch {
		out = append(out, w)
	}
	return out
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/khryptorgraphics/burnwise/pkg/alerts"
	"github.com/khryptorgraphics/burnwise/pkg/coordinator"
	"github.com/khryptorgraphics/burnwise/pkg/optimizer"
	"github.com/khryptorgraphics/burnwise/pkg/pipeline"
	"github.com/khryptorgraphics/burnwise/pkg/smoke"
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/weather"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// consoleAlertTransport logs alert deliveries instead of reaching a
// real SMS/voice/email/push gateway, which is out of scope for the
// CLI surface (spec.md §6 lists HTTP/API surface as a non-goal).
type consoleAlertTransport struct{ logger *slog.Logger }

func (c *consoleAlertTransport) Send(ctx context.Context, alert types.Alert) error {
	c.logger.Info("alert dispatched", "channel", alert.Channel, "recipient_id", alert.RecipientID, "payload", alert.Payload)
	return nil
}

// buildPipeline wires the five stages with zero-config defaults
// suitable for operator use without a live Postgres/Redis/weather
// account, echoing the teacher's quickstart philosophy of "running in
// 60 seconds with zero configuration."
func buildPipeline(logger *slog.Logger) *pipeline.Pipeline {
	coord := coordinator.New(logger, nil)
	provider := weather.NewOpenMeteoProvider(10 * time.Second)
	weatherAn := weather.New(provider, 10*time.Minute, 5, 60*time.Second, logger)
	predictor := smoke.New(logger)
	opt := optimizer.New(logger)
	transport := &consoleAlertTransport{logger: logger}
	dispatcher := alerts.New(transport, logger)

	recipients := map[int64]types.RecipientPreference{}
	channelStates := map[types.AlertChannel]bool{
		types.ChannelSMS:   true,
		types.ChannelVoice: true,
		types.ChannelEmail: true,
		types.ChannelPush:  true,
	}

	return pipeline.New(coord, weatherAn, predictor, opt, dispatcher, recipients, channelStates, logger)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// cliPoint is the human-facing lat/lon pair used in request files.
type cliPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// cliTimeWindow accepts "HH:MM" clock times rather than raw
// time.Duration nanosecond counts, since operators hand-author these
// files.
type cliTimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w cliTimeWindow) toTimeWindow() (types.TimeWindow, error) {
	start, err := parseClock(w.Start)
	if err != nil {
		return types.TimeWindow{}, fmt.Errorf("time_window.start: %w", err)
	}
	end, err := parseClock(w.End)
	if err != nil {
		return types.TimeWindow{}, fmt.Errorf("time_window.end: %w", err)
	}
	return types.TimeWindow{Start: start, End: end}, nil
}

func parseClock(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", hhmm)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// cliBurnRequest is the on-disk shape of one request in a --requests
// file. BurnDate is taken from the run/optimize command's --date flag
// uniformly, not repeated per request.
type cliBurnRequest struct {
	ID            int64         `json:"id"`
	FarmID        int64         `json:"farm_id"`
	FieldBoundary []cliPoint    `json:"field_boundary"`
	Acres         float64       `json:"acres"`
	CropType      string        `json:"crop_type"`
	TimeWindow    cliTimeWindow `json:"time_window"`
	PriorityHint  *int          `json:"priority_hint,omitempty"`
}

func (r cliBurnRequest) toBurnRequest(date time.Time) (types.BurnRequest, error) {
	window, err := r.TimeWindow.toTimeWindow()
	if err != nil {
		return types.BurnRequest{}, fmt.Errorf("request %d: %w", r.ID, err)
	}

	points := make([]types.Point, 0, len(r.FieldBoundary))
	for _, p := range r.FieldBoundary {
		points = append(points, types.Point{Lat: p.Lat, Lon: p.Lon})
	}

	return types.BurnRequest{
		ID:            r.ID,
		FarmID:        r.FarmID,
		FieldBoundary: types.Polygon{Points: points},
		Acres:         r.Acres,
		CropType:      types.CropType(strings.ToLower(r.CropType)),
		BurnDate:      date,
		TimeWindow:    window,
		PriorityHint:  r.PriorityHint,
	}, nil
}

// loadRequests reads a JSON array of cliBurnRequest from path and
// converts each to a types.BurnRequest dated to date.
func loadRequests(path string, date time.Time) ([]types.BurnRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requests file: %w", err)
	}

	var raw []cliBurnRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse requests file: %w", err)
	}

	requests := make([]types.BurnRequest, 0, len(raw))
	for _, r := range raw {
		br, err := r.toBurnRequest(date)
		if err != nil {
			return nil, err
		}
		requests = append(requests, br)
	}
	return requests, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

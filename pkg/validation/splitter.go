package validation

import (
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// DefaultWindowSplitter implements the WindowSplitter interface
type DefaultWindowSplitter struct{}

// NewDefaultWindowSplitter creates a new window splitter
func NewDefaultWindowSplitter() *DefaultWindowSplitter {
	return &DefaultWindowSplitter{}
}

// CreateRollingWindows starts an attempt every StepDays and gives each
// WindowDays of bars. Windows the history cannot cover to their last day,
// or with fewer than MinBars bars, are dropped.
func (s *DefaultWindowSplitter) CreateRollingWindows(data []types.OHLCV, cfg RollingConfig) []ChallengeWindow {
	var windows []ChallengeWindow
	if len(data) == 0 || cfg.WindowDays < 1 || cfg.StepDays < 1 {
		return windows
	}

	windowDur := time.Duration(cfg.WindowDays) * 24 * time.Hour
	stepDur := time.Duration(cfg.StepDays) * 24 * time.Hour
	last := data[len(data)-1].Timestamp

	start := 0
	for start < len(data) {
		startTs := data[start].Timestamp
		endTs := startTs.Add(windowDur)
		if last.Before(endTs.Add(-24 * time.Hour)) {
			break
		}

		end := start
		for end < len(data) && data[end].Timestamp.Before(endTs) {
			end++
		}
		if end-start >= cfg.MinBars {
			windows = append(windows, ChallengeWindow{
				Index: len(windows),
				Start: startTs,
				End:   data[end-1].Timestamp,
				Bars:  data[start:end],
			})
		}

		nextTs := startTs.Add(stepDur)
		next := start
		for next < len(data) && data[next].Timestamp.Before(nextTs) {
			next++
		}
		start = next
	}
	return windows
}

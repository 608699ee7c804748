package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// signal columns and their accepted header aliases
var signalColumns = map[string][]string{
	"time":        {"time", "timestamp", "date"},
	"strategy":    {"strategy", "source"},
	"direction":   {"direction", "side"},
	"entry":       {"entry", "entry_price", "price"},
	"stop_loss":   {"stop_loss", "sl", "stop"},
	"take_profit": {"take_profit", "tp", "target"},
}

var requiredSignalColumns = []string{"time", "strategy", "direction", "stop_loss"}

// CSVSignalProvider reads signals from a CSV file whose columns are located by
// header name. Unlike bars, a malformed signal row fails the whole load.
type CSVSignalProvider struct {
	dateFormat string
}

// NewCSVSignalProvider creates a signal reader; dateFormat may be empty
func NewCSVSignalProvider(dateFormat string) *CSVSignalProvider {
	return &CSVSignalProvider{dateFormat: dateFormat}
}

// LoadSignals loads signals sorted by time, keeping file order within a timestamp
func (p *CSVSignalProvider) LoadSignals(source string) ([]types.Signal, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, engineerrors.NewDataError("data", "load_signals", err).WithContext("path", source)
	}
	defer file.Close()

	signals, err := p.read(file)
	if err != nil {
		return nil, engineerrors.NewDataError("data", "load_signals", err).WithContext("path", source)
	}
	return signals, nil
}

func (p *CSVSignalProvider) read(r io.Reader) ([]types.Signal, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := indexColumns(header)
	for _, name := range requiredSignalColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var signals []types.Signal
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		sig, err := p.parseSignal(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool { return signals[i].Time.Before(signals[j].Time) })
	return signals, nil
}

func (p *CSVSignalProvider) parseSignal(record []string, cols map[string]int) (types.Signal, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	number := func(name string) (float64, error) {
		v := field(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, v)
		}
		return f, nil
	}

	ts, err := ParseTimestamp(field("time"), p.dateFormat)
	if err != nil {
		return types.Signal{}, err
	}
	strategy := field("strategy")
	if strategy == "" {
		return types.Signal{}, fmt.Errorf("empty strategy")
	}
	direction, err := types.ParseDirection(field("direction"))
	if err != nil {
		return types.Signal{}, err
	}

	sig := types.Signal{Time: ts, Strategy: strategy, Direction: direction}
	if sig.Entry, err = number("entry"); err != nil {
		return types.Signal{}, err
	}
	if sig.StopLoss, err = number("stop_loss"); err != nil {
		return types.Signal{}, err
	}
	if sig.TakeProfit, err = number("take_profit"); err != nil {
		return types.Signal{}, err
	}
	if !finite(sig.Entry, sig.StopLoss, sig.TakeProfit) {
		return types.Signal{}, fmt.Errorf("entry, stop_loss and take_profit must be finite")
	}
	if sig.StopLoss <= 0 {
		return types.Signal{}, fmt.Errorf("stop_loss is required")
	}
	return sig, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for name, aliases := range signalColumns {
			for _, alias := range aliases {
				if h == alias {
					if _, dup := cols[name]; !dup {
						cols[name] = i
					}
				}
			}
		}
	}
	return cols
}

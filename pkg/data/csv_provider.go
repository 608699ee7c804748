package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// CSVProvider implements DataProvider for CSV files. Malformed rows are
// skipped with a warning; the result is sorted and de-duplicated.
type CSVProvider struct {
	format CSVColumnMapping
	log    *logger.Logger
	filter *DefaultDataFilter
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider(log *logger.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat, log)
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping, log *logger.Logger) *CSVProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &CSVProvider{format: format, log: log, filter: NewDefaultDataFilter()}
}

func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads bars from a CSV file with a header row
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, engineerrors.NewDataError("data", "load_bars", err).WithContext("path", source)
	}
	defer file.Close()

	data, err := p.read(file)
	if err != nil {
		return nil, engineerrors.NewDataError("data", "load_bars", err).WithContext("path", source)
	}
	if len(data) == 0 {
		return nil, engineerrors.NewDataError("data", "load_bars", fmt.Errorf("no valid bars")).WithContext("path", source)
	}
	p.log.Info("loaded %d bars from %s", len(data), source)
	return data, nil
}

func (p *CSVProvider) read(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var data []types.OHLCV
	lineNum := 1
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		bar, err := parseBar(record, format)
		if err != nil {
			skipped++
			p.log.Warning("line %d skipped: %v", lineNum, err)
			continue
		}
		data = append(data, bar)
	}
	if skipped > 0 {
		p.log.Warning("%d malformed rows skipped", skipped)
	}

	data = p.filter.SortByTimestamp(data)
	return p.filter.RemoveDuplicates(data), nil
}

func parseBar(record []string, format CSVColumnMapping) (types.OHLCV, error) {
	if len(record) < format.MinColumns {
		return types.OHLCV{}, fmt.Errorf("insufficient columns (expected %d, got %d)", format.MinColumns, len(record))
	}

	timestamp, err := ParseTimestamp(record[format.TimestampCol], format.DateFormat)
	if err != nil {
		return types.OHLCV{}, err
	}

	prices := make([]float64, 4)
	for i, col := range []int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid price %q: %w", record[col], err)
		}
		prices[i] = v
	}
	bar := types.OHLCV{Timestamp: timestamp, Open: prices[0], High: prices[1], Low: prices[2], Close: prices[3]}

	if format.VolumeCol >= 0 && format.VolumeCol < len(record) && strings.TrimSpace(record[format.VolumeCol]) != "" {
		volume, err := strconv.ParseFloat(strings.TrimSpace(record[format.VolumeCol]), 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid volume %q: %w", record[format.VolumeCol], err)
		}
		bar.Volume = volume
	}

	if err := validateBar(bar); err != nil {
		return types.OHLCV{}, err
	}
	return bar, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateBar(b types.OHLCV) error {
	if !finite(b.Open, b.High, b.Low, b.Close, b.Volume) {
		return fmt.Errorf("prices and volume must be finite")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if b.High < b.Low {
		return fmt.Errorf("high (%.5f) cannot be less than low (%.5f)", b.High, b.Low)
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("high (%.5f) must be >= open (%.5f) and close (%.5f)", b.High, b.Open, b.Close)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("low (%.5f) must be <= open (%.5f) and close (%.5f)", b.Low, b.Open, b.Close)
	}
	return nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return engineerrors.NewValidationError("data", "validate", "no data provided")
	}
	for i, bar := range data {
		if err := validateBar(bar); err != nil {
			return engineerrors.NewValidationError("data", "validate", fmt.Sprintf("bar %d: %v", i, err))
		}
	}
	if err := p.filter.ValidateTimeSequence(data); err != nil {
		return engineerrors.NewValidationError("data", "validate", err.Error())
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses value with layout first, then common layouts, then
// unix seconds or milliseconds. Zone-less values are read as UTC.
func ParseTimestamp(value, layout string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if layout != "" {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, l := range timestampLayouts {
		if ts, err := time.Parse(l, value); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		// values past 1e11 are milliseconds
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

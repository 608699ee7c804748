package data

import (
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// DataProvider loads historical bars
type DataProvider interface {
	// LoadData loads bars from the source in chronological order
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	GetName() string
}

// SignalProvider loads the entry signals a replay forwards to the arbiter
type SignalProvider interface {
	LoadSignals(source string) ([]types.Signal, error)
}

// DataFilter narrows and orders bar series
type DataFilter interface {
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// ValidateTimeSequence ensures data is strictly increasing in time
	ValidateTimeSequence(data []types.OHLCV) error
}

// CSVColumnMapping defines the column positions for a bar CSV format
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int // negative when the file has no volume
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat is timestamp,open,high,low,close[,volume]
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   5,
	DateFormat:   "2006-01-02 15:04:05",
}

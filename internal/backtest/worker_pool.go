package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// Setup is one complete challenge configuration to replay
type Setup struct {
	Label     string
	Risk      risk.Config
	Portfolio portfolio.Config
	Options   Options
}

// NewEngine builds a fresh risk manager, portfolio and engine for the setup
func (s Setup) NewEngine(signals SignalSource, log *logger.Logger, riskObs risk.Observer, tradeObs portfolio.Observer) (*BacktestEngine, error) {
	rmOpts := []risk.Option{risk.WithLogger(log)}
	if riskObs != nil {
		rmOpts = append(rmOpts, risk.WithObserver(riskObs))
	}
	rm, err := risk.NewManager(s.Risk, rmOpts...)
	if err != nil {
		return nil, err
	}

	pOpts := []portfolio.Option{portfolio.WithLogger(log)}
	if tradeObs != nil {
		pOpts = append(pOpts, portfolio.WithObserver(tradeObs))
	}
	p, err := portfolio.NewPortfolio(s.Portfolio, rm, pOpts...)
	if err != nil {
		return nil, err
	}
	return NewBacktestEngine(p, signals, s.Options, log), nil
}

// WorkerPool replays setups in parallel. Every job owns its own risk manager
// and portfolio, the bars and signals are shared read-only.
type WorkerPool struct {
	workerCount int
	jobQueue    chan SweepJob
	resultQueue chan SweepResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// SweepJob is a single replay task
type SweepJob struct {
	ID      string
	Setup   Setup
	Data    []types.OHLCV
	Signals SignalSource
}

// SweepResult is the outcome of a SweepJob
type SweepResult struct {
	ID       string
	Setup    Setup
	Results  *BacktestResults
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a pool; workerCount <= 0 uses one worker per CPU
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan SweepJob, jobBufferSize),
		resultQueue: make(chan SweepResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop closes the job queue and waits for workers to drain
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob queues a job, failing once the pool context is cancelled
func (wp *WorkerPool) SubmitJob(job SweepJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel of completed jobs
func (wp *WorkerPool) Results() <-chan SweepResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := processJob(job)
			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

func processJob(job SweepJob) SweepResult {
	start := time.Now()
	result := SweepResult{ID: job.ID, Setup: job.Setup}

	engine, err := job.Setup.NewEngine(job.Signals, logger.Nop(), nil, nil)
	if err != nil {
		result.Error = fmt.Errorf("setup %s: %w", job.Setup.Label, err)
		return result
	}
	result.Results = engine.Run(job.Data)
	result.Duration = time.Since(start)
	return result
}

// Sweep replays every setup over the same bars and signals and returns the
// results in setup order
func Sweep(ctx context.Context, setups []Setup, data []types.OHLCV, signals SignalSource, workers int) ([]SweepResult, error) {
	wp := NewWorkerPool(ctx, workers, len(setups))
	wp.Start()

	submitted := 0
	var submitErr error
	for i, s := range setups {
		job := SweepJob{ID: jobID(s, i), Setup: s, Data: data, Signals: signals}
		if submitErr = wp.SubmitJob(job); submitErr != nil {
			break
		}
		submitted++
	}

	results := make([]SweepResult, 0, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case r := <-wp.Results():
			results = append(results, r)
		case <-ctx.Done():
			wp.Stop()
			return results, ctx.Err()
		}
	}
	wp.Stop()

	order := make(map[string]int, len(setups))
	for i, s := range setups {
		order[jobID(s, i)] = i
	}
	sort.Slice(results, func(i, j int) bool { return order[results[i].ID] < order[results[j].ID] })
	return results, submitErr
}

func jobID(s Setup, index int) string {
	return fmt.Sprintf("%03d_%s", index, s.Label)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"labreport/domain/core"
	"labreport/domain/dataset"
	"labreport/domain/experiment"
	"labreport/internal"
)

// BatchOrchestrator runs the ExperimentAnalyzer over every config of a batch.
// A batch either fully succeeds or fails with the first failing experiment.
type BatchOrchestrator struct {
	analyzer *ExperimentAnalyzer
	workers  int64
	logger   *internal.Logger
}

// BatchRequest is one batch of experiments drawn from a set of tables
type BatchRequest struct {
	Title   string
	Tables  *dataset.TableSet
	Configs []experiment.Config
	Manual  *experiment.ManualInfo
}

// NewBatchOrchestrator creates an orchestrator; workers <= 1 runs sequentially
func NewBatchOrchestrator(analyzer *ExperimentAnalyzer, workers int) *BatchOrchestrator {
	if analyzer == nil {
		analyzer = NewExperimentAnalyzer(nil, nil, DefaultAnalyzerOptions())
	}
	if workers < 1 {
		workers = 1
	}
	return &BatchOrchestrator{
		analyzer: analyzer,
		workers:  int64(workers),
		logger:   internal.DefaultLogger.WithComponent("BatchOrchestrator"),
	}
}

// Run analyzes every config and returns results in config order
func (o *BatchOrchestrator) Run(ctx context.Context, req BatchRequest) (*experiment.BatchResult, error) {
	if err := experiment.ValidateConfigs(req.Configs); err != nil {
		return nil, err
	}

	start := time.Now()
	batchID := core.NewBatchID().String()
	o.logger.Info("batch %s: analyzing %d experiments (%d tables, workers=%d)", batchID, len(req.Configs), req.Tables.Len(), o.workers)

	var (
		results []experiment.Result
		err     error
	)
	if o.workers == 1 || len(req.Configs) == 1 {
		results, err = o.runSequential(req)
	} else {
		results, err = o.runParallel(ctx, req)
	}
	if err != nil {
		o.logger.Warn("batch %s failed: %v", batchID, err)
		return nil, err
	}

	o.logger.Info("batch %s completed in %v", batchID, time.Since(start))
	return &experiment.BatchResult{
		BatchID:          batchID,
		ReportTitle:      req.Title,
		Experiments:      results,
		TotalExperiments: len(results),
		Manual:           req.Manual,
		AnalyzedAt:       core.Now(),
	}, nil
}

func (o *BatchOrchestrator) runSequential(req BatchRequest) ([]experiment.Result, error) {
	results := make([]experiment.Result, len(req.Configs))
	for i, cfg := range req.Configs {
		result, err := o.runOne(req.Tables, i, cfg)
		if err != nil {
			return nil, err
		}
		results[i] = *result
	}
	return results, nil
}

// runParallel fans out under a semaphore. Results and errors are stored by
// config index, and the lowest failing index wins so the outcome matches
// sequential processing.
func (o *BatchOrchestrator) runParallel(ctx context.Context, req BatchRequest) ([]experiment.Result, error) {
	sem := semaphore.NewWeighted(o.workers)
	results := make([]experiment.Result, len(req.Configs))
	errs := make([]error, len(req.Configs))

	var wg sync.WaitGroup
	for i, cfg := range req.Configs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("batch cancelled before experiment %d: %w", i+1, err)
		}
		wg.Add(1)
		go func(i int, cfg experiment.Config) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := o.runOne(req.Tables, i, cfg)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = *result
		}(i, cfg)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// runOne resolves the table and analyzes a single config at position index
func (o *BatchOrchestrator) runOne(tables *dataset.TableSet, index int, cfg experiment.Config) (*experiment.Result, error) {
	table, ok := tables.Get(cfg.TableName)
	if !ok {
		return nil, tagExperiment(core.NewTableNotFoundError(cfg.TableName, tables.Names()), index, cfg.Name)
	}

	analysis, err := o.analyzer.Analyze(table, cfg.XColumn, cfg.YColumn, cfg.TheoreticalSlope)
	if err != nil {
		return nil, tagExperiment(err, index, cfg.Name)
	}

	o.logger.Debug("experiment %d (%s): slope=%v r2=%v n=%d", index+1, cfg.Name,
		analysis.Statistics.Slope, analysis.Statistics.RSquared, analysis.Statistics.DataPoints)

	return &experiment.Result{
		Name:       cfg.Name,
		TableName:  cfg.TableName,
		Statistics: analysis.Statistics,
		Summary:    analysis.Summary,
		Display:    analysis.Display,
		Series:     analysis.Series,
	}, nil
}

// tagExperiment records the 1-based batch position on analysis errors
func tagExperiment(err error, index int, name string) error {
	var ae *core.AnalysisError
	if errors.As(err, &ae) {
		return ae.WithExperiment(index+1, name)
	}
	return fmt.Errorf("experiment %d (%s): %w", index+1, name, err)
}

package worker

import (
	"context"
	"sort"

	"github.com/hallusearch/hallusearch/internal/model"
)

// Labeler labels a single input record
type Labeler interface {
	LabelRecord(ctx context.Context, rec model.InputRecord) (model.OutputRecord, error)
}

// RecordJob labels one record, remembering its position in the batch so
// output order can match input order regardless of completion order
type RecordJob struct {
	Index   int
	Record  model.InputRecord
	Labeler Labeler
	Ctx     context.Context
}

// Execute runs the labeling job
func (j *RecordJob) Execute(poolCtx context.Context) Result {
	ctx := j.Ctx
	if ctx == nil {
		ctx = poolCtx
	}

	out, err := j.Labeler.LabelRecord(ctx, j.Record)
	return &RecordResult{
		Index:  j.Index,
		Output: out,
		Err:    err,
	}
}

// RecordResult is the outcome of labeling one record
type RecordResult struct {
	Index  int
	Output model.OutputRecord
	Err    error
}

// GetError returns the labeling error, if any
func (r *RecordResult) GetError() error {
	return r.Err
}

// BatchProcessor labels batches of records concurrently
type BatchProcessor struct {
	labeler     Labeler
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(labeler Labeler, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		labeler:     labeler,
		concurrency: concurrency,
	}
}

// Process labels all records concurrently and returns results in input
// order
func (b *BatchProcessor) Process(ctx context.Context, records []model.InputRecord) []*RecordResult {
	if len(records) == 0 {
		return []*RecordResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i, rec := range records {
		pool.Submit(&RecordJob{
			Index:   i,
			Record:  rec,
			Labeler: b.labeler,
			Ctx:     ctx,
		})
	}

	results := pool.Wait()

	recordResults := make([]*RecordResult, 0, len(results))
	for _, result := range results {
		recordResults = append(recordResults, result.(*RecordResult))
	}
	sort.Slice(recordResults, func(i, j int) bool {
		return recordResults[i].Index < recordResults[j].Index
	})

	return recordResults
}

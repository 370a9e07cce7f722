package testutil

import (
	"fmt"

	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/domain/model"
)

// Records builds n synthetic CSV-style records with unique emails, suitable
// for driving the import pipeline in tests.
func Records(n int) []model.Record {
	records := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, model.Record{
			"email":      fmt.Sprintf("subscriber-%04d@example.com", i),
			"first_name": fmt.Sprintf("Sub %d", i),
		})
	}
	return records
}

// JobParamsBuilder provides a fluent interface for building CreateJobParams for tests.
type JobParamsBuilder struct {
	params core.CreateJobParams
}

// NewJobParams creates a JobParamsBuilder with sensible defaults: a small
// single-chunk batch on the "newsletter" list.
func NewJobParams() *JobParamsBuilder {
	records := Records(10)
	return &JobParamsBuilder{
		params: core.CreateJobParams{
			ListName:         "newsletter",
			TotalRecords:     int64(len(records)),
			ChunksTotal:      1,
			ProcessingMethod: model.MethodInline,
			Records:          records,
			FieldMapping:     model.FieldMapping{"email": "email", "first_name": "first_name"},
		},
	}
}

// WithList sets the list name.
func (b *JobParamsBuilder) WithList(listName string) *JobParamsBuilder {
	b.params.ListName = listName
	return b
}

// WithRecords sets the record batch and derives total_records from it.
func (b *JobParamsBuilder) WithRecords(records []model.Record) *JobParamsBuilder {
	b.params.Records = records
	b.params.TotalRecords = int64(len(records))
	return b
}

// WithChunks sets the chunk count and marks the job as background work.
func (b *JobParamsBuilder) WithChunks(chunks int) *JobParamsBuilder {
	b.params.ChunksTotal = chunks
	if chunks > 1 {
		b.params.ProcessingMethod = model.MethodChunkedParallel
	} else {
		b.params.ProcessingMethod = model.MethodChunked
	}
	return b
}

// WithMethod sets the processing method explicitly.
func (b *JobParamsBuilder) WithMethod(method model.ProcessingMethod) *JobParamsBuilder {
	b.params.ProcessingMethod = method
	return b
}

// WithMapping sets the field mapping.
func (b *JobParamsBuilder) WithMapping(mapping model.FieldMapping) *JobParamsBuilder {
	b.params.FieldMapping = mapping
	return b
}

// Build returns the constructed CreateJobParams.
func (b *JobParamsBuilder) Build() core.CreateJobParams {
	return b.params
}

package batch

import (
	"sync/atomic"

	"github.com/aliskhannn/downscaler/internal/model"
)

// Counters tracks batch outcomes. Workers update it concurrently.
type Counters struct {
	processed atomic.Int64
	skipped   atomic.Int64
	converted atomic.Int64
	failed    atomic.Int64
}

// Record counts one finished entry.
func (c *Counters) Record(o model.Outcome) {
	switch o {
	case model.OutcomeProcessed:
		c.processed.Add(1)
	case model.OutcomeConverted:
		c.converted.Add(1)
		c.skipped.Add(1)
	case model.OutcomeFailed:
		c.failed.Add(1)
		c.skipped.Add(1)
	default:
		c.skipped.Add(1)
	}
}

// Summary snapshots the counters. total is the number of directory entries.
func (c *Counters) Summary(total int) model.Summary {
	return model.Summary{
		Total:     total,
		Processed: int(c.processed.Load()),
		Skipped:   int(c.skipped.Load()),
		Converted: int(c.converted.Load()),
		Failed:    int(c.failed.Load()),
	}
}

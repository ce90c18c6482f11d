// Package jobstore keeps converted outputs per job for a fixed retention
// window.
package jobstore

import (
	"context"
	"time"

	"github.com/trunov/imageconv/internal/entities"
)

// DefaultTTL is the retention window of a job.
const DefaultTTL = 10 * time.Minute

// Store owns every Job. Jobs are immutable once Put returns; a job is
// visible either with all its outputs or not at all. Lookups of unknown or
// expired ids fail with entities.ErrNotFound.
type Store interface {
	Put(ctx context.Context, outputs []entities.ConvertedOutput) (entities.Job, error)
	Get(ctx context.Context, jobID string) (entities.Job, error)
	GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error)
	Close() error
}

package use_case

import (
	"context"
	"fmt"
	"log"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trunov/imageconv/internal/entities"
	"github.com/trunov/imageconv/internal/format"
	"github.com/trunov/imageconv/internal/metrics"
)

type Transformer interface {
	Transform(ctx context.Context, name string, data []byte, opts entities.ConversionOptions) (entities.ConvertedOutput, error)
}

type JobStore interface {
	Put(ctx context.Context, outputs []entities.ConvertedOutput) (entities.Job, error)
	Get(ctx context.Context, jobID string) (entities.Job, error)
	GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error)
}

type useCase struct {
	transformer Transformer
	store       JobStore
	metrics     metrics.Metrics
	workers     int
}

// New wires the conversion pipeline. workers bounds how many files of one
// batch are transformed at the same time; 1 keeps a batch sequential.
func New(transformer Transformer, store JobStore, m metrics.Metrics, workers int) *useCase {
	if m == nil {
		m = metrics.Noop{}
	}
	if workers < 1 {
		workers = 1
	}
	return &useCase{
		transformer: transformer,
		store:       store,
		metrics:     m,
		workers:     workers,
	}
}

// ConvertBatch transforms every upload with the same options and stores the
// results as one job. Outputs keep the input order. The job only exists if
// every file converted.
func (c *useCase) ConvertBatch(ctx context.Context, uploads []entities.Upload, opts entities.ConversionOptions) (entities.Job, error) {
	if len(uploads) == 0 {
		c.metrics.ObserveBatch("rejected", 0, 0)
		return entities.Job{}, fmt.Errorf("%w: no files uploaded", entities.ErrValidation)
	}

	start := time.Now()
	outputs := make([]entities.ConvertedOutput, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, u := range uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := c.transformer.Transform(gctx, u.Name, u.Data, opts)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.metrics.ObserveBatch("failed", len(uploads), time.Since(start).Seconds())
		log.Printf("[convert] batch of %d files failed: %v", len(uploads), err)
		return entities.Job{}, err
	}

	uniqueNames(outputs)

	job, err := c.store.Put(ctx, outputs)
	if err != nil {
		c.metrics.ObserveBatch("failed", len(uploads), time.Since(start).Seconds())
		return entities.Job{}, fmt.Errorf("store job: %w", err)
	}

	f, _ := format.Normalize(opts.Format)
	for range outputs {
		c.metrics.IncConverted(string(f))
	}
	c.metrics.ObserveBatch("ok", len(uploads), time.Since(start).Seconds())
	log.Printf("[convert] job %s: %d files -> %s in %v", job.ID, len(outputs), f, time.Since(start).Round(time.Millisecond))

	return job, nil
}

func (c *useCase) GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error) {
	return c.store.GetFile(ctx, jobID, name)
}

// GetJob returns a job that has at least one output.
func (c *useCase) GetJob(ctx context.Context, jobID string) (entities.Job, error) {
	job, err := c.store.Get(ctx, jobID)
	if err != nil {
		return job, err
	}
	if len(job.Outputs) == 0 {
		return entities.Job{}, fmt.Errorf("job %s has no outputs: %w", jobID, entities.ErrNotFound)
	}
	return job, nil
}

// uniqueNames suffixes repeated output names with -1, -2, ... in input
// order so that every name resolves to exactly one output.
func uniqueNames(outputs []entities.ConvertedOutput) {
	taken := make(map[string]struct{}, len(outputs))
	for _, o := range outputs {
		taken[o.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(outputs))
	for i := range outputs {
		name := outputs[i].Name
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			continue
		}

		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 1; ; n++ {
			candidate := base + "-" + strconv.Itoa(n) + ext
			if _, used := taken[candidate]; used {
				continue
			}
			outputs[i].Name = candidate
			taken[candidate] = struct{}{}
			seen[candidate] = struct{}{}
			break
		}
	}
}

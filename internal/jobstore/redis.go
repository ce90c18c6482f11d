package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/trunov/imageconv/internal/entities"
	"github.com/trunov/imageconv/internal/redisholder"
)

// RedisStore keeps jobs in Redis: a JSON manifest under <ns>:job:<id> and the
// output bytes in the hash <ns>:job:<id>:data. Both keys are written in one
// MULTI/EXEC with the same TTL, so expiry is handled by Redis.
type RedisStore struct {
	holder    *redisholder.Holder
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

func NewRedisStore(holder *redisholder.Holder, namespace string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		holder:    holder,
		namespace: namespace,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *RedisStore) metaKey(id string) string { return s.namespace + ":job:" + id }
func (s *RedisStore) dataKey(id string) string { return s.namespace + ":job:" + id + ":data" }

func (s *RedisStore) Put(ctx context.Context, outputs []entities.ConvertedOutput) (entities.Job, error) {
	created := s.now()
	job := entities.Job{
		ID:        uuid.New().String(),
		Outputs:   append([]entities.ConvertedOutput(nil), outputs...),
		CreatedAt: created,
		ExpiresAt: created.Add(s.ttl),
	}

	meta, err := json.Marshal(job)
	if err != nil {
		return entities.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	fields := make(map[string]any, len(outputs))
	for _, o := range outputs {
		fields[o.Name] = o.Data
	}

	rc := s.holder.Get()
	_, err = rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, s.dataKey(job.ID), fields)
			pipe.Expire(ctx, s.dataKey(job.ID), s.ttl)
		}
		pipe.Set(ctx, s.metaKey(job.ID), meta, s.ttl)
		return nil
	})
	if err != nil {
		return entities.Job{}, fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return job, nil
}

func (s *RedisStore) manifest(ctx context.Context, jobID string) (entities.Job, error) {
	raw, err := s.holder.Get().Get(ctx, s.metaKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.Job{}, fmt.Errorf("job %s: %w", jobID, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Job{}, fmt.Errorf("load job %s: %w", jobID, err)
	}

	var job entities.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return entities.Job{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return job, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (entities.Job, error) {
	job, err := s.manifest(ctx, jobID)
	if err != nil {
		return job, err
	}
	if len(job.Outputs) == 0 {
		return job, nil
	}

	names := make([]string, len(job.Outputs))
	for i, o := range job.Outputs {
		names[i] = o.Name
	}
	vals, err := s.holder.Get().HMGet(ctx, s.dataKey(jobID), names...).Result()
	if err != nil {
		return entities.Job{}, fmt.Errorf("load job %s data: %w", jobID, err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// manifest outlived its data
			return entities.Job{}, fmt.Errorf("job %s: %w", jobID, entities.ErrNotFound)
		}
		job.Outputs[i].Data = []byte(str)
	}
	return job, nil
}

func (s *RedisStore) GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error) {
	job, err := s.manifest(ctx, jobID)
	if err != nil {
		return entities.ConvertedOutput{}, err
	}
	out, ok := job.File(name)
	if !ok {
		return entities.ConvertedOutput{}, fmt.Errorf("file %s in job %s: %w", name, jobID, entities.ErrNotFound)
	}

	data, err := s.holder.Get().HGet(ctx, s.dataKey(jobID), name).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.ConvertedOutput{}, fmt.Errorf("file %s in job %s: %w", name, jobID, entities.ErrNotFound)
	}
	if err != nil {
		return entities.ConvertedOutput{}, fmt.Errorf("load file %s in job %s: %w", name, jobID, err)
	}
	out.Data = data
	return out, nil
}

// Close is a no-op; the client belongs to the holder.
func (s *RedisStore) Close() error {
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"judgeworker/internal/common/cache"
	"judgeworker/internal/judgment"
	appErr "judgeworker/pkg/errors"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// JobRepository persists jobs in the external TTL key-value store under
// keys of the form {userId}:{jobId}. Every store call retries transport
// errors with bounded exponential backoff before giving up.
type JobRepository struct {
	store cache.Cache
}

// NewJobRepository creates a repository over the given store.
func NewJobRepository(store cache.Cache) *JobRepository {
	return &JobRepository{store: store}
}

// JobKey builds the store key for a job.
func JobKey(userID int64, jobID string) string {
	return fmt.Sprintf("%d:%s", userID, jobID)
}

// FindByJobID locates a job without knowing its owner, scanning the key
// pattern *:{jobId}. Returns a JobNotFound coded error when absent.
func (r *JobRepository) FindByJobID(ctx context.Context, jobID string) (*judgment.Job, error) {
	var keys []string
	err := r.withRetry(ctx, func() error {
		var scanErr error
		keys, scanErr = r.store.Scan(ctx, "*:"+jobID)
		return scanErr
	})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreError, "scan for job %s", jobID)
	}
	if len(keys) == 0 {
		return nil, appErr.Newf(appErr.JobNotFound, "job %s not found", jobID)
	}
	return r.getJob(ctx, keys[0])
}

// FindByUserAndJob fetches a job by its exact key.
func (r *JobRepository) FindByUserAndJob(ctx context.Context, userID int64, jobID string) (*judgment.Job, error) {
	return r.getJob(ctx, JobKey(userID, jobID))
}

// FindByUserID returns every stored job belonging to a user.
func (r *JobRepository) FindByUserID(ctx context.Context, userID int64) ([]*judgment.Job, error) {
	var keys []string
	err := r.withRetry(ctx, func() error {
		var scanErr error
		keys, scanErr = r.store.Scan(ctx, fmt.Sprintf("%d:*", userID))
		return scanErr
	})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreError, "scan jobs for user %d", userID)
	}
	jobs := make([]*judgment.Job, 0, len(keys))
	for _, key := range keys {
		job, err := r.getJob(ctx, key)
		if err != nil {
			if appErr.Is(err, appErr.JobNotFound) {
				continue // expired between scan and get
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Save stores a job under its key with the given TTL. Returns 1 when the
// record was written.
func (r *JobRepository) Save(ctx context.Context, job *judgment.Job, ttl time.Duration) (int, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.StoreSetFailed, "encode job %s", job.JobID)
	}
	err = r.withRetry(ctx, func() error {
		return r.store.Set(ctx, JobKey(job.UserID, job.JobID), string(payload), ttl)
	})
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.StoreSetFailed, "save job %s", job.JobID)
	}
	return 1, nil
}

// Update reads the job, applies the patch and writes it back preserving
// the record's remaining TTL. userID may be zero when the owner is not
// known, at the cost of a key scan. Returns a JobNotFound coded error if
// the record no longer exists.
func (r *JobRepository) Update(ctx context.Context, userID int64, jobID string, patch func(*judgment.Job)) error {
	var (
		job *judgment.Job
		err error
	)
	if userID != 0 {
		job, err = r.FindByUserAndJob(ctx, userID, jobID)
	} else {
		job, err = r.FindByJobID(ctx, jobID)
	}
	if err != nil {
		return err
	}

	key := JobKey(job.UserID, job.JobID)
	var ttl time.Duration
	err = r.withRetry(ctx, func() error {
		var ttlErr error
		ttl, ttlErr = r.store.TTL(ctx, key)
		return ttlErr
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.StoreError, "read ttl for job %s", jobID)
	}
	switch {
	case ttl == cache.TTLKeyMissing:
		// Key vanished between the read and the TTL probe.
		return appErr.Newf(appErr.JobNotFound, "job %s not found", jobID)
	case ttl == cache.TTLNoExpiry:
		ttl = 0
	}

	patch(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "encode job %s", jobID)
	}
	err = r.withRetry(ctx, func() error {
		return r.store.Set(ctx, key, string(payload), ttl)
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "update job %s", jobID)
	}
	return nil
}

// Delete removes a job record. Deleting a missing record is a no-op and
// returns zero. userID may be zero when the owner is not known.
func (r *JobRepository) Delete(ctx context.Context, userID int64, jobID string) (int64, error) {
	keys := []string{JobKey(userID, jobID)}
	if userID == 0 {
		var err error
		err = r.withRetry(ctx, func() error {
			var scanErr error
			keys, scanErr = r.store.Scan(ctx, "*:"+jobID)
			return scanErr
		})
		if err != nil {
			return 0, appErr.Wrapf(err, appErr.StoreError, "scan for job %s", jobID)
		}
		if len(keys) == 0 {
			return 0, nil
		}
	}
	var removed int64
	err := r.withRetry(ctx, func() error {
		var delErr error
		removed, delErr = r.store.Del(ctx, keys...)
		return delErr
	})
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.StoreError, "delete job %s", jobID)
	}
	return removed, nil
}

func (r *JobRepository) getJob(ctx context.Context, key string) (*judgment.Job, error) {
	var raw string
	err := r.withRetry(ctx, func() error {
		var getErr error
		raw, getErr = r.store.Get(ctx, key)
		return getErr
	})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreError, "get job at %s", key)
	}
	if raw == "" {
		return nil, appErr.Newf(appErr.JobNotFound, "job at %s not found", key)
	}
	var job judgment.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, appErr.Wrapf(err, appErr.JobDecodeFailed, "corrupt job record at %s", key)
	}
	return &job, nil
}

// withRetry runs op up to retryAttempts times with 0.5s then 1.0s waits
// between attempts, returning the last error on exhaustion.
func (r *JobRepository) withRetry(ctx context.Context, op func() error) error {
	delay := retryBaseDelay
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// ParseKey splits a store key back into its owner and job id parts.
func ParseKey(key string) (int64, string, bool) {
	idx := strings.Index(key, ":")
	if idx <= 0 {
		return 0, "", false
	}
	var userID int64
	if _, err := fmt.Sscanf(key[:idx], "%d", &userID); err != nil {
		return 0, "", false
	}
	return userID, key[idx+1:], true
}

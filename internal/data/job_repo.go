// Package data implements the PostgreSQL persistence layer for the workflow
// state machines and the durable job queue.
package data

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	// RetryBaseSeconds is the base for the exponential retry backoff.
	RetryBaseSeconds int
	// DefaultMaxAttempts applies when an enqueue request does not set one.
	DefaultMaxAttempts int
	Logger             *slog.Logger
	TimeProvider       TimeProvider
}

const (
	defaultRetryBaseSeconds = 30
	defaultMaxAttempts      = 5
)

// JobRepo provides database operations for the durable job queue.
type JobRepo struct {
	DB           *sql.DB
	cfg          JobRepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	if cfg.RetryBaseSeconds <= 0 {
		cfg.RetryBaseSeconds = defaultRetryBaseSeconds
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = defaultMaxAttempts
	}

	return &JobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  dedupe_key,
  type,
  status,
  priority,
  payload,
  attempts,
  max_attempts,
  scheduled_at,
  started_at,
  completed_at,
  last_error,
  lease_expires_at,
  created_at,
  updated_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	payload                                []byte
	lastError                              sql.NullString
	startedAt, completedAt, leaseExpiresAt sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.DedupeKey,
		&job.Type,
		&job.Status,
		&job.Priority,
		&d.payload,
		&job.Attempts,
		&job.MaxAttempts,
		&job.ScheduledAt,
		&d.startedAt,
		&d.completedAt,
		&d.lastError,
		&d.leaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.Payload = cloneJSON(d.payload)
	job.LastError = cloneNullableString(d.lastError)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpiresAt)
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// dedupeKeyOrRandom returns the request's dedupe key, generating a unique one
// for callers that do not need idempotent enqueue.
func dedupeKeyOrRandom(req *model.EnqueueRequest) string {
	if req.DedupeKey != "" {
		return req.DedupeKey
	}
	return string(req.Type) + ":" + uuid.NewString()
}

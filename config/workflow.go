package config

import "time"

// QueueConfig contains durable job queue configuration.
type QueueConfig struct {
	// Lease is the duration a claimed job is held before its claim expires.
	Lease time.Duration `env:"QUEUE_LEASE" envDefault:"30s"`

	// RetryBase is the base delay for the exponential retry backoff.
	RetryBase time.Duration `env:"QUEUE_RETRY_BASE" envDefault:"30s"`

	// DefaultMaxAttempts is the retry budget for jobs that don't specify one.
	DefaultMaxAttempts int `env:"QUEUE_DEFAULT_MAX_ATTEMPTS" envDefault:"5"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	if q.Lease < 5*time.Second {
		q.Lease = 5 * time.Second
	}
	if q.RetryBase < time.Second {
		q.RetryBase = time.Second
	}
	if q.DefaultMaxAttempts < 1 {
		q.DefaultMaxAttempts = 1
	}
}

// WorkerConfig contains job worker runner configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// PollInterval is the fallback poll interval used when no enqueue
	// notifications arrive.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"15s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PollInterval < time.Second {
		w.PollInterval = time.Second
	}
}

// SweeperConfig contains background sweeper configuration.
type SweeperConfig struct {
	// Interval is the sweeper tick interval.
	Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"1m"`

	// ProofBatchSize is the maximum number of proofs expired per sweep.
	ProofBatchSize int `env:"SWEEPER_PROOF_BATCH_SIZE" envDefault:"100"`

	// CompletedJobMaxAge is the maximum age for completed jobs before deletion.
	CompletedJobMaxAge time.Duration `env:"SWEEPER_COMPLETED_JOB_MAX_AGE" envDefault:"168h"` // 7 days
}

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	if s.Interval < 5*time.Second {
		s.Interval = 5 * time.Second
	}
	if s.ProofBatchSize < 1 {
		s.ProofBatchSize = 1
	}
	if s.ProofBatchSize > 10000 {
		s.ProofBatchSize = 10000
	}
	if s.CompletedJobMaxAge < time.Hour {
		s.CompletedJobMaxAge = time.Hour
	}
}

// ProofConfig contains proof review configuration.
type ProofConfig struct {
	// ReviewWindow is how long a submitted proof waits for review before it
	// expires.
	ReviewWindow time.Duration `env:"PROOF_REVIEW_WINDOW" envDefault:"24h"`
}

// Sanitize applies guardrails to proof configuration values.
func (p *ProofConfig) Sanitize() {
	if p.ReviewWindow < time.Minute {
		p.ReviewWindow = time.Minute
	}
}

// TrustConfig contains trust tier recompute configuration.
type TrustConfig struct {
	// RecomputeCooldown is the minimum gap between recomputes for one worker.
	RecomputeCooldown time.Duration `env:"TRUST_RECOMPUTE_COOLDOWN" envDefault:"1m"`
}

// Sanitize applies guardrails to trust configuration values.
func (t *TrustConfig) Sanitize() {
	if t.RecomputeCooldown < time.Second {
		t.RecomputeCooldown = time.Second
	}
}

// IntegrationsConfig contains endpoints for external services.
type IntegrationsConfig struct {
	// LedgerBaseURL is the reward ledger service base URL.
	LedgerBaseURL string `env:"LEDGER_BASE_URL" envDefault:"http://localhost:8090"`

	// ProcessorBaseURL is the payment processor base URL.
	ProcessorBaseURL string `env:"PROCESSOR_BASE_URL" envDefault:"http://localhost:8091"`

	// NotifyWebhookURL is the notification webhook endpoint. When empty,
	// notifications are logged instead of delivered.
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL" envDefault:""`
}

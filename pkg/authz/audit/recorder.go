package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/sentinel/pkg/authz"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// Buffer is the size of the async write channel.
	// Default: 1000
	Buffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes authorization decisions to storage asynchronously so the
// decision path never blocks on storage latency. It implements
// authz.DecisionObserver.
type Recorder struct {
	storage Storage
	config  *Config
	logger  *slog.Logger

	recordCh chan *Record
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder over the given storage backend and starts
// its background writer.
func NewRecorder(storage Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:  storage,
		config:   config,
		logger:   slog.Default().With("component", "authz.audit"),
		recordCh: make(chan *Record, config.Buffer),
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// ObserveDecision implements authz.DecisionObserver. It enqueues a record
// and returns immediately; when the buffer is full the record is dropped
// with a log entry rather than stalling the request.
func (r *Recorder) ObserveDecision(ctx context.Context, path, method string, d authz.Decision) {
	if !r.config.Enabled {
		return
	}

	rec := &Record{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Path:        path,
		Method:      method,
		Allowed:     d.Allowed,
		Reason:      string(d.Reason),
		PolicyIndex: d.PolicyIndex,
		Role:        d.Role,
	}

	select {
	case r.recordCh <- rec:
	case <-r.done:
	default:
		r.logger.Warn("audit buffer full, dropping record",
			"path", path,
			"method", method,
			"capacity", r.config.Buffer,
		)
	}
}

// Close drains pending records and shuts down the writer.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

// worker drains the record channel and writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.recordCh:
			r.write(rec)

		case <-r.done:
			// Drain remaining records before exit.
			for {
				select {
				case rec := <-r.recordCh:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, rec); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", rec.ID,
			"error", err,
		)
		return
	}

	r.logger.Debug("decision audited",
		"record_id", rec.ID,
		"path", rec.Path,
		"method", rec.Method,
		"allowed", rec.Allowed,
		"reason", rec.Reason,
	)
}

// Package audit persists audit trail entries off the request path. Entries
// queue on a channel and flush in batches, either when the batch fills or on
// a timer, so a slow database never delays an API response.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	flushTimeout         = 30 * time.Second
)

type RecorderDependencies struct {
	AuditStore domain.AuditStore

	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

type Recorder struct {
	auditStore domain.AuditStore
	batchSize  int

	queue chan domain.AuditEntry
	done  chan struct{}

	closeOnce sync.Once
}

func NewRecorder(deps RecorderDependencies) *Recorder {
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	flushInterval := deps.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	r := &Recorder{
		auditStore: deps.AuditStore,
		batchSize:  batchSize,
		queue:      make(chan domain.AuditEntry, queueSize),
		done:       make(chan struct{}),
	}

	go r.run(flushInterval)

	return r
}

// Record queues an entry for persistence. When the queue is full the entry
// is dropped rather than blocking the caller.
func (r *Recorder) Record(entry domain.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case r.queue <- entry:
	default:
		log.Warn().
			Str("action", entry.Action).
			Str("organization_id", entry.OrganizationID).
			Msg("Audit queue full, dropping entry")
	}
}

// Close flushes queued entries and stops the recorder.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	<-r.done
}

func (r *Recorder) run(flushInterval time.Duration) {
	defer close(r.done)

	batch := make([]domain.AuditEntry, 0, r.batchSize)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-r.queue:
			if !ok {
				r.flush(batch)
				return
			}

			batch = append(batch, entry)

			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flush(batch []domain.AuditEntry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	entries := make([]domain.AuditEntry, len(batch))
	copy(entries, batch)

	if err := r.auditStore.CreateAuditEntries(ctx, entries); err != nil {
		log.Error().
			Err(err).
			Int("entries", len(entries)).
			Msg("Failed to flush audit entries")
	}
}

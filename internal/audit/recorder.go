package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/edinmavric/lms-mern-sub002/internal/middleware"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/observability"
)

// Recorder is the entity-agnostic audit observer shared by every service.
type Recorder struct {
	sink    Sink
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithNATS enables fire-and-forget broadcast of every entry on the subject.
func WithNATS(conn *nats.Conn, subject string) Option {
	return func(r *Recorder) {
		r.nats = conn
		r.subject = subject
	}
}

// NewRecorder constructs the audit recorder.
func NewRecorder(sink Sink, logger zerolog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: logger.With().Str("component", "audit_recorder").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Created emits a "<kind>.created" entry with no changes payload. The acting
// user is taken from the record; records without one are skipped silently.
func (r *Recorder) Created(ctx context.Context, kind string, record interface{}, metadata map[string]interface{}) {
	fields := snapshot(record)
	actor := actorFrom(fields)
	if actor == 0 {
		return
	}

	r.Record(ctx, Entry{
		TenantID:   tenantFrom(fields),
		ActorID:    actor,
		Action:     kind + ".created",
		EntityType: kind,
		EntityID:   entityIDFrom(fields),
		Metadata:   metadata,
		Severity:   models.SeverityLow,
	})
}

// Updated diffs the pre-mutation snapshot against the committed state and
// emits a "<kind>.updated" entry carrying the changed field paths. Records
// with no attributable actor, or no effective change, are skipped silently.
func (r *Recorder) Updated(ctx context.Context, kind string, before, after interface{}) {
	beforeFields := snapshot(before)
	afterFields := snapshot(after)

	actor := actorFrom(afterFields)
	if actor == 0 {
		actor = actorFrom(beforeFields)
	}
	if actor == 0 {
		return
	}

	changes := diff(kind, beforeFields, afterFields)
	if len(changes) == 0 {
		return
	}

	severity := models.SeverityLow
	if statusDisabled(changes) {
		severity = models.SeverityHigh
	}

	r.Record(ctx, Entry{
		TenantID:   tenantFrom(afterFields),
		ActorID:    actor,
		Action:     kind + ".updated",
		EntityType: kind,
		EntityID:   entityIDFrom(afterFields),
		Changes:    changes,
		Severity:   severity,
	})
}

// Deleted emits a "<kind>.deleted" entry at high severity, for both soft and
// hard deletes.
func (r *Recorder) Deleted(ctx context.Context, kind string, record interface{}) {
	fields := snapshot(record)
	actor := actorFrom(fields)
	if actor == 0 {
		return
	}

	r.Record(ctx, Entry{
		TenantID:   tenantFrom(fields),
		ActorID:    actor,
		Action:     kind + ".deleted",
		EntityType: kind,
		EntityID:   entityIDFrom(fields),
		Severity:   models.SeverityHigh,
	})
}

// Record persists one entry. It is the classified entry point used by callers
// that grade, approve or disable (medium/high severity actions). Persistence
// failures are reported to the diagnostic log and discarded; the caller's
// primary write has already committed and is never rolled back.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ActorID == 0 {
		return
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityLow
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		if entry.Metadata == nil {
			entry.Metadata = map[string]interface{}{}
		}
		entry.Metadata["correlation_id"] = id
	}

	model := models.ActivityLog{
		TenantID:   entry.TenantID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Changes:    datatypes.JSONMap(entry.Changes),
		Metadata:   datatypes.JSONMap(entry.Metadata),
		Severity:   entry.Severity,
		CreatedAt:  r.now(),
	}

	if err := r.sink.Create(ctx, &model); err != nil {
		observability.AuditDrops().WithLabelValues(entry.EntityType).Inc()
		r.logger.Error().Err(err).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Msg("failed to persist audit entry")
		return
	}

	observability.AuditWrites().WithLabelValues(entry.EntityType, entry.Severity).Inc()
	r.broadcast(model)
}

func (r *Recorder) broadcast(entry models.ActivityLog) {
	if r.nats == nil || r.subject == "" {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.nats.Publish(r.subject, payload); err != nil {
		r.logger.Warn().Err(err).Msg("failed to broadcast audit entry")
	}
}

// statusDisabled marks account-disabling updates as high severity.
func statusDisabled(changes map[string]interface{}) bool {
	change, ok := changes["status"].(map[string]interface{})
	if !ok {
		return false
	}
	next, _ := change["new"].(string)
	return next == "disabled"
}

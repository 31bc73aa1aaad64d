package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/backend/internal/audit/domain"
	auditrepo "storefront/backend/internal/audit/repository"
)

// writeTimeout bounds the synchronous repository write so a slow database cannot stall the
// mutation that triggered the entry.
const writeTimeout = 3 * time.Second

// sinkTimeout is the max time allowed for a single async sink emit.
const sinkTimeout = 5 * time.Second

// AuditLogger records administrative tenant mutations.
// Record is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	Record(ctx context.Context, action Action, tenantID, actorID, actorLabel string, metadata map[string]any)
}

// Sink receives a copy of every persisted entry (e.g. a Kafka topic or an OTel log stream).
type Sink interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// Logger implements AuditLogger using the audit repository plus optional sinks.
type Logger struct {
	repo  auditrepo.Repository
	sinks []Sink
	log   *zap.Logger
	nowF  func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and fans out to sinks.
// repo may be nil; then only sinks receive entries.
func NewLogger(repo auditrepo.Repository, log *zap.Logger, sinks ...Sink) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{
		repo:  repo,
		sinks: sinks,
		log:   log,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// Record writes one audit entry. The timestamp and id are assigned here, never by the caller.
func (l *Logger) Record(ctx context.Context, action Action, tenantID, actorID, actorLabel string, metadata map[string]any) {
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		Action:     string(action),
		TenantID:   tenantID,
		ActorID:    actorID,
		ActorLabel: actorLabel,
		CreatedAt:  l.nowF(),
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			l.log.Warn("audit: metadata not serializable", zap.String("action", entry.Action), zap.Error(err))
		} else {
			entry.Metadata = raw
		}
	}

	if l.repo != nil {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := l.repo.Create(writeCtx, entry)
		cancel()
		if err != nil {
			l.log.Error("audit: failed to record event",
				zap.String("action", entry.Action),
				zap.String("tenant_id", entry.TenantID),
				zap.String("actor_id", entry.ActorID),
				zap.Error(err))
		}
	}

	for _, s := range l.sinks {
		l.emitAsync(s, entry)
	}
}

func (l *Logger) emitAsync(s Sink, entry *domain.AuditLog) {
	if s == nil {
		return
	}
	c := *entry
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.Emit(emitCtx, &c); err != nil {
			l.log.Warn("audit: sink emit failed", zap.String("action", c.Action), zap.Error(err))
		}
	}()
}

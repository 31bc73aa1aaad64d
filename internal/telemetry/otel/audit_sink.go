package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "storefront/backend/internal/audit/domain"
)

const auditScope = "storefront.tenant.audit"

// recordEmitter is the part of otellog.Logger the sink needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// AuditSink forwards audit entries as OTel log records. It satisfies audit.Sink.
type AuditSink struct {
	logger recordEmitter
}

// NewAuditSink returns a sink on provider, or nil if provider is nil.
func NewAuditSink(provider *sdklog.LoggerProvider) *AuditSink {
	if provider == nil {
		return nil
	}
	return &AuditSink{logger: provider.Logger(auditScope)}
}

func newAuditSinkWithLogger(l recordEmitter) *AuditSink {
	return &AuditSink{logger: l}
}

// Emit converts entry to a log record. The metadata JSON becomes the body.
func (s *AuditSink) Emit(ctx context.Context, entry *auditdomain.AuditLog) error {
	if s == nil || entry == nil {
		return nil
	}
	var rec otellog.Record
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName("tenant." + entry.Action)
	if len(entry.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(entry.Metadata))
	}
	rec.AddAttributes(
		otellog.String("audit.id", entry.ID),
		otellog.String("audit.action", entry.Action),
	)
	if entry.TenantID != "" {
		rec.AddAttributes(otellog.String("tenant.id", entry.TenantID))
	}
	if entry.ActorID != "" {
		rec.AddAttributes(otellog.String("actor.id", entry.ActorID))
	}
	if entry.ActorLabel != "" {
		rec.AddAttributes(otellog.String("actor.label", entry.ActorLabel))
	}
	s.logger.Emit(ctx, rec)
	return nil
}

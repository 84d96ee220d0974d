package db

import (
	"context"
	"time"

	"github.com/morezero/fred-gateway/pkg/events"
)

// DefaultAuditWriteTimeout bounds one audit insert.
const DefaultAuditWriteTimeout = 2 * time.Second

// AuditPublisher writes dispatch events to the audit log.
type AuditPublisher struct {
	repo    *Repository
	timeout time.Duration
	now     func() time.Time
}

// NewAuditPublisher creates an AuditPublisher. A non-positive timeout uses
// DefaultAuditWriteTimeout.
func NewAuditPublisher(repo *Repository, timeout time.Duration) *AuditPublisher {
	if timeout <= 0 {
		timeout = DefaultAuditWriteTimeout
	}
	return &AuditPublisher{repo: repo, timeout: timeout, now: time.Now}
}

// PublishDispatched implements events.EventPublisher.
func (p *AuditPublisher) PublishDispatched(ctx context.Context, e *events.DispatchEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.repo.InsertDispatch(ctx, RecordFromEvent(e, p.now()))
}

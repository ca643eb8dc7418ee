package usecase

import (
	"context"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// AuditLog records activity entries. Implementations write straight to the
// activities table or hand the entry to a queue.
type AuditLog interface {
	Record(ctx context.Context, activity entity.ProspectActivity) error
}

// Notifier receives the outcome of every primary mutation.
type Notifier interface {
	Notify(n Notice)
}

// StageListener reacts to a confirmed stage change. Failures are logged only.
type StageListener interface {
	StageChanged(ctx context.Context, p entity.Prospect, fromStage int, actor entity.Actor) error
}

// Observer receives counters for the metrics backend.
type Observer interface {
	ProspectCreated()
	StageChanged(from, to int)
	AuditFailed()
}

// DirectAuditLog writes activities synchronously through the gateway.
type DirectAuditLog struct {
	Gateway entity.ActivityGateway
}

func (l DirectAuditLog) Record(ctx context.Context, activity entity.ProspectActivity) error {
	return l.Gateway.Insert(ctx, activity)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

type nopObserver struct{}

func (nopObserver) ProspectCreated()      {}
func (nopObserver) StageChanged(int, int) {}
func (nopObserver) AuditFailed()          {}

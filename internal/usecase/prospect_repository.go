package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// ProspectRepository is the single entry point for prospect reads and
// writes. It keeps the session's prospect list in memory (newest first) and
// appends audit entries after confirmed creates and stage changes.
type ProspectRepository struct {
	prospects  entity.ProspectGateway
	activities entity.ActivityGateway
	files      entity.FileGateway
	audit      AuditLog
	notifier   Notifier
	observer   Observer
	listeners  []StageListener
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	cache    []entity.Prospect
	lastErr  error
	inflight int    // List calls waiting on the gateway
	gen      uint64 // bumped by every confirmed mutation
	changed  map[string]change

	pending sync.WaitGroup
}

// change is a mutation confirmed while a List was in flight. A nil prospect
// is a delete.
type change struct {
	gen      uint64
	prospect *entity.Prospect
}

type Option func(*ProspectRepository)

// WithAuditLog replaces the default direct writer, e.g. with a queue producer.
func WithAuditLog(a AuditLog) Option {
	return func(r *ProspectRepository) { r.audit = a }
}

func WithNotifier(n Notifier) Option {
	return func(r *ProspectRepository) { r.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(r *ProspectRepository) { r.observer = o }
}

func WithStageListener(l StageListener) Option {
	return func(r *ProspectRepository) { r.listeners = append(r.listeners, l) }
}

func WithClock(now func() time.Time) Option {
	return func(r *ProspectRepository) { r.now = now }
}

func NewProspectRepository(
	prospects entity.ProspectGateway,
	activities entity.ActivityGateway,
	files entity.FileGateway,
	logger *zap.Logger,
	opts ...Option,
) *ProspectRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ProspectRepository{
		prospects:  prospects,
		activities: activities,
		files:      files,
		audit:      DirectAuditLog{Gateway: activities},
		notifier:   nopNotifier{},
		observer:   nopObserver{},
		logger:     logger,
		now:        time.Now,
		changed:    make(map[string]change),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List reloads every prospect. On failure the cache keeps its last state.
// Mutations confirmed while the gateway call is in flight survive the
// older snapshot.
func (r *ProspectRepository) List(ctx context.Context) ([]entity.Prospect, error) {
	r.mu.Lock()
	r.inflight++
	since := r.gen
	r.mu.Unlock()
	defer r.endList()

	rows, err := r.prospects.SelectAll(ctx)
	if err != nil {
		wrapped := gatewayError("fetch prospects", err)
		r.mu.Lock()
		r.lastErr = wrapped
		r.mu.Unlock()
		r.logger.Error("failed to fetch prospects", zap.Error(err))
		r.announce(entity.Actor{}, NoticeError, "Error", PublicMessage(wrapped), "")
		return nil, wrapped
	}

	r.mu.Lock()
	r.cache = r.reconcileLocked(rows, since)
	r.lastErr = nil
	r.mu.Unlock()

	return r.Prospects(), nil
}

func (r *ProspectRepository) Create(ctx context.Context, actor entity.Actor, input CreateProspectInput) (*entity.Prospect, error) {
	if input.AssignedTo == "" {
		input.AssignedTo = actor.Label()
	}
	if errs := ValidateCreateProspectInput(input); len(errs) > 0 {
		derr := validationFailure(errs)
		r.announce(actor, NoticeError, "Error", derr.Error(), "")
		return nil, derr
	}

	created, err := r.prospects.Insert(ctx, input.toNewProspect())
	if err != nil {
		wrapped := gatewayError("create prospect", err)
		r.logger.Warn("prospect insert rejected", zap.String("company", input.CompanyName), zap.Error(err))
		r.announce(actor, NoticeError, "Error", PublicMessage(wrapped), "")
		return nil, wrapped
	}

	r.mu.Lock()
	r.cache = append([]entity.Prospect{*created}, r.cache...)
	r.recordLocked(created.ID, created)
	r.mu.Unlock()

	r.observer.ProspectCreated()
	r.dispatch(ctx, entity.NewCreatedActivity(*created, actor))
	r.announce(actor, NoticeSuccess, "Éxito", "Prospecto creado exitosamente", created.ID)

	r.logger.Info("prospect created",
		zap.String("prospect_id", created.ID),
		zap.String("company", created.CompanyName),
		zap.String("actor", actor.Label()),
	)
	return created, nil
}

func (r *ProspectRepository) Update(ctx context.Context, actor entity.Actor, id string, u entity.ProspectUpdate) (*entity.Prospect, error) {
	if errs := ValidateProspectUpdate(u); len(errs) > 0 {
		derr := validationFailure(errs)
		r.announce(actor, NoticeError, "Error", derr.Error(), id)
		return nil, derr
	}

	previous, cached := r.Get(id)

	updated, err := r.prospects.UpdateByID(ctx, id, u)
	if err != nil {
		wrapped := gatewayError("update prospect", err)
		r.logger.Warn("prospect update rejected", zap.String("prospect_id", id), zap.Error(err))
		r.announce(actor, NoticeError, "Error", PublicMessage(wrapped), id)
		return nil, wrapped
	}

	r.mu.Lock()
	for i := range r.cache {
		if r.cache[i].ID == id {
			r.cache[i] = *updated
			break
		}
	}
	r.recordLocked(id, updated)
	r.mu.Unlock()

	// Every patch carrying a stage is audited; listeners and the transition
	// counter only see real moves.
	if u.CurrentStage != nil {
		r.dispatch(ctx, entity.NewStageActivity(id, *u.CurrentStage, actor))
		if !cached || previous.CurrentStage != *u.CurrentStage {
			from := 0
			if cached {
				from = previous.CurrentStage
			}
			r.observer.StageChanged(from, *u.CurrentStage)
			r.notifyStageListeners(ctx, *updated, from, actor)
		}
	}

	r.announce(actor, NoticeSuccess, "Éxito", "Prospecto actualizado exitosamente", id)
	return updated, nil
}

func (r *ProspectRepository) Delete(ctx context.Context, actor entity.Actor, id string) error {
	if err := r.prospects.DeleteByID(ctx, id); err != nil {
		wrapped := gatewayError("delete prospect", err)
		r.logger.Warn("prospect delete rejected", zap.String("prospect_id", id), zap.Error(err))
		r.announce(actor, NoticeError, "Error", PublicMessage(wrapped), id)
		return wrapped
	}

	r.mu.Lock()
	kept := r.cache[:0]
	for _, p := range r.cache {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	r.cache = kept
	r.recordLocked(id, nil)
	r.mu.Unlock()

	r.logger.Info("prospect deleted", zap.String("prospect_id", id), zap.String("actor", actor.Label()))
	r.announce(actor, NoticeSuccess, "Éxito", "Prospecto eliminado exitosamente", id)
	return nil
}

// Activities never fails: errors are logged and an empty list is returned.
func (r *ProspectRepository) Activities(ctx context.Context, prospectID string) []entity.ProspectActivity {
	activities, err := r.activities.SelectByProspect(ctx, prospectID)
	if err != nil {
		r.logger.Error("failed to fetch activities", zap.String("prospect_id", prospectID), zap.Error(err))
		return []entity.ProspectActivity{}
	}
	if activities == nil {
		return []entity.ProspectActivity{}
	}
	return activities
}

// Files never fails: errors are logged and an empty list is returned.
func (r *ProspectRepository) Files(ctx context.Context, prospectID string) []entity.ProspectFile {
	files, err := r.files.SelectByProspect(ctx, prospectID)
	if err != nil {
		r.logger.Error("failed to fetch files", zap.String("prospect_id", prospectID), zap.Error(err))
		return []entity.ProspectFile{}
	}
	if files == nil {
		return []entity.ProspectFile{}
	}
	return files
}

// Prospects returns a copy of the cached list.
func (r *ProspectRepository) Prospects() []entity.Prospect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Prospect, len(r.cache))
	copy(out, r.cache)
	return out
}

func (r *ProspectRepository) Get(id string) (entity.Prospect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.cache {
		if p.ID == id {
			return p, true
		}
	}
	return entity.Prospect{}, false
}

// Loading reports whether any List is waiting on the gateway.
func (r *ProspectRepository) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inflight > 0
}

// Err is the error of the last failed List, nil after a successful one.
func (r *ProspectRepository) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Wait blocks until every dispatched audit write and stage listener returns.
func (r *ProspectRepository) Wait() {
	r.pending.Wait()
}

func (r *ProspectRepository) endList() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.inflight == 0 {
		clear(r.changed)
	}
}

// recordLocked bumps the generation and, while a List is in flight, keeps the
// change so the older snapshot cannot undo it. p nil marks a delete.
func (r *ProspectRepository) recordLocked(id string, p *entity.Prospect) {
	r.gen++
	if r.inflight == 0 {
		return
	}
	if p != nil {
		cp := *p
		p = &cp
	}
	r.changed[id] = change{gen: r.gen, prospect: p}
}

// reconcileLocked applies the mutations confirmed after since on top of a
// snapshot. Prospects created meanwhile go first, newest first.
func (r *ProspectRepository) reconcileLocked(rows []entity.Prospect, since uint64) []entity.Prospect {
	out := make([]entity.Prospect, 0, len(rows))
	if r.gen == since {
		return append(out, rows...)
	}

	seen := make(map[string]bool, len(rows))
	for _, p := range rows {
		seen[p.ID] = true
		if c, ok := r.changed[p.ID]; ok && c.gen > since {
			if c.prospect != nil {
				out = append(out, *c.prospect)
			}
			continue
		}
		out = append(out, p)
	}

	var created []entity.Prospect
	for id, c := range r.changed {
		if c.gen > since && c.prospect != nil && !seen[id] {
			created = append(created, *c.prospect)
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].CreatedAt.After(created[j].CreatedAt) })
	return append(created, out...)
}

// dispatch records the activity in the background. The request context may
// end before the write does, so only its values are kept.
func (r *ProspectRepository) dispatch(ctx context.Context, activity entity.ProspectActivity) {
	ctx = context.WithoutCancel(ctx)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if err := r.audit.Record(ctx, activity); err != nil {
			r.observer.AuditFailed()
			r.logger.Error("failed to log activity",
				zap.String("prospect_id", activity.ProspectID),
				zap.String("activity_type", activity.ActivityType),
				zap.Error(err),
			)
		}
	}()
}

func (r *ProspectRepository) notifyStageListeners(ctx context.Context, p entity.Prospect, from int, actor entity.Actor) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range r.listeners {
		r.pending.Add(1)
		go func(l StageListener) {
			defer r.pending.Done()
			if err := l.StageChanged(ctx, p, from, actor); err != nil {
				r.logger.Warn("stage listener failed",
					zap.String("prospect_id", p.ID),
					zap.String("listener", fmt.Sprintf("%T", l)),
					zap.Error(err),
				)
			}
		}(l)
	}
}

// announce addresses the notice to the actor; an empty actor reaches everyone.
func (r *ProspectRepository) announce(actor entity.Actor, kind, title, description, prospectID string) {
	r.notifier.Notify(Notice{
		UserID:      actor.UserID,
		Kind:        kind,
		Title:       title,
		Description: description,
		ProspectID:  prospectID,
		At:          r.now(),
	})
}

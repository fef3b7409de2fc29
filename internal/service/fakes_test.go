package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/repository/contract"
	"ai-screenwriting-be/internal/repository/specification"
	"ai-screenwriting-be/internal/repository/unitofwork"
	"ai-screenwriting-be/pkg/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// filter is what the in-memory repositories understand of a specification list.
type filter struct {
	id, userID, sessionID, workflowID uuid.UUID
	entityType                        string
	limit, offset                     int
}

func parseSpecs(specs []specification.Specification) filter {
	var f filter
	for _, s := range specs {
		switch s := s.(type) {
		case specification.ByID:
			f.id = s.ID
		case specification.ByUserID:
			f.userID = s.UserID
		case specification.ByChatSessionID:
			f.sessionID = s.ChatSessionID
		case specification.ByWorkflowID:
			f.workflowID = s.WorkflowID
		case specification.ByEntityType:
			f.entityType = s.EntityType
		case specification.Pagination:
			f.limit, f.offset = s.Limit, s.Offset
		}
	}
	return f
}

func page[T any](rows []T, f filter) []T {
	if f.offset >= len(rows) {
		return nil
	}
	rows = rows[f.offset:]
	if f.limit > 0 && f.limit < len(rows) {
		rows = rows[:f.limit]
	}
	return rows
}

type memoryDB struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ChatSession
	messages []*entity.ChatMessage
	entities []*entity.ScreenplayEntity
	commits  int
}

func newMemoryDB() *memoryDB {
	return &memoryDB{sessions: map[uuid.UUID]*entity.ChatSession{}}
}

func (db *memoryDB) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memoryUoW{db: db}
}

func (db *memoryDB) messageCount(sessionID uuid.UUID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, m := range db.messages {
		if m.ChatSessionId == sessionID {
			n++
		}
	}
	return n
}

func (db *memoryDB) entityCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.entities)
}

type memoryUoW struct {
	db *memoryDB
}

func (u *memoryUoW) Begin(context.Context) error { return nil }
func (u *memoryUoW) Rollback() error             { return nil }
func (u *memoryUoW) Commit() error {
	u.db.mu.Lock()
	u.db.commits++
	u.db.mu.Unlock()
	return nil
}

func (u *memoryUoW) ChatSessionRepository() contract.ChatSessionRepository {
	return &memorySessions{u.db}
}
func (u *memoryUoW) ChatMessageRepository() contract.ChatMessageRepository {
	return &memoryMessages{u.db}
}
func (u *memoryUoW) ScreenplayEntityRepository() contract.ScreenplayEntityRepository {
	return &memoryEntities{u.db}
}

type memorySessions struct{ db *memoryDB }

func (r *memorySessions) Create(_ context.Context, s *entity.ChatSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *s
	c.CreatedAt = time.Now()
	r.db.sessions[s.Id] = &c
	return nil
}

func (r *memorySessions) UpdateSettings(_ context.Context, id uuid.UUID, mode, model string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.ActiveMode = mode
	row.Model = model
	return nil
}

func (r *memorySessions) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, id)
	return nil
}

func (r *memorySessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	rows, _ := r.FindAll(ctx, specs...)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *memorySessions) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	f := parseSpecs(specs)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.ChatSession
	for _, s := range r.db.sessions {
		if (f.id == uuid.Nil || s.Id == f.id) && (f.userID == uuid.Nil || s.UserId == f.userID) {
			c := *s
			out = append(out, &c)
		}
	}
	return page(out, f), nil
}

func (r *memorySessions) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, _ := r.FindAll(ctx, specs...)
	return int64(len(rows)), nil
}

type memoryMessages struct{ db *memoryDB }

func (r *memoryMessages) Create(_ context.Context, m *entity.ChatMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.messages {
		if existing.Id == m.Id {
			return nil
		}
	}
	c := *m
	r.db.messages = append(r.db.messages, &c)
	return nil
}

func (r *memoryMessages) DeleteByChatSessionId(_ context.Context, sessionID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.messages[:0]
	for _, m := range r.db.messages {
		if m.ChatSessionId != sessionID {
			kept = append(kept, m)
		}
	}
	r.db.messages = kept
	return nil
}

func (r *memoryMessages) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	rows, _ := r.FindAll(ctx, specs...)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *memoryMessages) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	f := parseSpecs(specs)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range r.db.messages {
		if f.sessionID == uuid.Nil || m.ChatSessionId == f.sessionID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, f), nil
}

func (r *memoryMessages) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, _ := r.FindAll(ctx, specs...)
	return int64(len(rows)), nil
}

type memoryEntities struct{ db *memoryDB }

func (r *memoryEntities) Create(_ context.Context, e *entity.ScreenplayEntity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *e
	r.db.entities = append(r.db.entities, &c)
	return nil
}

func (r *memoryEntities) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ScreenplayEntity, error) {
	rows, _ := r.FindAll(ctx, specs...)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *memoryEntities) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ScreenplayEntity, error) {
	f := parseSpecs(specs)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.ScreenplayEntity
	for _, e := range r.db.entities {
		if f.workflowID != uuid.Nil && e.WorkflowId != f.workflowID {
			continue
		}
		if f.userID != uuid.Nil && e.UserId != f.userID {
			continue
		}
		if f.entityType != "" && e.EntityType != f.entityType {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	return page(out, f), nil
}

func (r *memoryEntities) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, _ := r.FindAll(ctx, specs...)
	return int64(len(rows)), nil
}

type frame struct {
	sessionID uuid.UUID
	kind      string
	data      interface{}
}

type recordingHub struct {
	mu     sync.Mutex
	frames []frame
}

func (h *recordingHub) SendSession(sessionID uuid.UUID, frameType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, frame{sessionID, frameType, data})
}

func (h *recordingHub) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, f := range h.frames {
		if f.kind == kind {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingCompleter struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (c *recordingCompleter) CompleteWorkflow(_, completionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, completionID)
	return c.err
}

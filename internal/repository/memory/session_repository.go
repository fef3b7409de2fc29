package memory

import (
	"time"

	"ai-screenwriting-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live engine sessions in memory. An idle session
// expires after the TTL; every Get extends it.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*entity.AgentSession); ok && s.Release != nil {
			s.Release()
		}
	})
	return &SessionRepository{
		cache: c,
		ttl:   ttl,
	}
}

func (r *SessionRepository) Save(session *entity.AgentSession) {
	r.cache.Set(session.Id.String(), session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID uuid.UUID) (*entity.AgentSession, bool) {
	x, found := r.cache.Get(sessionID.String())
	if !found {
		return nil, false
	}
	session := x.(*entity.AgentSession)
	r.cache.Set(sessionID.String(), session, cache.DefaultExpiration)
	return session, true
}

// Delete evicts the session, releasing it.
func (r *SessionRepository) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

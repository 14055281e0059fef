package store

import (
	"sync"

	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/models"
)

// EventKind identifies the type of a store change event.
type EventKind string

const (
	// EventUpserted signals that an entity was inserted or replaced.
	EventUpserted EventKind = "upserted"
	// EventPatched signals that an entity was partially updated.
	EventPatched EventKind = "patched"
	// EventRemoved signals that an entity was deleted from the store.
	EventRemoved EventKind = "removed"
)

// Event describes a single change to the entity store. For removals only ID
// is populated.
type Event struct {
	Kind   EventKind
	ID     string
	Entity models.Entity
}

// subscriberBuffer is the per-subscriber event backlog. A subscriber that
// falls further behind loses its oldest events.
const subscriberBuffer = 16

type memoryStore struct {
	logger *logger.Logger

	mu       sync.RWMutex
	entities map[string]models.Entity
	subs     map[int]chan Event
	nextSub  int
}

// NewEntityStore returns an empty in-memory [EntityStore].
func NewEntityStore(log *logger.Logger) EntityStore {
	if log == nil {
		log = logger.Nop()
	}
	return &memoryStore{
		logger:   log,
		entities: make(map[string]models.Entity),
		subs:     make(map[int]chan Event),
	}
}

func (s *memoryStore) Upsert(entity models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := entity.Clone()
	s.entities[stored.ID] = stored
	s.notifyLocked(Event{Kind: EventUpserted, ID: stored.ID, Entity: stored.Clone()})
}

func (s *memoryStore) Patch(id string, partial models.Payload, status models.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return ErrEntityNotFound
	}

	if len(partial) > 0 {
		merged := entity.Payload.Clone()
		if merged == nil {
			merged = make(models.Payload, len(partial))
		}
		for k, v := range partial.Clone() {
			merged[k] = v
		}
		entity.Payload = merged
	}
	if status != "" {
		entity.Status = status
	}

	s.entities[id] = entity
	s.notifyLocked(Event{Kind: EventPatched, ID: id, Entity: entity.Clone()})
	return nil
}

func (s *memoryStore) SetStatus(id string, status models.SyncStatus) error {
	return s.Patch(id, nil, status)
}

func (s *memoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return
	}
	delete(s.entities, id)
	s.notifyLocked(Event{Kind: EventRemoved, ID: id})
}

func (s *memoryStore) Get(id string) (models.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return models.Entity{}, false
	}
	return entity.Clone(), true
}

func (s *memoryStore) List() []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		out = append(out, entity.Clone())
	}
	return out
}

func (s *memoryStore) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// notifyLocked fans the event out to all subscribers. Mutators must never
// block on a slow presentation layer, so a full buffer drops its oldest
// event first.
func (s *memoryStore) notifyLocked(ev Event) {
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
				s.logger.Warn().Int("subscriber", id).Msg("dropping store event")
			}
		}
	}
}

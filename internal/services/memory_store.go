package services

import (
	"context"
	"sync"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryEntryStore is an in-process EntryStore with the same owner-scoping rules
// as the MongoDB store. Handlers are tested against it.
type MemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[primitive.ObjectID]models.Entry
	order   []primitive.ObjectID
}

func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{entries: make(map[primitive.ObjectID]models.Entry)}
}

func (s *MemoryEntryStore) Insert(_ context.Context, owner string, fields models.EntryFields, at time.Time) (*models.Entry, error) {
	entry := models.Entry{
		ID:        primitive.NewObjectID(),
		UserEmail: owner,
		Title:     fields.Title,
		Content:   fields.Content,
		Mood:      copyString(fields.Mood),
		CreatedAt: at,
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	s.mu.Unlock()

	out := entry
	return &out, nil
}

func (s *MemoryEntryStore) FindAllByOwner(_ context.Context, owner string) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Entry, 0)
	for _, id := range s.order {
		e, ok := s.entries[id]
		if ok && e.UserEmail == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryEntryStore) FindOneByIDAndOwner(_ context.Context, id primitive.ObjectID, owner string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || e.UserEmail != owner {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (s *MemoryEntryStore) UpdateByIDAndOwner(_ context.Context, id primitive.ObjectID, owner string, fields models.EntryFields, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.UserEmail != owner {
		return 0, nil
	}
	e.Title = fields.Title
	e.Content = fields.Content
	e.Mood = copyString(fields.Mood)
	updated := at
	e.UpdatedAt = &updated
	s.entries[id] = e
	return 1, nil
}

func (s *MemoryEntryStore) DeleteByIDAndOwner(_ context.Context, id primitive.ObjectID, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.UserEmail != owner {
		return 0, nil
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

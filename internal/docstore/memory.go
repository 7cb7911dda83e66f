package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type memoryEntry struct {
	data      map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore keeps documents in process. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]*memoryEntry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]*memoryEntry),
		now:  time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (*Document, error) {
	if err := checkPath(collection, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.document(collection, id)
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := ulid.Make().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, data map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	fields, err := normalize(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	coll := s.docs[collection]
	if coll == nil {
		coll = make(map[string]*memoryEntry)
		s.docs[collection] = coll
	}
	if e, ok := coll[id]; ok {
		e.data = fields
		e.updatedAt = now
		return nil
	}
	coll[id] = &memoryEntry{data: fields, createdAt: now, updatedAt: now}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range patch {
		e.data[k] = v
	}
	e.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	if err := checkPath(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs[collection]))
	for id, e := range s.docs[collection] {
		ok, err := q.Matches(e.data)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		doc, err := e.document(collection, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	sortDocuments(docs, q.OrderBy)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (e *memoryEntry) document(collection, id string) (*Document, error) {
	data, err := normalize(e.data)
	if err != nil {
		return nil, err
	}
	return &Document{
		Collection: collection,
		ID:         id,
		Data:       data,
		CreatedAt:  e.createdAt,
		UpdatedAt:  e.updatedAt,
	}, nil
}

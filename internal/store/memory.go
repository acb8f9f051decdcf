package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process. It backs tests and local runs
// without MongoDB.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Key]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Key]Document)}
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (s *MemoryStore) Set(ctx context.Context, key Key, fields Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[key]
	if !merge || !ok {
		s.docs[key] = copyDocument(fields)
		return nil
	}
	mergeInto(existing, fields)
	return nil
}

func (s *MemoryStore) Range(ctx context.Context, userID, collection, startID, endID string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for k := range s.docs {
		if k.UserID == userID && k.Collection == collection && k.ID >= startID && k.ID <= endID {
			ids = append(ids, k.ID)
		}
	}
	sort.Strings(ids)

	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		doc := s.docs[Key{UserID: userID, Collection: collection, ID: id}]
		out = append(out, Item{ID: id, Doc: copyDocument(doc)})
	}
	return out, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key Key, deltas map[string]float64, floor float64, create bool, now time.Time) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		if !create {
			return nil, ErrNotFound
		}
		doc = Document{FieldCreatedAt: now}
		s.docs[key] = doc
	}
	for field, delta := range deltas {
		doc[field] = math.Max(floor, Round(Float(doc, field)+delta))
	}
	doc[FieldUpdatedAt] = now
	return copyDocument(doc), nil
}

func mergeInto(dst, src Document) {
	for k, v := range src {
		if sub := asDocument(v); sub != nil {
			if existing := asDocument(dst[k]); existing != nil {
				mergeInto(existing, sub)
				dst[k] = existing
				continue
			}
			dst[k] = copyDocument(sub)
			continue
		}
		dst[k] = v
	}
}

func asDocument(v interface{}) Document {
	switch m := v.(type) {
	case Document:
		return m
	case map[string]interface{}:
		return Document(m)
	}
	return nil
}

func copyDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if sub := asDocument(v); sub != nil {
			out[k] = copyDocument(sub)
			continue
		}
		out[k] = v
	}
	return out
}

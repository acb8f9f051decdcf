// Package store is the keyed document store the ledger persists through.
// Documents are addressed by (user id, collection, document id) and support
// point reads, merge writes and a per-user ordered range scan.
package store

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps transport and server failures.
	ErrUnavailable = errors.New("store unavailable")
)

// Collections used by the service.
const (
	CollectionDailyMacros = "dailyMacros"
	CollectionProfiles    = "profiles"
	CollectionFoodLogs    = "foodLogs"
)

// Field names shared by every backend.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

type Key struct {
	UserID     string
	Collection string
	ID         string
}

// Document is a flat or nested field map. Nested maps use dotted paths
// when merged.
type Document map[string]interface{}

// Store is implemented by MongoStore and MemoryStore.
type Store interface {
	// Get returns ErrNotFound when the document is absent.
	Get(ctx context.Context, key Key) (Document, error)
	// Set writes fields. With merge the existing document is preserved and
	// only the given fields are replaced; without it the document is
	// overwritten.
	Set(ctx context.Context, key Key, fields Document, merge bool) error
	// Range returns the user's documents in collection whose id lies in
	// [startID, endID], ordered by id ascending.
	Range(ctx context.Context, userID, collection, startID, endID string) ([]Item, error)
}

// Item is a document returned by Range together with its id.
type Item struct {
	ID  string
	Doc Document
}

// Incrementer is implemented by stores that can apply numeric deltas
// atomically. Each field becomes max(floor, Round(current+delta)); missing
// fields count as 0. createdAt is set only when the document is created and
// updatedAt is always set to now. With create false a missing document is
// left absent and ErrNotFound is returned.
type Incrementer interface {
	Increment(ctx context.Context, key Key, deltas map[string]float64, floor float64, create bool, now time.Time) (Document, error)
}

// RoundPlaces is the number of decimal places numeric totals are kept at.
const RoundPlaces = 2

// Round snaps v to RoundPlaces decimals so repeated adds and subtracts of
// the same amounts land back on the same value.
func Round(v float64) float64 {
	scale := math.Pow10(RoundPlaces)
	return math.Round(v*scale) / scale
}

// Float reads a numeric field, treating absent or non-numeric values as 0.
func Float(doc Document, field string) float64 {
	if doc == nil {
		return 0
	}
	switch v := doc[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Int reads an integer field, treating absent values as 0.
func Int(doc Document, field string) int {
	return int(math.Round(Float(doc, field)))
}

// String reads a string field.
func String(doc Document, field string) string {
	if doc == nil {
		return ""
	}
	s, _ := doc[field].(string)
	return s
}

// Bool reads a boolean field.
func Bool(doc Document, field string) bool {
	if doc == nil {
		return false
	}
	b, _ := doc[field].(bool)
	return b
}

// Time reads a time field.
func Time(doc Document, field string) time.Time {
	if doc == nil {
		return time.Time{}
	}
	switch v := doc[field].(type) {
	case time.Time:
		return v
	case interface{ Time() time.Time }:
		return v.Time()
	}
	return time.Time{}
}

// Sub reads a nested document.
func Sub(doc Document, field string) Document {
	if doc == nil {
		return nil
	}
	switch v := doc[field].(type) {
	case Document:
		return v
	case map[string]interface{}:
		return Document(v)
	}
	return nil
}

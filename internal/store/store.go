package store

import (
	"context"
	"errors"
	"fmt"
)

// MaxInValues is the store-enforced cardinality limit of a membership
// predicate. A single query may match a field against at most this many
// candidate values; callers with larger sets must batch.
const MaxInValues = 10

// ErrNotFound is returned by Get and Update when no document has the
// requested id.
var ErrNotFound = errors.New("document not found")

// Eq matches documents whose field equals Value. When the stored field is an
// array, it matches documents whose array contains Value.
type Eq struct {
	Field string
	Value interface{}
}

// In matches documents whose field equals any of Values. When the stored
// field is an array, it matches documents whose array contains any of Values.
// len(Values) must not exceed MaxInValues.
type In struct {
	Field  string
	Values []string
}

// Range matches documents whose field lies in the half-open interval
// [Min, Max). A nil bound is unbounded on that side.
type Range struct {
	Field string
	Min   interface{}
	Max   interface{}
}

// Query describes a single collection scan: conjunction of the given
// predicates, optionally ordered by one field and truncated to Limit
// documents. Limit 0 means no limit.
type Query struct {
	Eq      []Eq
	In      *In
	Range   *Range
	OrderBy string
	Desc    bool
	Limit   int
}

// Validate checks store-enforced query constraints.
func (q Query) Validate() error {
	if q.In != nil {
		if len(q.In.Values) == 0 {
			return errors.New("store: membership predicate with no values")
		}
		if len(q.In.Values) > MaxInValues {
			return fmt.Errorf("store: membership predicate has %d values, limit is %d", len(q.In.Values), MaxInValues)
		}
	}
	return nil
}

// Client is a generic document-store client over named collections.
// Implementations: Mongo (production) and Memory (tests, local dev).
type Client interface {
	// Get point-reads a document by id into out. Returns ErrNotFound if the
	// document does not exist.
	Get(ctx context.Context, collection, id string, out interface{}) error

	// Insert writes a new document. The document carries its own id
	// (the `_id` field of its bson encoding).
	Insert(ctx context.Context, collection string, doc interface{}) error

	// Update applies a partial update to the document with the given id.
	// Field names follow the bson encoding of the stored document. A nil
	// field value clears the field. Returns ErrNotFound when the id does
	// not exist.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error

	// Find runs a query and decodes all matching documents into out, which
	// must be a pointer to a slice.
	Find(ctx context.Context, collection string, q Query, out interface{}) error
}

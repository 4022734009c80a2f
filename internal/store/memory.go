package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory implements Client entirely in memory. It enforces the same query
// constraints as the real store (including the membership-predicate
// cardinality limit) and counts issued queries per collection, which makes
// batching behavior observable in tests. It also backs the `memory` store
// driver for local development.
type Memory struct {
	mu        sync.RWMutex
	data      map[string]map[string]bson.M
	order     map[string][]string // insertion order per collection
	findCalls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		data:      make(map[string]map[string]bson.M),
		order:     make(map[string][]string),
		findCalls: make(map[string]int),
	}
}

// FindCalls reports how many Find queries have been issued against the
// collection since construction.
func (m *Memory) FindCalls(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findCalls[collection]
}

func (m *Memory) Get(ctx context.Context, collection, id string, out interface{}) error {
	// Decode inside the lock: Update mutates stored documents in place, so
	// a document must not escape the critical section undecoded.
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decodeDoc(doc, out)
}

func (m *Memory) Insert(ctx context.Context, collection string, doc interface{}) error {
	encoded, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	id, ok := encoded["_id"].(string)
	if !ok || id == "" {
		return errors.New("store: document has no string _id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]bson.M)
	}
	if _, exists := m.data[collection][id]; exists {
		return fmt.Errorf("store: duplicate id %q in %s", id, collection)
	}
	m.data[collection][id] = encoded
	m.order[collection] = append(m.order[collection], id)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = normalizeValue(v)
	}
	return nil
}

func (m *Memory) Find(ctx context.Context, collection string, q Query, out interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}

	// One critical section for the whole query. Sorting and decoding read
	// the matched documents, which concurrent Updates mutate in place.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls[collection]++

	var matched []bson.M
	for _, id := range m.order[collection] {
		doc := m.data[collection][id]
		if matchesQuery(doc, q) {
			matched = append(matched, doc)
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return decodeDocs(matched, out)
}

func matchesQuery(doc bson.M, q Query) bool {
	for _, eq := range q.Eq {
		if !matchesValue(doc[eq.Field], eq.Value) {
			return false
		}
	}
	if q.In != nil {
		any := false
		for _, v := range q.In.Values {
			if matchesValue(doc[q.In.Field], v) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if q.Range != nil {
		v := doc[q.Range.Field]
		if q.Range.Min != nil && compareValues(v, normalizeValue(q.Range.Min)) < 0 {
			return false
		}
		if q.Range.Max != nil && compareValues(v, normalizeValue(q.Range.Max)) >= 0 {
			return false
		}
	}
	return true
}

// matchesValue applies document-store equality: a scalar field must equal
// want, an array field must contain it.
func matchesValue(stored, want interface{}) bool {
	want = normalizeValue(want)
	if arr, ok := stored.(primitive.A); ok {
		for _, el := range arr {
			if equalValues(el, want) {
				return true
			}
		}
		return false
	}
	return equalValues(stored, want)
}

func equalValues(a, b interface{}) bool {
	a, b = normalizeValue(a), normalizeValue(b)
	if af, aok := orderedValue(a); aok {
		bf, bok := orderedValue(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue maps Go values onto their stored bson representation so
// that caller-supplied predicate values compare against decoded documents.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return primitive.NewDateTimeFromTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return primitive.NewDateTimeFromTime(*t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	default:
		return v
	}
}

// orderedValue reduces a stored value to a sortable form.
func orderedValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// compareValues orders two stored values: -1, 0 or 1. Strings order
// lexically, times and numbers numerically; nil sorts first.
func compareValues(a, b interface{}) int {
	a, b = normalizeValue(a), normalizeValue(b)
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}
	af, aok := orderedValue(a)
	bf, bok := orderedValue(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func encodeDoc(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeDoc(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// decodeDocs decodes matched documents into out, a pointer to a slice.
func decodeDocs(docs []bson.M, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.New("store: Find out argument must be a pointer to a slice")
	}
	slice := rv.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(docs)))
	elemType := slice.Type().Elem()
	for _, doc := range docs {
		el := reflect.New(elemType)
		if err := decodeDoc(doc, el.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, el.Elem()))
	}
	return nil
}

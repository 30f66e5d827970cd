package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/apifeatures"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
)

// memStore is an in-memory repository.Store. Find matches plain top-level
// equality only; operator clauses are ignored.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]bson.M
	order   []string
	nextID  int
	hidden  []string
	hooks   func(ctx context.Context, doc bson.M) error
	lastQ   apifeatures.Query
	counted bson.M
	changes bson.M
	saved   []bson.M
	deleted []bson.M
	pops    []repository.Population
	creates int
}

func newMemStore(docs ...bson.M) *memStore {
	s := &memStore{docs: map[string]bson.M{}}
	for _, d := range docs {
		s.put(d)
	}
	return s
}

func (s *memStore) put(d bson.M) {
	id, ok := d["_id"].(string)
	if !ok {
		s.nextID++
		id = fmt.Sprintf("id-%d", s.nextID)
		d["_id"] = id
	}
	if _, exists := s.docs[id]; !exists {
		s.order = append(s.order, id)
	}
	s.docs[id] = d
}

func (s *memStore) FindByID(_ context.Context, id string) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDoc(d), nil
}

func (s *memStore) Find(_ context.Context, q apifeatures.Query) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQ = q
	var out []bson.M
	for _, id := range s.order {
		if d, ok := s.docs[id]; ok && matches(d, q.Filter) {
			out = append(out, copyDoc(d))
		}
	}
	if q.Skip > 0 {
		if int(q.Skip) >= len(out) {
			return []bson.M{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int(q.Limit) < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) Count(_ context.Context, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counted = filter
	var n int64
	for _, d := range s.docs {
		if matches(d, filter) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Create(ctx context.Context, doc bson.M) (bson.M, error) {
	d := copyDoc(doc)
	if s.hooks != nil {
		if err := s.hooks(ctx, d); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.put(d)
	return copyDoc(d), nil
}

func (s *memStore) FindByIDAndUpdate(_ context.Context, id string, changes bson.M) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = changes
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range changes {
		d[k] = v
	}
	return copyDoc(d), nil
}

func (s *memStore) Save(_ context.Context, doc bson.M) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, doc)
	return doc, nil
}

func (s *memStore) Delete(_ context.Context, doc bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := doc["_id"].(string)
	if _, ok := s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, doc)
	return nil
}

func (s *memStore) Populate(_ context.Context, _ []bson.M, pops []repository.Population) error {
	s.pops = pops
	return nil
}

func (s *memStore) Present(docs ...bson.M) []bson.M {
	out := make([]bson.M, len(docs))
	for i, d := range docs {
		cp := copyDoc(d)
		for _, f := range s.hidden {
			delete(cp, f)
		}
		out[i] = cp
	}
	return out
}

// UpdateByID understands the three array operators the user lists use.
func (s *memStore) UpdateByID(_ context.Context, id string, update bson.M) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for op, fields := range update {
		for field, v := range fields.(bson.M) {
			current, _ := d[field].(bson.A)
			switch op {
			case "$push":
				current = append(current, v)
			case "$addToSet":
				if !containsValue(current, v) {
					current = append(current, v)
				}
			case "$pull":
				kept := bson.A{}
				for _, item := range current {
					if !pullMatches(item, v) {
						kept = append(kept, item)
					}
				}
				current = kept
			}
			d[field] = current
		}
	}
	return copyDoc(d), nil
}

func matches(doc, filter bson.M) bool {
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if m, ok := v.(bson.M); ok && hasOperator(m) {
			continue
		}
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}

func hasOperator(m bson.M) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func containsValue(list bson.A, v any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

func pullMatches(item, cond any) bool {
	if m, ok := cond.(bson.M); ok {
		doc, isDoc := item.(bson.M)
		return isDoc && matches(doc, m)
	}
	return reflect.DeepEqual(item, cond)
}

func copyDoc(d bson.M) bson.M {
	cp := make(bson.M, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

func recordType(tag models.TypeTag, fields []string, store repository.Store) models.RecordType {
	return models.NewRecordType(tag, fields, store)
}

// memCarts is an in-memory CartStore and IdempotencyStore.
type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
	idem  map[string]string
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]*models.Cart{}, idem: map[string]string{}}
}

func (m *memCarts) GetCart(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.CartItems = append([]models.CartItem(nil), c.CartItems...)
	return &cp, nil
}

func (m *memCarts) SaveCart(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	cp.CartItems = append([]models.CartItem(nil), cart.CartItems...)
	m.carts[cart.User] = &cp
	return nil
}

func (m *memCarts) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *memCarts) GetIdempotency(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idem[key], nil
}

func (m *memCarts) SetIdempotency(_ context.Context, key, orderID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idem[key] = orderID
	return nil
}

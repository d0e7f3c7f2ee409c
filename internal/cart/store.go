// Package cart keeps the shopping cart of the storefront and mirrors every
// change to a key/value store so it survives restarts.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/gomarketplace/internal/kv"
)

// DefaultKey is the key the snapshot lives under.
const DefaultKey = "@GoMarketPlace:cart"

var (
	ErrNoProvider      = errors.New("cart: must be used within a cart provider")
	ErrNotReady        = errors.New("cart: store not loaded")
	ErrCorruptSnapshot = errors.New("cart: corrupt snapshot")
)

// Notifier is told about every state that was persisted.
type Notifier interface {
	CartUpdated(ctx context.Context, s State) error
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notify = n } }

// Store owns the cart state. It starts uninitialized; Load moves it to
// ready exactly once and mutations are rejected until then.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	log    zerolog.Logger
	notify Notifier

	ready bool
	items State
}

func New(backend kv.Store, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNoProvider
	}
	s := &Store{kv: backend, key: DefaultKey, log: zerolog.Nop(), items: State{}}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Load restores the last snapshot. A missing key, a failed read and an
// unparsable value all leave the cart empty; the latter two are returned
// so the caller can report them. The store is ready afterwards regardless.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	s.ready = true

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("cart snapshot read failed, starting empty")
		return fmt.Errorf("cart: read snapshot: %w", err)
	}
	if !ok {
		s.log.Debug().Str("key", s.key).Msg("no cart snapshot")
		return nil
	}

	var loaded State
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("cart snapshot unreadable, starting empty")
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	items, dropped := normalize(loaded)
	if dropped > 0 {
		s.log.Warn().Int("dropped", dropped).Msg("cart snapshot had invalid entries")
	}
	s.items = items
	s.log.Info().
		Int("items", len(items)).
		Str("size", humanize.Bytes(uint64(len(raw)))).
		Msg("cart snapshot loaded")
	return nil
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Products returns a copy of the current state.
func (s *Store) Products() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.clone()
}

// AddToCart appends item with quantity 1 when its id is not in the cart.
// The quantity passed in is ignored and an existing entry is left alone.
func (s *Store) AddToCart(ctx context.Context, item LineItem) (State, error) {
	return s.mutate(ctx, func(cur State) (State, bool) {
		if cur.index(item.ID) >= 0 {
			return cur, false
		}
		item.Quantity = 1
		return append(cur.clone(), item), true
	})
}

// Increment bumps the quantity of id by one and moves it to the tail.
func (s *Store) Increment(ctx context.Context, id string) (State, error) {
	return s.mutate(ctx, func(cur State) (State, bool) {
		i := cur.index(id)
		if i < 0 {
			return cur, false
		}
		it := cur[i]
		it.Quantity++
		return append(cur.without(i), it), true
	})
}

// Decrement lowers the quantity of id by one and moves it to the tail. An
// entry at quantity 1 is removed instead.
func (s *Store) Decrement(ctx context.Context, id string) (State, error) {
	return s.mutate(ctx, func(cur State) (State, bool) {
		i := cur.index(id)
		if i < 0 {
			return cur, false
		}
		it := cur[i]
		next := cur.without(i)
		if it.Quantity > 1 {
			it.Quantity--
			next = append(next, it)
		}
		return next, true
	})
}

// mutate applies fn to the current state. When fn reports a change the new
// state is swapped in and persisted; a persistence error is returned but the
// in-memory state keeps the new value. The notifier runs after the lock is
// released so a slow broker does not hold up readers.
func (s *Store) mutate(ctx context.Context, fn func(State) (State, bool)) (State, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	next, changed := fn(s.items)
	if !changed {
		cur := s.items.clone()
		s.mu.Unlock()
		return cur, nil
	}
	s.items = next
	err := s.persist(ctx, next)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("cart snapshot write failed")
		return next.clone(), fmt.Errorf("cart: write snapshot: %w", err)
	}
	if s.notify != nil {
		if err := s.notify.CartUpdated(ctx, next.clone()); err != nil {
			s.log.Warn().Err(err).Msg("cart update notification failed")
		}
	}
	return next.clone(), nil
}

func (s *Store) persist(ctx context.Context, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(b))
}

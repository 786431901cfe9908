// Package cart keeps the active cart and moves guest lines into a user's
// cart after login.
//
// Exactly one cart is active at a time: the guest cart while logged out, the
// owned cart of the session user otherwise. Every mutation recomputes the
// total and persists the whole cart under the active key before the
// in-memory copy changes.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
)

type Store struct {
	mu     sync.RWMutex
	store  *kv.JSONStore
	logger logging.Logger
	key    string
	cart   models.Cart
}

// New returns a store pointed at the guest key. Call Load or UseGuest to read
// the persisted lines.
func New(store *kv.JSONStore, logger logging.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger.With("module", "cart"),
		key:    common.GuestCartKey,
		cart:   models.Cart{Items: []models.CartLine{}},
	}
}

func (s *Store) read(ctx context.Context, key string) (models.Cart, error) {
	var c models.Cart
	if _, err := s.store.Load(ctx, key, &c); err != nil {
		return models.Cart{}, fmt.Errorf("load cart %s: %w", key, err)
	}
	if dropped := c.Normalize(); dropped > 0 {
		s.logger.Warn(ctx, "dropped invalid cart lines", "key", key, "dropped", dropped)
	}
	if c.Items == nil {
		c.Items = []models.CartLine{}
	}
	return c, nil
}

// Load points the store at key and reads its cart. The persisted total is
// ignored and recomputed from the lines.
func (s *Store) Load(ctx context.Context, key string) error {
	c, err := s.read(ctx, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.key = key
	s.cart = c
	s.mu.Unlock()
	return nil
}

func (s *Store) UseGuest(ctx context.Context) error {
	return s.Load(ctx, common.GuestCartKey)
}

func (s *Store) UseOwner(ctx context.Context, userType models.UserType, id models.UserID) error {
	return s.Load(ctx, models.OwnedCartKey(userType, id))
}

// Key returns the persistence key of the active cart.
func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// mutate applies fn to a copy of the active cart, persists it and swaps it in.
func (s *Store) mutate(ctx context.Context, fn func(c *models.Cart) error) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if err := fn(&next); err != nil {
		return models.Cart{}, err
	}
	next.Recompute()
	if err := s.store.Save(ctx, s.key, next); err != nil {
		return models.Cart{}, fmt.Errorf("save cart %s: %w", s.key, err)
	}
	s.cart = next
	return next.Clone(), nil
}

// AddLine adds line to the cart. A zero quantity means one. When the product
// is already in the cart its quantity grows by line.Quantity and the other
// fields of the existing line are kept.
func (s *Store) AddLine(ctx context.Context, line models.CartLine) (models.Cart, error) {
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	if err := line.Validate(); err != nil {
		return models.Cart{}, err
	}
	return s.mutate(ctx, func(c *models.Cart) error {
		if i := c.Index(line.ProductID); i >= 0 {
			c.Items[i].Quantity += line.Quantity
			return nil
		}
		c.Items = append(c.Items, line)
		return nil
	})
}

// RemoveLine drops the line for id. Removing an absent product is a no-op.
func (s *Store) RemoveLine(ctx context.Context, id models.ProductID) (models.Cart, error) {
	return s.mutate(ctx, func(c *models.Cart) error {
		if i := c.Index(id); i >= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return nil
	})
}

// UpdateQuantity sets the quantity of the line for id; a quantity of zero or
// less removes the line. It returns common.ErrorNotFound for an unknown id.
func (s *Store) UpdateQuantity(ctx context.Context, id models.ProductID, quantity int) (models.Cart, error) {
	return s.mutate(ctx, func(c *models.Cart) error {
		i := c.Index(id)
		if i < 0 {
			return fmt.Errorf("product %s: %w", id, common.ErrorNotFound)
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

// Clear empties the active cart.
func (s *Store) Clear(ctx context.Context) (models.Cart, error) {
	return s.mutate(ctx, func(c *models.Cart) error {
		c.Items = []models.CartLine{}
		return nil
	})
}

// Migrate folds the persisted guest cart into the owned cart of the given
// user, deletes the guest key and makes the owned cart active. It returns
// the number of guest lines moved; without a guest cart it only switches to
// the owned cart, so a second call is a no-op.
func (s *Store) Migrate(ctx context.Context, userType models.UserType, id models.UserID) (int, error) {
	ownedKey := models.OwnedCartKey(userType, id)

	exists, err := s.store.Exists(ctx, common.GuestCartKey)
	if err != nil {
		return 0, fmt.Errorf("migrate cart: %w", err)
	}
	if !exists {
		return 0, s.Load(ctx, ownedKey)
	}

	guest, err := s.read(ctx, common.GuestCartKey)
	if err != nil {
		return 0, err
	}
	owned, err := s.read(ctx, ownedKey)
	if err != nil {
		return 0, err
	}

	owned.Items = models.MergeLines(owned.Items, guest.Items)
	owned.Recompute()
	if err := s.store.Save(ctx, ownedKey, owned); err != nil {
		return 0, fmt.Errorf("save cart %s: %w", ownedKey, err)
	}
	if err := s.store.Remove(ctx, common.GuestCartKey); err != nil {
		return 0, fmt.Errorf("remove guest cart: %w", err)
	}

	s.mu.Lock()
	s.key = ownedKey
	s.cart = owned
	s.mu.Unlock()

	s.logger.Info(ctx, "guest cart migrated", "key", ownedKey, "lines", len(guest.Items), "total", owned.Total)
	return len(guest.Items), nil
}

// Items returns a copy of the active lines.
func (s *Store) Items() []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone().Items
}

func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Total
}

// Snapshot returns a copy of the active cart.
func (s *Store) Snapshot() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

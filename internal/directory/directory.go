// Package directory stores one collection of users (clients or designers)
// under a single persistence key.
//
// The whole collection is one JSON array. Every mutation reads the array,
// changes it and writes it back, so the store is the only source of truth and
// a restored backup is picked up without any cache invalidation.
package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
)

// Directory holds the users of one UserType.
type Directory struct {
	mu       sync.Mutex
	key      string
	userType models.UserType
	store    *kv.JSONStore
	logger   logging.Logger
}

// New returns the directory of userType persisted under key.
func New(store *kv.JSONStore, key string, userType models.UserType, logger logging.Logger) *Directory {
	return &Directory{
		key:      key,
		userType: userType,
		store:    store,
		logger:   logger.With("module", "directory", "userType", string(userType)),
	}
}

// NewClients returns the client directory.
func NewClients(store *kv.JSONStore, logger logging.Logger) *Directory {
	return New(store, common.ClientsKey, models.UserTypeClient, logger)
}

// NewDesigners returns the designer directory.
func NewDesigners(store *kv.JSONStore, logger logging.Logger) *Directory {
	return New(store, common.DesignersKey, models.UserTypeDesigner, logger)
}

func (d *Directory) UserType() models.UserType {
	return d.userType
}

// LoadAll returns every record. A missing or malformed collection is empty.
func (d *Directory) LoadAll(ctx context.Context) ([]models.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(ctx)
}

func (d *Directory) load(ctx context.Context) ([]models.UserRecord, error) {
	var records []models.UserRecord
	if _, err := d.store.Load(ctx, d.key, &records); err != nil {
		return nil, fmt.Errorf("load %s: %w", d.key, err)
	}
	for i := range records {
		if records[i].UserType == "" {
			records[i].UserType = d.userType
		}
	}
	return records, nil
}

func (d *Directory) save(ctx context.Context, records []models.UserRecord) error {
	if records == nil {
		records = []models.UserRecord{}
	}
	if err := d.store.Save(ctx, d.key, records); err != nil {
		return fmt.Errorf("save %s: %w", d.key, err)
	}
	return nil
}

// FindByEmail returns the record with the given email, or nil when there is
// none. Surrounding whitespace is ignored; the match is otherwise exact.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	records, err := d.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	email = common.NormalizeEmail(email)
	if i := indexByEmail(records, email); i >= 0 {
		return &records[i], nil
	}
	return nil, nil
}

// FindByID returns the record with id, or nil when there is none.
func (d *Directory) FindByID(ctx context.Context, id models.UserID) (*models.UserRecord, error) {
	records, err := d.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByID(records, id); i >= 0 {
		return &records[i], nil
	}
	return nil, nil
}

// Insert assigns the next id (max+1, starting at 1), stamps the directory's
// user type and persists the record.
func (d *Directory) Insert(ctx context.Context, rec models.UserRecord) (models.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec.Email = common.NormalizeEmail(rec.Email)
	if rec.Email == "" {
		return models.UserRecord{}, common.ErrInvalidEmail
	}

	records, err := d.load(ctx)
	if err != nil {
		return models.UserRecord{}, err
	}
	if indexByEmail(records, rec.Email) >= 0 {
		return models.UserRecord{}, common.ErrDuplicateEmail
	}

	var maxID models.UserID
	for _, r := range records {
		maxID = max(maxID, r.ID)
	}
	rec = rec.Clone()
	rec.ID = maxID + 1
	rec.UserType = d.userType

	if err := d.save(ctx, append(records, rec)); err != nil {
		return models.UserRecord{}, err
	}
	d.logger.Debug(ctx, "user inserted", "id", rec.ID)
	return rec, nil
}

// Update merges partial into the record with id and persists the collection.
// It returns common.ErrorNotFound for an unknown id and
// common.ErrDuplicateEmail when the new email belongs to another record.
func (d *Directory) Update(ctx context.Context, id models.UserID, partial map[string]any) (models.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	records, err := d.load(ctx)
	if err != nil {
		return models.UserRecord{}, err
	}
	i := indexByID(records, id)
	if i < 0 {
		return models.UserRecord{}, fmt.Errorf("user %s: %w", id, common.ErrorNotFound)
	}

	updated := records[i].Clone()
	if err := updated.Apply(partial); err != nil {
		return models.UserRecord{}, err
	}
	if updated.Email == "" {
		return models.UserRecord{}, common.ErrInvalidEmail
	}
	if j := indexByEmail(records, updated.Email); j >= 0 && j != i {
		return models.UserRecord{}, common.ErrDuplicateEmail
	}
	records[i] = updated

	if err := d.save(ctx, records); err != nil {
		return models.UserRecord{}, err
	}
	return updated, nil
}

// Remove deletes the record with id.
func (d *Directory) Remove(ctx context.Context, id models.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	records, err := d.load(ctx)
	if err != nil {
		return err
	}
	i := indexByID(records, id)
	if i < 0 {
		return fmt.Errorf("user %s: %w", id, common.ErrorNotFound)
	}
	return d.save(ctx, slices.Delete(records, i, i+1))
}

func indexByEmail(records []models.UserRecord, email string) int {
	return slices.IndexFunc(records, func(r models.UserRecord) bool { return r.Email == email })
}

func indexByID(records []models.UserRecord, id models.UserID) int {
	return slices.IndexFunc(records, func(r models.UserRecord) bool { return r.ID == id })
}

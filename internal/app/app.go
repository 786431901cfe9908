// Package app wires one process worth of components into a single container
// and serializes every state changing intent through Dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/atelier/internal/backup"
	"github.com/dmitrijs2005/atelier/internal/cart"
	"github.com/dmitrijs2005/atelier/internal/config"
	"github.com/dmitrijs2005/atelier/internal/coordinator"
	"github.com/dmitrijs2005/atelier/internal/directory"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/metrics"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/dmitrijs2005/atelier/internal/sanitize"
	"github.com/dmitrijs2005/atelier/internal/session"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrBackupDisabled is returned by the backup operations when no backup
// driver is configured.
var ErrBackupDisabled = errors.New("backup is not configured")

// App is the dependency container. Fields are exported for the entry points
// and tests; mutate state only through Dispatch.
type App struct {
	mu sync.Mutex

	Config      *config.Config
	Logger      logging.Logger
	Handle      *kv.Handle
	Store       *kv.JSONStore
	Registry    *prometheus.Registry
	Metrics     metrics.Recorder
	Clients     *directory.Directory
	Designers   *directory.Directory
	Session     *session.Store
	Cart        *cart.Store
	Coordinator *coordinator.Coordinator
	Backup      *backup.Service
}

// New opens the configured store, upgrades its key layout, wires every
// component and restores the persisted session.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	h, err := kv.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, err
	}

	var blob backup.Blob
	switch cfg.Backup.Driver {
	case "":
	case "file":
		blob = backup.NewFileBlob(cfg.Backup.Dir)
	case "s3":
		blob, err = backup.NewS3Blob(ctx, backup.S3Config{
			Bucket:    cfg.Backup.S3Bucket,
			Prefix:    cfg.Backup.S3Prefix,
			Region:    cfg.Backup.S3Region,
			Endpoint:  cfg.Backup.S3Endpoint,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
			PathStyle: cfg.Backup.S3PathStyle,
		})
		if err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("backup: %w", err)
		}
	default:
		_ = h.Close()
		return nil, fmt.Errorf("unknown backup driver %q", cfg.Backup.Driver)
	}

	a, err := Wire(ctx, cfg, h, blob, logger)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds the container over an already opened store. blob may be nil.
func Wire(ctx context.Context, cfg *config.Config, h *kv.Handle, blob backup.Blob, logger logging.Logger) (*App, error) {
	if err := kv.UpgradeLayout(ctx, h, logger); err != nil {
		return nil, fmt.Errorf("upgrade store layout: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	store := kv.NewJSONStore(h.Store, logger)
	store.OnMalformed(collector.RecordMalformedState)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Handle:    h,
		Store:     store,
		Registry:  reg,
		Metrics:   collector,
		Clients:   directory.NewClients(store, logger),
		Designers: directory.NewDesigners(store, logger),
		Session:   session.New(store, logger),
		Cart:      cart.New(store, logger),
	}
	a.Coordinator = coordinator.New(coordinator.Deps{
		Clients:   a.Clients,
		Designers: a.Designers,
		Session:   a.Session,
		Cart:      a.Cart,
		Sanitizer: sanitize.New(),
		Metrics:   collector,
		Logger:    logger,
	})
	if blob != nil {
		a.Backup = backup.NewService(h, blob, logger)
	}

	if err := a.Coordinator.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return a, nil
}

func (a *App) Close() error {
	return a.Handle.Close()
}

// Selectors. They read the current state and never block on a running
// intent for longer than the component locks are held.

func (a *App) IsAuthenticated() bool {
	return a.Session.IsAuthenticated()
}

func (a *App) UserInfo() *models.UserInfo {
	return a.Session.UserInfo()
}

func (a *App) CartItems() []models.CartLine {
	return a.Cart.Items()
}

func (a *App) CartTotal() float64 {
	return a.Cart.Total()
}

func (a *App) State() coordinator.State {
	return a.Coordinator.State()
}

// ExportBackup writes a snapshot of the store.
func (a *App) ExportBackup(ctx context.Context) (string, error) {
	if a.Backup == nil {
		return "", ErrBackupDisabled
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Backup.Export(ctx)
}

// ImportBackup replaces the store with snapshot name ("" picks the newest)
// and reloads the in-memory state from it.
func (a *App) ImportBackup(ctx context.Context, name string) (string, error) {
	if a.Backup == nil {
		return "", ErrBackupDisabled
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if name == "" {
		latest, err := a.Backup.Latest(ctx)
		if err != nil {
			return "", err
		}
		if latest == "" {
			return "", backup.ErrSnapshotNotFound
		}
		name = latest
	}
	if err := a.Backup.Import(ctx, name); err != nil {
		return "", err
	}
	if err := kv.UpgradeLayout(ctx, a.Handle, a.Logger); err != nil {
		return "", fmt.Errorf("upgrade store layout: %w", err)
	}
	if err := a.Coordinator.Restore(ctx); err != nil {
		return "", fmt.Errorf("restore: %w", err)
	}
	return name, nil
}

// ListBackups returns the snapshot names, oldest first.
func (a *App) ListBackups(ctx context.Context) ([]string, error) {
	if a.Backup == nil {
		return nil, ErrBackupDisabled
	}
	return a.Backup.List(ctx)
}

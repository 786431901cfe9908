// Package backup exports every key of the store into a JSON snapshot and
// imports such snapshots back. Snapshots are written to a Blob: a local
// directory or an S3 bucket.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
	"github.com/google/uuid"
)

// ErrSnapshotNotFound is returned by Blob.Get for an unknown name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Blob stores snapshot documents by name.
type Blob interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns snapshot names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// Snapshot is the exported document. Values are the raw stored bytes, so
// malformed entries survive a round trip untouched.
type Snapshot struct {
	Format    int               `json:"format"`
	Layout    int               `json:"layout"`
	CreatedAt time.Time         `json:"createdAt"`
	Entries   map[string][]byte `json:"entries"`
}

const snapshotFormat = 1

// Service moves snapshots between the store and a Blob.
type Service struct {
	handle *kv.Handle
	blob   Blob
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(h *kv.Handle, blob Blob, logger logging.Logger) *Service {
	return &Service{
		handle: h,
		blob:   blob,
		logger: logger.With("module", "backup"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Export writes a snapshot of every key and returns its name.
func (s *Service) Export(ctx context.Context) (string, error) {
	entries, err := s.handle.Store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	layout, err := kv.LayoutVersion(ctx, s.handle.Store)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	now := s.now().UTC()
	data, err := json.Marshal(Snapshot{
		Format:    snapshotFormat,
		Layout:    layout,
		CreatedAt: now,
		Entries:   entries,
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("atelier-%s-%s.json", now.Format("20060102T150405Z"), s.newID())
	if err := s.blob.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", name, err)
	}
	s.logger.Info(ctx, "snapshot exported", "name", name, "keys", len(entries))
	return name, nil
}

// Import replaces the whole store with the snapshot called name, in one
// transaction. The caller is expected to restore its in-memory state
// afterwards.
func (s *Service) Import(ctx context.Context, name string) error {
	data, err := s.blob.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("get snapshot %s: %w", name, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	if snap.Format != snapshotFormat {
		return fmt.Errorf("snapshot %s: unsupported format %d", name, snap.Format)
	}
	if snap.Layout > common.StorageVersion {
		return fmt.Errorf("snapshot %s: layout %d is newer than supported version %d", name, snap.Layout, common.StorageVersion)
	}

	err = s.handle.WithTx(ctx, func(ctx context.Context, st kv.Store) error {
		if err := st.Clear(ctx); err != nil {
			return err
		}
		for k, v := range snap.Entries {
			if err := st.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import snapshot %s: %w", name, err)
	}
	s.logger.Info(ctx, "snapshot imported", "name", name, "keys", len(snap.Entries))
	return nil
}

// List returns the available snapshot names, oldest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.blob.List(ctx)
}

// Latest returns the newest snapshot name, or "" when there is none.
func (s *Service) Latest(ctx context.Context) (string, error) {
	names, err := s.blob.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

func isSnapshotName(name string) bool {
	return strings.HasPrefix(name, "atelier-") && strings.HasSuffix(name, ".json")
}

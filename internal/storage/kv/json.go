package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
)

// JSONStore reads and writes JSON documents through a Store.
//
// A document that fails to decode is reported as absent: it is logged with
// common.ErrMalformedPersistedState and the optional malformed hook fires, but
// no error reaches the caller. Storage I/O errors are still returned.
type JSONStore struct {
	store       Store
	logger      logging.Logger
	onMalformed func(key string)
}

func NewJSONStore(store Store, logger logging.Logger) *JSONStore {
	return &JSONStore{store: store, logger: logger.With("module", "kv")}
}

// OnMalformed registers a callback invoked with the key of every discarded
// document.
func (j *JSONStore) OnMalformed(fn func(key string)) {
	j.onMalformed = fn
}

// Raw exposes the underlying Store.
func (j *JSONStore) Raw() Store {
	return j.store
}

// Load decodes the document at key into v, which must be a non-nil pointer.
// It returns false when the key is absent, holds JSON null, or holds a
// malformed document; v is then left at its zero value. A document is decoded
// into a fresh value and only copied into v once it decoded completely.
func (j *JSONStore) Load(ctx context.Context, key string, v any) (bool, error) {
	dst := reflect.ValueOf(v)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return false, errors.New("kv: Load needs a non-nil pointer")
	}
	dst.Elem().SetZero()

	data, err := j.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	fresh := reflect.New(dst.Elem().Type())
	if err := json.Unmarshal(trimmed, fresh.Interface()); err != nil {
		j.logger.Warn(ctx, "discarding persisted value",
			"key", key, "error", fmt.Errorf("%w: %v", common.ErrMalformedPersistedState, err))
		if j.onMalformed != nil {
			j.onMalformed(key)
		}
		return false, nil
	}
	dst.Elem().Set(fresh.Elem())
	return true, nil
}

func (j *JSONStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode kv[%s]: %w", key, err)
	}
	return j.store.Set(ctx, key, data)
}

func (j *JSONStore) Remove(ctx context.Context, key string) error {
	return j.store.Remove(ctx, key)
}

// Exists reports whether any value, well-formed or not, is stored at key.
func (j *JSONStore) Exists(ctx context.Context, key string) (bool, error) {
	data, err := j.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

package kv

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/models"
)

// LayoutVersion reads the key layout version. A store without the version
// key is treated as version 1 (the legacy layout).
func LayoutVersion(ctx context.Context, s Store) (int, error) {
	raw, err := s.Get(ctx, common.StorageVersionKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 1, nil
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: storage version %q", common.ErrMalformedPersistedState, raw)
	}
	return v, nil
}

// UpgradeLayout moves a legacy store to the current key layout inside one
// transaction. Legacy guest carts are merged into the guest cart; the legacy
// shared cart goes to the owned cart of the persisted session user, or to the
// guest cart when nobody is logged in. It is a no-op on a current store.
func UpgradeLayout(ctx context.Context, h *Handle, logger logging.Logger) error {
	logger = logger.With("module", "layout")

	v, err := LayoutVersion(ctx, h.Store)
	if err != nil {
		return err
	}
	switch {
	case v == common.StorageVersion:
		return nil
	case v > common.StorageVersion:
		return fmt.Errorf("store layout version %d is newer than supported version %d", v, common.StorageVersion)
	}

	return h.WithTx(ctx, func(ctx context.Context, s Store) error {
		js := NewJSONStore(s, logger)

		var guest models.Cart
		if _, err := js.Load(ctx, common.GuestCartKey, &guest); err != nil {
			return err
		}
		guestDirty := false

		var legacyGuest models.Cart
		ok, err := js.Load(ctx, common.LegacyGuestCartKey, &legacyGuest)
		if err != nil {
			return err
		}
		if ok {
			guest.Items = models.MergeLines(guest.Items, legacyGuest.Items)
			guestDirty = true
			logger.Info(ctx, "merged legacy guest cart", "lines", len(legacyGuest.Items))
		}
		if err := s.Remove(ctx, common.LegacyGuestCartKey); err != nil {
			return err
		}

		var legacy models.Cart
		ok, err = js.Load(ctx, common.LegacyCartKey, &legacy)
		if err != nil {
			return err
		}
		if ok {
			var sess models.Session
			if _, err := js.Load(ctx, common.SessionKey, &sess); err != nil {
				return err
			}
			if sess.Valid() {
				key := models.OwnedCartKey(*sess.UserType, sess.UserInfo.ID)
				var owned models.Cart
				if _, err := js.Load(ctx, key, &owned); err != nil {
					return err
				}
				owned.Items = models.MergeLines(owned.Items, legacy.Items)
				owned.Normalize()
				if err := js.Save(ctx, key, owned); err != nil {
					return err
				}
				logger.Info(ctx, "moved legacy cart to owner", "key", key, "lines", len(legacy.Items))
			} else {
				guest.Items = models.MergeLines(guest.Items, legacy.Items)
				guestDirty = true
				logger.Info(ctx, "merged legacy cart into guest cart", "lines", len(legacy.Items))
			}
		}
		if err := s.Remove(ctx, common.LegacyCartKey); err != nil {
			return err
		}

		if guestDirty {
			guest.Normalize()
			if err := js.Save(ctx, common.GuestCartKey, guest); err != nil {
				return err
			}
		}

		logger.Info(ctx, "store layout upgraded", "from", v, "to", common.StorageVersion)
		return s.Set(ctx, common.StorageVersionKey, []byte(strconv.Itoa(common.StorageVersion)))
	})
}

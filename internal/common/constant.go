package common

// Persistence keys. They are part of the on-disk contract and must not be
// renamed without bumping StorageVersion and adding an upgrade step.
const (
	SessionKey   = "userState"
	ClientsKey   = "clients"
	DesignersKey = "designers"

	// GuestCartKey holds the cart of an unauthenticated visitor.
	GuestCartKey = "cart_guest"
	// OwnedCartKeyPrefix is followed by "<userType>_<userId>".
	OwnedCartKeyPrefix = "cart_"

	// StorageVersionKey records which key layout the store uses.
	StorageVersionKey = "storageVersion"
	StorageVersion    = 2
)

// Legacy (version 1) keys, read only by the layout upgrade.
const (
	LegacyGuestCartKey = "guestCart"
	LegacyCartKey      = "cart"
)

// MaxLineQuantity is the largest quantity the input surfaces accept for a
// single cart line. The cart store itself does not cap quantities.
const MaxLineQuantity = 10

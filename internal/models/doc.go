// Package models defines the persisted data shapes shared by the directory,
// session and cart stores: user records and their session projection, cart
// lines and carts.
//
// JSON field names follow the layout already present in users' local stores
// (camelCase keys, user profile fields flattened into the record object), so
// existing data keeps loading.
package models

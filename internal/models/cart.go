package models

import (
	"fmt"
	"math"
	"slices"

	"github.com/dmitrijs2005/atelier/internal/common"
)

// CartLine is one product in a cart. A cart holds at most one line per
// ProductID.
type CartLine struct {
	ProductID     ProductID `json:"productId"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Quantity      int       `json:"quantity"`
	Image         string    `json:"image,omitempty"`
	SelectedSize  string    `json:"selectedSize,omitempty"`
	SelectedColor string    `json:"selectedColor,omitempty"`
}

func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

func (l CartLine) Validate() error {
	switch {
	case l.ProductID == "":
		return fmt.Errorf("%w: product id is empty", common.ErrInvalidCartLine)
	case math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price < 0:
		return fmt.Errorf("%w: price %v", common.ErrInvalidCartLine, l.Price)
	case l.Quantity < 1:
		return fmt.Errorf("%w: quantity %d", common.ErrInvalidCartLine, l.Quantity)
	}
	return nil
}

// Cart is the persisted cart document. Total is derived from Items and is
// recomputed after every change; a persisted Total is never trusted.
type Cart struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
}

// Recompute restores the invariant Total == Σ price*quantity.
func (c *Cart) Recompute() {
	var total float64
	for _, l := range c.Items {
		total += l.Subtotal()
	}
	c.Total = total
}

// Index returns the position of the line for id, or -1.
func (c Cart) Index(id ProductID) int {
	return slices.IndexFunc(c.Items, func(l CartLine) bool { return l.ProductID == id })
}

func (c Cart) Clone() Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

// Normalize folds duplicate product lines and drops lines that cannot be
// valid (empty id, negative price, non-positive quantity). It is applied to
// carts read from storage.
func (c *Cart) Normalize() (dropped int) {
	out := make([]CartLine, 0, len(c.Items))
	for _, l := range c.Items {
		if l.Validate() != nil {
			dropped++
			continue
		}
		if i := slices.IndexFunc(out, func(o CartLine) bool { return o.ProductID == l.ProductID }); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	c.Items = out
	c.Recompute()
	return dropped
}

// MergeLines folds guest lines into owned lines. A guest line whose product
// is already owned adds its quantity to the owned line (no cap); any other
// guest line is appended unchanged. Owned order is kept, new lines follow in
// guest order.
func MergeLines(owned, guest []CartLine) []CartLine {
	out := slices.Clone(owned)
	for _, g := range guest {
		if i := slices.IndexFunc(out, func(o CartLine) bool { return o.ProductID == g.ProductID }); i >= 0 {
			out[i].Quantity += g.Quantity
			continue
		}
		out = append(out, g)
	}
	return out
}

// OwnedCartKey is the persistence key of the cart owned by the user of type t
// with the given id. Client and designer ids are allocated independently, so
// the type is part of the key.
func OwnedCartKey(t UserType, id UserID) string {
	return common.OwnedCartKeyPrefix + string(t) + "_" + id.String()
}

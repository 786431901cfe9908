package app

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/coordinator"
	"github.com/dmitrijs2005/atelier/internal/models"
)

// Intent is a state changing request. Dispatch runs intents one at a time.
type Intent interface {
	Name() string
}

type Signup struct {
	Details coordinator.SignupDetails
}

type Login struct {
	Email    string
	Password string
}

type Logout struct{}

type UpdateProfile struct {
	Fields map[string]any
}

type ChangePassword struct {
	Current string
	Next    string
}

type UpdateSocialLinks struct {
	Links map[string]string
}

// AddToCart adds Line; a zero quantity means one.
type AddToCart struct {
	Line models.CartLine
}

type RemoveFromCart struct {
	ProductID models.ProductID
}

// UpdateCartQuantity sets a line's quantity; zero or less removes it.
type UpdateCartQuantity struct {
	ProductID models.ProductID
	Quantity  int
}

type ClearCart struct{}

func (Signup) Name() string             { return "signup" }
func (Login) Name() string              { return "login" }
func (Logout) Name() string             { return "logout" }
func (UpdateProfile) Name() string      { return "update_profile" }
func (ChangePassword) Name() string     { return "change_password" }
func (UpdateSocialLinks) Name() string  { return "update_social_links" }
func (AddToCart) Name() string          { return "add_to_cart" }
func (RemoveFromCart) Name() string     { return "remove_from_cart" }
func (UpdateCartQuantity) Name() string { return "update_cart_quantity" }
func (ClearCart) Name() string          { return "clear_cart" }

// Dispatch runs one intent. Results are read back through the selectors.
func (a *App) Dispatch(ctx context.Context, intent Intent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Logger.Debug(ctx, "dispatch", "intent", intent.Name())

	switch in := intent.(type) {
	case Signup:
		_, err := a.Coordinator.Signup(ctx, in.Details)
		return err
	case Login:
		_, err := a.Coordinator.Login(ctx, in.Email, in.Password)
		return err
	case Logout:
		return a.Coordinator.Logout(ctx)
	case UpdateProfile:
		_, err := a.Coordinator.UpdateProfile(ctx, in.Fields)
		return err
	case ChangePassword:
		return a.Coordinator.ChangePassword(ctx, in.Current, in.Next)
	case UpdateSocialLinks:
		_, err := a.Coordinator.UpdateSocialLinks(ctx, in.Links)
		return err
	case AddToCart:
		return a.record(in, a.addToCart(ctx, in.Line))
	case RemoveFromCart:
		_, err := a.Cart.RemoveLine(ctx, in.ProductID)
		return a.record(in, err)
	case UpdateCartQuantity:
		if in.Quantity > common.MaxLineQuantity {
			return a.record(in, fmt.Errorf("%w: quantity %d exceeds %d", common.ErrInvalidCartLine, in.Quantity, common.MaxLineQuantity))
		}
		_, err := a.Cart.UpdateQuantity(ctx, in.ProductID, in.Quantity)
		return a.record(in, err)
	case ClearCart:
		_, err := a.Cart.Clear(ctx)
		return a.record(in, err)
	}
	return fmt.Errorf("unknown intent %T", intent)
}

// addToCart enforces the per-line quantity limit of the input surfaces.
// Lines merged during cart migration are not limited.
func (a *App) addToCart(ctx context.Context, line models.CartLine) error {
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	have := 0
	for _, l := range a.Cart.Items() {
		if l.ProductID == line.ProductID {
			have = l.Quantity
			break
		}
	}
	if line.Quantity > 0 && have+line.Quantity > common.MaxLineQuantity {
		return fmt.Errorf("%w: quantity %d exceeds %d", common.ErrInvalidCartLine, have+line.Quantity, common.MaxLineQuantity)
	}
	_, err := a.Cart.AddLine(ctx, line)
	return err
}

func (a *App) record(intent Intent, err error) error {
	a.Metrics.RecordIntent(intent.Name(), coordinator.Outcome(err))
	return err
}

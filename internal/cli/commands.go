package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/coordinator"
	"github.com/dmitrijs2005/atelier/internal/models"
)

// Interactive input indirections, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getFields     = GetFields
)

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Signup collects the account details and creates the account. It does not
// log the new user in.
func (a *App) Signup(ctx context.Context) error {
	kind, err := a.ask("Account type (client/designer)")
	if err != nil {
		return err
	}
	ut, err := models.ParseUserType(kind)
	if err != nil {
		return err
	}
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}
	first, err := a.ask("First name")
	if err != nil {
		return err
	}
	last, err := a.ask("Last name")
	if err != nil {
		return err
	}
	extra, err := getFields(a.reader, "Profile fields (phone, address, bio, ...)", a.out)
	if err != nil {
		return err
	}

	profile := make(map[string]any, len(extra))
	for k, v := range extra {
		profile[k] = v
	}
	err = a.core.Dispatch(ctx, app.Signup{Details: coordinator.SignupDetails{
		Email:     email,
		Password:  password,
		FirstName: first,
		LastName:  last,
		UserType:  ut,
		Profile:   profile,
	}})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account %s created. Type 'login' to sign in.\n", email)
	return nil
}

// Login authenticates and reports how many cart lines the account now holds.
func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}
	if err := a.core.Dispatch(ctx, app.Login{Email: email, Password: password}); err != nil {
		return err
	}
	if u := a.core.UserInfo(); u != nil {
		fmt.Fprintf(a.out, "Welcome, %s (%s).\n", u.Name, u.UserType)
	}
	if n := len(a.core.CartItems()); n > 0 {
		fmt.Fprintf(a.out, "Your cart has %d line(s), total %.2f.\n", n, a.core.CartTotal())
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	if err := a.core.Dispatch(ctx, app.Logout{}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// Profile prints the session's user projection.
func (a *App) Profile(_ context.Context) error {
	u := a.core.UserInfo()
	if u == nil {
		return common.ErrUpdateWithoutSession
	}
	fmt.Fprintf(a.out, "id:        %d\n", u.ID)
	fmt.Fprintf(a.out, "type:      %s\n", u.UserType)
	fmt.Fprintf(a.out, "name:      %s\n", u.Name)
	fmt.Fprintf(a.out, "email:     %s\n", u.Email)
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "avatar:    %s\n", u.Avatar)
	}
	for _, k := range slices.Sorted(maps.Keys(u.Fields)) {
		fmt.Fprintf(a.out, "%-10s %v\n", k+":", u.Fields[k])
	}
	return nil
}

func (a *App) EditProfile(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrUpdateWithoutSession
	}
	in, err := getFields(a.reader, "Fields to change (firstName, lastName, email, phone, ...)", a.out)
	if err != nil {
		return err
	}
	if len(in) == 0 {
		fmt.Fprintln(a.out, "Nothing to change.")
		return nil
	}
	fields := make(map[string]any, len(in))
	for k, v := range in {
		fields[k] = v
	}
	if err := a.core.Dispatch(ctx, app.UpdateProfile{Fields: fields}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrUpdateWithoutSession
	}
	current, err := a.askPassword("Current password")
	if err != nil {
		return err
	}
	next, err := a.askPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := a.askPassword("Repeat new password")
	if err != nil {
		return err
	}
	if next != confirm {
		return errors.New("passwords do not match")
	}
	if err := a.core.Dispatch(ctx, app.ChangePassword{Current: current, Next: next}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

// SocialLinks replaces the designer's social links (instagram=..., site=...).
func (a *App) SocialLinks(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrUpdateWithoutSession
	}
	links, err := getFields(a.reader, "Social links (network=url)", a.out)
	if err != nil {
		return err
	}
	if err := a.core.Dispatch(ctx, app.UpdateSocialLinks{Links: links}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Social links saved.")
	return nil
}

func (a *App) ShowCart(_ context.Context) error {
	items := a.core.CartItems()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Cart is empty.")
		return nil
	}
	for _, l := range items {
		variant := ""
		if l.SelectedSize != "" || l.SelectedColor != "" {
			variant = fmt.Sprintf(" [%s %s]", l.SelectedSize, l.SelectedColor)
		}
		fmt.Fprintf(a.out, "%-8s %-24s%s %3d x %8.2f = %9.2f\n",
			l.ProductID, l.Name, variant, l.Quantity, l.Price, l.Subtotal())
	}
	fmt.Fprintf(a.out, "Total: %.2f\n", a.core.CartTotal())
	return nil
}

// AddToCart prompts for a product line. An empty quantity means one.
func (a *App) AddToCart(ctx context.Context) error {
	id, err := a.ask("Product id")
	if err != nil {
		return err
	}
	name, err := a.ask("Product name")
	if err != nil {
		return err
	}
	rawPrice, err := a.ask("Price")
	if err != nil {
		return err
	}
	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil {
		return fmt.Errorf("%w: price %q", common.ErrInvalidCartLine, rawPrice)
	}
	rawQty, err := a.ask("Quantity (default 1)")
	if err != nil {
		return err
	}
	qty := 1
	if rawQty != "" {
		if qty, err = strconv.Atoi(rawQty); err != nil {
			return fmt.Errorf("%w: quantity %q", common.ErrInvalidCartLine, rawQty)
		}
	}
	size, err := a.ask("Size (optional)")
	if err != nil {
		return err
	}
	color, err := a.ask("Color (optional)")
	if err != nil {
		return err
	}

	line := models.CartLine{
		ProductID:     models.ProductID(id),
		Name:          name,
		Price:         price,
		Quantity:      qty,
		SelectedSize:  size,
		SelectedColor: color,
	}
	if err := a.core.Dispatch(ctx, app.AddToCart{Line: line}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s. Total %.2f.\n", name, a.core.CartTotal())
	return nil
}

func (a *App) RemoveFromCart(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove <productID>", errUsage)
	}
	if err := a.core.Dispatch(ctx, app.RemoveFromCart{ProductID: models.ProductID(args[0])}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total %.2f.\n", a.core.CartTotal())
	return nil
}

func (a *App) SetQuantity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: qty <productID> <quantity>", errUsage)
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: qty <productID> <quantity>", errUsage)
	}
	err = a.core.Dispatch(ctx, app.UpdateCartQuantity{ProductID: models.ProductID(args[0]), Quantity: qty})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total %.2f.\n", a.core.CartTotal())
	return nil
}

func (a *App) ClearCart(ctx context.Context) error {
	if err := a.core.Dispatch(ctx, app.ClearCart{}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Cart cleared.")
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	name, err := a.core.ExportBackup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Snapshot written:", name)
	return nil
}

func (a *App) ListBackups(ctx context.Context) error {
	names, err := a.core.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "No snapshots.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	return nil
}

// Restore loads the named snapshot, or the newest one without arguments.
func (a *App) Restore(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: restore [name]", errUsage)
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	restored, err := a.core.ImportBackup(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Restored", restored)
	return nil
}

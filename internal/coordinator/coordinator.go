// Package coordinator drives authentication: it resolves logins against the
// client and designer directories, establishes the session and moves the
// guest cart into the user's cart.
//
// Transitions are serialized by the Coordinator. Every failure is returned
// as an error value; callers match them with errors.Is against the sentinels
// in internal/common.
package coordinator

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/atelier/internal/cart"
	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/directory"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/metrics"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/dmitrijs2005/atelier/internal/sanitize"
	"github.com/dmitrijs2005/atelier/internal/session"
)

// SignupDetails is the input of Signup. Profile carries the type specific
// fields (phone, address, bio, portfolio, ...).
type SignupDetails struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  models.UserType
	Profile   map[string]any
}

// Deps lists the collaborators of a Coordinator. Sanitizer, Metrics and
// Logger are optional.
type Deps struct {
	Clients   *directory.Directory
	Designers *directory.Directory
	Session   *session.Store
	Cart      *cart.Store
	Sanitizer *sanitize.Sanitizer
	Metrics   metrics.Recorder
	Logger    logging.Logger
}

type Coordinator struct {
	mu sync.Mutex
	// state is readable while a transition holds mu.
	state     atomic.Int32
	clients   *directory.Directory
	designers *directory.Directory
	session   *session.Store
	cart      *cart.Store
	sanitizer *sanitize.Sanitizer
	metrics   metrics.Recorder
	logger    logging.Logger
}

func New(d Deps) *Coordinator {
	c := &Coordinator{
		clients:   d.Clients,
		designers: d.Designers,
		session:   d.Session,
		cart:      d.Cart,
		sanitizer: d.Sanitizer,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
	if c.sanitizer == nil {
		c.sanitizer = sanitize.New()
	}
	if c.metrics == nil {
		c.metrics = metrics.Noop{}
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	c.logger = c.logger.With("module", "coordinator")
	return c
}

// State returns the current authentication state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Coordinator) directoryFor(t models.UserType) (*directory.Directory, error) {
	switch t {
	case models.UserTypeClient:
		return c.clients, nil
	case models.UserTypeDesigner:
		return c.designers, nil
	}
	return nil, fmt.Errorf("%w: %q", common.ErrInvalidUserType, t)
}

func (c *Coordinator) record(intent string, err error) {
	c.metrics.RecordIntent(intent, Outcome(err))
}

// Restore rebuilds the state from the store at startup. With a persisted
// session the user's cart becomes active; a guest cart left behind by an
// interrupted login is merged into it first.
func (c *Coordinator) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.session.Restore(ctx)
	if err != nil {
		return err
	}
	if !sess.IsAuthenticated {
		c.setState(LoggedOut)
		return c.cart.UseGuest(ctx)
	}

	moved, err := c.cart.Migrate(ctx, *sess.UserType, sess.UserInfo.ID)
	if err != nil {
		return err
	}
	c.metrics.RecordMigration(moved)
	c.setState(LoggedIn)
	c.logger.Info(ctx, "session restored", "userType", string(*sess.UserType), "userId", sess.UserInfo.ID)
	return nil
}

// Signup registers a new user in the directory matching d.UserType. The
// email must be unused in both directories. No session is established.
func (c *Coordinator) Signup(ctx context.Context, d SignupDetails) (info models.UserInfo, err error) {
	defer func() { c.record("signup", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	dir, err := c.directoryFor(d.UserType)
	if err != nil {
		return models.UserInfo{}, err
	}
	email := common.NormalizeEmail(d.Email)
	if email == "" {
		return models.UserInfo{}, common.ErrInvalidEmail
	}
	if err := models.ValidateProfile(d.Profile); err != nil {
		return models.UserInfo{}, err
	}
	if err := c.ensureEmailFree(ctx, email, nil); err != nil {
		return models.UserInfo{}, err
	}

	rec, err := dir.Insert(ctx, models.UserRecord{
		Email:     email,
		Password:  d.Password,
		FirstName: c.sanitizer.Text(d.FirstName),
		LastName:  c.sanitizer.Text(d.LastName),
		UserType:  d.UserType,
		Profile:   c.sanitizer.Fields(d.Profile),
	})
	if err != nil {
		return models.UserInfo{}, err
	}
	c.logger.Info(ctx, "user signed up", "userType", string(rec.UserType), "userId", rec.ID)
	return rec.Info(), nil
}

// ensureEmailFree fails with common.ErrDuplicateEmail when email belongs to
// any record in either directory other than self.
func (c *Coordinator) ensureEmailFree(ctx context.Context, email string, self *models.UserRecord) error {
	for _, dir := range []*directory.Directory{c.clients, c.designers} {
		rec, err := dir.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		if self != nil && rec.UserType == self.UserType && rec.ID == self.ID {
			continue
		}
		return common.ErrDuplicateEmail
	}
	return nil
}

// Login authenticates against the client directory and then, only when the
// email is not a client's, the designer directory. On success the session is
// established and the guest cart is migrated.
func (c *Coordinator) Login(ctx context.Context, email, password string) (info models.UserInfo, err error) {
	defer func() { c.record("login", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == LoggedIn {
		return models.UserInfo{}, common.ErrAlreadyAuthenticated
	}
	c.setState(Authenticating)
	defer func() {
		if err != nil {
			c.setState(LoggedOut)
		}
	}()

	rec, err := c.resolve(ctx, common.NormalizeEmail(email))
	if err != nil {
		return models.UserInfo{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Password), []byte(password)) != 1 {
		return models.UserInfo{}, common.ErrInvalidCredentials
	}

	info = rec.Info()
	if err := c.session.Establish(ctx, rec.UserType, info); err != nil {
		return models.UserInfo{}, err
	}

	moved, err := c.cart.Migrate(ctx, rec.UserType, rec.ID)
	if err != nil {
		c.logger.Error(ctx, "cart migration failed, rolling back session", "userId", rec.ID, "error", err)
		if clearErr := c.session.Clear(ctx); clearErr != nil {
			c.logger.Error(ctx, "failed to clear session", "error", clearErr)
		}
		return models.UserInfo{}, fmt.Errorf("migrate cart: %w", err)
	}
	c.metrics.RecordMigration(moved)

	c.setState(LoggedIn)
	c.logger.Info(ctx, "user logged in", "userType", string(rec.UserType), "userId", rec.ID, "migratedLines", moved)
	return info, nil
}

func (c *Coordinator) resolve(ctx context.Context, email string) (*models.UserRecord, error) {
	rec, err := c.clients.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	rec, err = c.designers.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.ErrNoSuchAccount
	}
	return rec, nil
}

// Logout clears the session and switches to the guest cart. The owned cart
// stays in the store for the next login. Logging out while logged out is a
// no-op.
func (c *Coordinator) Logout(ctx context.Context) (err error) {
	defer func() { c.record("logout", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != LoggedIn {
		return nil
	}
	if err := c.session.Clear(ctx); err != nil {
		return err
	}
	c.setState(LoggedOut)
	if err := c.cart.UseGuest(ctx); err != nil {
		return err
	}
	c.logger.Info(ctx, "user logged out")
	return nil
}

// current returns the logged-in user's type and record. Callers hold c.mu.
func (c *Coordinator) current(ctx context.Context) (*directory.Directory, *models.UserRecord, error) {
	sess := c.session.Current()
	if c.State() != LoggedIn || !sess.IsAuthenticated || sess.UserInfo == nil || sess.UserType == nil {
		return nil, nil, common.ErrUpdateWithoutSession
	}
	dir, err := c.directoryFor(*sess.UserType)
	if err != nil {
		return nil, nil, err
	}
	rec, err := dir.FindByID(ctx, sess.UserInfo.ID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, common.ErrNoSuchAccount
	}
	return dir, rec, nil
}

// UpdateProfile writes fields to the directory record of the logged-in user
// and then to the session projection. When the session write fails the
// projection is rebuilt from the directory record. The password cannot be
// changed here; use ChangePassword.
func (c *Coordinator) UpdateProfile(ctx context.Context, fields map[string]any) (info models.UserInfo, err error) {
	defer func() { c.record("update_profile", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateProfile(ctx, fields)
}

func (c *Coordinator) updateProfile(ctx context.Context, fields map[string]any) (models.UserInfo, error) {
	if _, ok := fields["password"]; ok {
		return models.UserInfo{}, fmt.Errorf("%w: password is changed with ChangePassword", common.ErrInvalidField)
	}
	dir, rec, err := c.current(ctx)
	if err != nil {
		return models.UserInfo{}, err
	}

	fields = c.sanitizer.Fields(fields)
	if raw, ok := fields["email"]; ok {
		email, isString := raw.(string)
		if !isString {
			return models.UserInfo{}, fmt.Errorf("%w: email must be a string", common.ErrInvalidField)
		}
		email = common.NormalizeEmail(email)
		if email == "" {
			return models.UserInfo{}, common.ErrInvalidEmail
		}
		if email != rec.Email {
			if err := c.ensureEmailFree(ctx, email, rec); err != nil {
				return models.UserInfo{}, err
			}
		}
		fields["email"] = email
	}

	updated, err := dir.Update(ctx, rec.ID, fields)
	if err != nil {
		return models.UserInfo{}, err
	}

	info, err := c.session.UpdateUserInfo(ctx, projectable(fields))
	if err != nil {
		c.logger.Warn(ctx, "session update failed, reconciling from directory", "userId", rec.ID, "error", err)
		if err := c.session.Establish(ctx, updated.UserType, updated.Info()); err != nil {
			return models.UserInfo{}, fmt.Errorf("reconcile session: %w", err)
		}
		return updated.Info(), nil
	}
	return info, nil
}

// projectable drops keys that never reach the session.
func projectable(fields map[string]any) map[string]any {
	out := maps.Clone(fields)
	delete(out, "password")
	return out
}

// ChangePassword replaces the logged-in user's password after checking the
// current one.
func (c *Coordinator) ChangePassword(ctx context.Context, current, next string) (err error) {
	defer func() { c.record("change_password", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	dir, rec, err := c.current(ctx)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Password), []byte(current)) != 1 {
		return common.ErrInvalidCredentials
	}
	if next == "" {
		return fmt.Errorf("%w: new password is empty", common.ErrInvalidField)
	}
	if _, err := dir.Update(ctx, rec.ID, map[string]any{"password": next}); err != nil {
		return err
	}
	c.logger.Info(ctx, "password changed", "userId", rec.ID)
	return nil
}

// UpdateSocialLinks replaces the socialLinks profile field. Links with an
// empty URL are dropped; an empty set removes the field.
func (c *Coordinator) UpdateSocialLinks(ctx context.Context, links map[string]string) (info models.UserInfo, err error) {
	defer func() { c.record("update_social_links", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	cleaned := make(map[string]any, len(links))
	for name, url := range links {
		if url == "" {
			continue
		}
		cleaned[name] = url
	}
	var value any
	if len(cleaned) > 0 {
		value = cleaned
	}
	return c.updateProfile(ctx, map[string]any{models.FieldSocialLinks: value})
}

// Outcome maps an intent result to a short metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, common.ErrNoSuchAccount):
		return "no_such_account"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, common.ErrUpdateWithoutSession):
		return "no_session"
	case errors.Is(err, common.ErrAlreadyAuthenticated):
		return "already_authenticated"
	case errors.Is(err, common.ErrInvalidEmail),
		errors.Is(err, common.ErrInvalidField),
		errors.Is(err, common.ErrImmutableField),
		errors.Is(err, common.ErrInvalidUserType),
		errors.Is(err, common.ErrInvalidCartLine):
		return "invalid_input"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	}
	return "error"
}

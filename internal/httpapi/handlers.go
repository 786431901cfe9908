package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/coordinator"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// SessionView is the body of GET /session and of a successful login.
type SessionView struct {
	IsAuthenticated bool             `json:"isAuthenticated"`
	State           string           `json:"state"`
	UserType        *models.UserType `json:"userType"`
	UserInfo        *models.UserInfo `json:"userInfo"`
}

// CartView is the body of every cart response.
type CartView struct {
	Key   string            `json:"key"`
	Items []models.CartLine `json:"items"`
	Total float64           `json:"total"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

type socialLinksRequest struct {
	Links map[string]string `json:"links"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type backupRequest struct {
	Name string `json:"name"`
}

// decode reads a JSON body into v. Malformed bodies are reported as invalid
// input.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", common.ErrInvalidField, err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sessionView() SessionView {
	cur := s.app.Session.Current()
	return SessionView{
		IsAuthenticated: cur.IsAuthenticated,
		State:           s.app.State().String(),
		UserType:        cur.UserType,
		UserInfo:        cur.UserInfo,
	}
}

func (s *Server) cartView() CartView {
	c := s.app.Cart.Snapshot()
	return CartView{Key: s.app.Cart.Key(), Items: c.Items, Total: c.Total}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, intent app.Intent) bool {
	if err := s.app.Dispatch(r.Context(), intent); err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView())
}

// signup accepts a flat user object; every key besides the account fields
// becomes a profile field.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	var d coordinator.SignupDetails
	for key, dst := range map[string]*string{
		"email":     &d.Email,
		"password":  &d.Password,
		"firstName": &d.FirstName,
		"lastName":  &d.LastName,
	} {
		v, ok := body[key]
		if !ok {
			continue
		}
		str, isString := v.(string)
		if !isString {
			s.fail(w, r, fmt.Errorf("%w: %s must be a string", common.ErrInvalidField, key))
			return
		}
		*dst = str
		delete(body, key)
	}
	userType, _ := body["userType"].(string)
	ut, err := models.ParseUserType(userType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d.UserType = ut
	// userType is parsed above; id and name come from the directory.
	for _, key := range []string{"userType", "id", "name"} {
		delete(body, key)
	}
	if len(body) > 0 {
		d.Profile = body
	}

	if !s.dispatch(w, r, app.Signup{Details: d}) {
		return
	}
	dir := s.app.Clients
	if ut == models.UserTypeDesigner {
		dir = s.app.Designers
	}
	rec, err := dir.FindByEmail(r.Context(), d.Email)
	if err != nil || rec == nil {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, rec.Info())
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.dispatch(w, r, app.Login{Email: req.Email, Password: req.Password}) {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if !s.dispatch(w, r, app.Logout{}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decode(r, &fields); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.dispatch(w, r, app.UpdateProfile{Fields: fields}) {
		return
	}
	writeJSON(w, http.StatusOK, s.app.UserInfo())
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.dispatch(w, r, app.ChangePassword{Current: req.Current, Next: req.Next}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateSocialLinks(w http.ResponseWriter, r *http.Request) {
	var req socialLinksRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.dispatch(w, r, app.UpdateSocialLinks{Links: req.Links}) {
		return
	}
	writeJSON(w, http.StatusOK, s.app.UserInfo())
}

func (s *Server) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if !s.dispatch(w, r, app.ClearCart{}) {
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) addLine(w http.ResponseWriter, r *http.Request) {
	var line models.CartLine
	if err := decode(r, &line); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.dispatch(w, r, app.AddToCart{Line: line}) {
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) updateLine(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := models.ProductID(chi.URLParam(r, "productID"))
	if !s.dispatch(w, r, app.UpdateCartQuantity{ProductID: id, Quantity: req.Quantity}) {
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request) {
	id := models.ProductID(chi.URLParam(r, "productID"))
	if !s.dispatch(w, r, app.RemoveFromCart{ProductID: id}) {
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	names, err := s.app.ListBackups(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"snapshots": names})
}

func (s *Server) exportBackup(w http.ResponseWriter, r *http.Request) {
	name, err := s.app.ExportBackup(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, backupRequest{Name: name})
}

// importBackup restores the named snapshot, or the newest one when the body
// is empty.
func (s *Server) importBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, fmt.Errorf("%w: request body: %v", common.ErrInvalidField, err))
		return
	}
	name, err := s.app.ImportBackup(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backupRequest{Name: name})
}

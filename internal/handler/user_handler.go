package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"healthcare-services/internal/auth"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/model"
	"healthcare-services/internal/store"
	"healthcare-services/pkg/logging"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserExists(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, username, email, phone string, picture *string) error
	SetMFA(ctx context.Context, username string, enabled bool) error
}

type UserHandler struct {
	store  UserStore
	secret string
	logger *logging.Logger
}

func NewUserHandler(st UserStore, secret string, logger *logging.Logger) *UserHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &UserHandler{store: st, secret: secret, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	for _, f := range []struct{ name, value string }{
		{"username", req.Username},
		{"password", req.Password},
		{"email", req.Email},
		{"phone", req.Phone},
	} {
		if f.value == "" {
			writeMessage(w, http.StatusBadRequest, "Missing field: "+f.name)
			return
		}
	}
	if req.Role == "" {
		req.Role = "patient"
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}

	u := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		internalError(w, r, h.logger, err)
		return
	}

	h.issueToken(w, r, http.StatusCreated, u.Username)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	u, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, h.logger, err)
		return
	}
	// same answer for unknown user and wrong password
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.issueToken(w, r, http.StatusOK, u.Username)
}

func (h *UserHandler) issueToken(w http.ResponseWriter, r *http.Request, status int, username string) {
	tok, err := auth.MakeToken(username, h.secret)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, map[string]string{"token": tok})
}

type profileView struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Role           string    `json:"role"`
	ProfilePicture *string   `json:"profile_picture"`
	MFAEnabled     bool      `json:"mfa_enabled"`
	EmailVerified  bool      `json:"email_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, profileView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		MFAEnabled:     u.MFAEnabled,
		EmailVerified:  u.EmailVerified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	})
}

type updateProfileRequest struct {
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	ProfilePicture *string `json:"profile_picture"`
}

// UpdateProfile overwrites the supplied contact fields and keeps the rest.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	email, phone, picture := u.Email, u.Phone, u.ProfilePicture
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.ProfilePicture != nil {
		picture = req.ProfilePicture
	}

	if err := h.store.UpdateProfile(r.Context(), u.Username, email, phone, picture); err != nil {
		h.storeFail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Profile updated successfully")
}

type mfaRequest struct {
	MFAEnabled bool `json:"mfa_enabled"`
}

func (h *UserHandler) SetupMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	identity, _ := middleware.IdentityFrom(r.Context())
	if err := h.store.SetMFA(r.Context(), identity, req.MFAEnabled); err != nil {
		h.storeFail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "MFA setting updated successfully")
}

// UserExists is the public lookup other services call before acting for a user.
func (h *UserHandler) UserExists(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	ok, err := h.store.UserExists(r.Context(), username)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	identity, _ := middleware.IdentityFrom(r.Context())
	u, err := h.store.UserByUsername(r.Context(), identity)
	if err != nil {
		h.storeFail(w, r, err)
		return nil, false
	}
	return u, true
}

func (h *UserHandler) storeFail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	internalError(w, r, h.logger, err)
}

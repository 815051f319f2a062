package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-services/internal/auth"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/model"
	"healthcare-services/internal/store"
)

type userRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newUserRepo() *userRepo { return &userRepo{users: map[string]model.User{}} }

func (r *userRepo) CreateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return store.ErrConflict
	}
	u.ID = "u-" + u.Username
	u.CreatedAt = time.Now().UTC()
	r.users[u.Username] = *u
	return nil
}

func (r *userRepo) UserByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) UserExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *userRepo) UpdateProfile(_ context.Context, username, email, phone string, picture *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Email, u.Phone, u.ProfilePicture = email, phone, picture
	r.users[username] = u
	return nil
}

func (r *userRepo) SetMFA(_ context.Context, username string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.MFAEnabled = enabled
	r.users[username] = u
	return nil
}

func newUserRouter(repo *userRepo, rl *middleware.RateLimiter) http.Handler {
	return NewRouter(RouterConfig{Secret: testSecret, Users: NewUserHandler(repo, testSecret, nil), Limiter: rl})
}

const aliceRegistration = `{"username":"alice","password":"s3cret-pass","email":"alice@example.com","phone":"+237123456789"}`

func TestRegisterAndLogin(t *testing.T) {
	repo := newUserRepo()
	h := newUserRouter(repo, nil)

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", aliceRegistration)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tok := decode[map[string]string](t, rec)["token"]
	claims, err := auth.ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity())
	assert.Equal(t, "patient", repo.users["alice"].Role)
	assert.NotEqual(t, "s3cret-pass", repo.users["alice"].PasswordHash)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", aliceRegistration)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decode[map[string]string](t, rec)["message"])

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["token"])

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"nobody","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["message"])
}

func TestRegisterValidation(t *testing.T) {
	h := newUserRouter(newUserRepo(), nil)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty username", `{"password":"p","email":"e","phone":"1"}`, "Missing field: username"},
		{"empty password", `{"username":"u","email":"e","phone":"1"}`, "Missing field: password"},
		{"empty email", `{"username":"u","password":"p","phone":"1"}`, "Missing field: email"},
		{"malformed", `[`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decode[map[string]string](t, rec)["message"])
		})
	}
}

func TestProfileFlow(t *testing.T) {
	repo := newUserRepo()
	h := newUserRouter(repo, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/auth/register", "", aliceRegistration).Code)
	alice := bearer(t, "alice")

	rec := do(t, h, http.MethodGet, "/api/auth/profile", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "PasswordHash")

	rec = do(t, h, http.MethodPut, "/api/auth/profile", alice, `{"phone":"+237000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+237000", repo.users["alice"].Phone)
	assert.Equal(t, "alice@example.com", repo.users["alice"].Email, "unsupplied fields keep their value")

	rec = do(t, h, http.MethodPost, "/api/auth/setup-mfa", alice, `{"mfa_enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.users["alice"].MFAEnabled)

	rec = do(t, h, http.MethodGet, "/api/auth/profile", bearer(t, "ghost"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserExistsEndpoint(t *testing.T) {
	repo := newUserRepo()
	h := newUserRouter(repo, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/auth/register", "", aliceRegistration).Code)

	rec := do(t, h, http.MethodGet, "/api/auth/user/alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/auth/user/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	defer rl.Close()
	h := newUserRouter(newUserRepo(), rl)

	body := `{"username":"nobody","password":"x"}`
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/api/auth/login", "", body).Code)

	// the public lookup is not limited
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/auth/user/ghost", "", "").Code)
}

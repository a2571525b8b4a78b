package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platecost/platecost/internal/audit"
	"github.com/platecost/platecost/internal/auth"
	"github.com/platecost/platecost/internal/rbac"
	"github.com/platecost/platecost/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newAuthFixture(t *testing.T) (chi.Router, *stubRepo, *recordingAudit) {
	t.Helper()
	repo := &stubRepo{}
	auditRec := &recordingAudit{}
	handler := auth.NewHandler(slog.Default(), auth.NewService(repo), auditRec)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, repo, auditRec
}

func seedUser(t *testing.T, repo *stubRepo, password string, active bool) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.user = &auth.User{
		ID:           42,
		Email:        "chef@platecost.test",
		Name:         "Head Chef",
		Role:         rbac.RolePropertyManager,
		PasswordHash: string(hash),
		IsActive:     active,
	}
	return repo.user
}

func postLogin(r chi.Router, sess *shared.Session, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessBindsSession(t *testing.T) {
	r, repo, auditRec := newAuthFixture(t)
	user := seedUser(t, repo, "correct-horse-battery", true)
	sess := &shared.Session{ID: "sess-1"}

	rec := postLogin(r, sess, `{"email":"chef@platecost.test","password":"correct-horse-battery"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.ID, sess.UserID())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, user.Email, body["email"])
	require.Equal(t, string(user.Role), body["role"])
	require.NotContains(t, body, "password_hash")

	require.Len(t, auditRec.entries, 1)
	require.Equal(t, audit.ActionLoginSuccess, auditRec.entries[0].Action)
	require.Equal(t, user.ID, auditRec.entries[0].ActorID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	r, repo, auditRec := newAuthFixture(t)
	seedUser(t, repo, "correct-horse-battery", true)

	cases := map[string]string{
		"wrong password": `{"email":"chef@platecost.test","password":"wrong-password-1"}`,
		"unknown email":  `{"email":"nobody@platecost.test","password":"correct-horse-battery"}`,
	}
	for name, body := range cases {
		sess := &shared.Session{ID: "sess-2"}
		rec := postLogin(r, sess, body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, name)
		require.Zero(t, sess.UserID(), name)
	}

	// Inactive accounts fail the same way.
	seedUser(t, repo, "correct-horse-battery", false)
	rec := postLogin(r, &shared.Session{ID: "sess-3"}, `{"email":"chef@platecost.test","password":"correct-horse-battery"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, entry := range auditRec.entries {
		require.Equal(t, audit.ActionLoginFailed, entry.Action)
	}
	require.Len(t, auditRec.entries, 3)
}

func TestLoginValidation(t *testing.T) {
	r, _, _ := newAuthFixture(t)

	rec := postLogin(r, &shared.Session{ID: "s"}, `not-json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(r, &shared.Session{ID: "s"}, `{"email":"not-an-email","password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(r, &shared.Session{ID: "s"}, `{"email":"chef@platecost.test","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	r, repo, _ := newAuthFixture(t)
	seedUser(t, repo, "correct-horse-battery", true)
	sess := &shared.Session{ID: "sess-4"}
	sess.SetUser(42)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	r, _, _ := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	sess := &shared.Session{ID: "sess-5"}
	sess.SetUser(7)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 7, body["id"])
}

package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/audit"
	"github.com/meridian-ops/meridian/internal/shared"
)

func newTestRouter(f *fixture) http.Handler {
	h := NewHandler(nil, f.svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if raw := req.Header.Get("X-Test-Principal"); raw != "" {
				id, _ := strconv.ParseInt(raw, 10, 64)
				req = req.WithContext(shared.ContextWithPrincipal(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/users", h.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, principal int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if principal != 0 {
		req.Header.Set("X-Test-Principal", strconv.FormatInt(principal, 10))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestGetOtherProfileWithoutGrant(t *testing.T) {
	f := newFixture()
	a := f.seedUser("alice", "Old1pass")
	b := f.seedUser("bob", "Old1pass")
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodGet, "/api/users/"+strconv.FormatInt(b.ID, 10), a.ID, "")

	assert.Equal(t, http.StatusForbidden, res.Code)
	require.Len(t, f.trail.byAction(audit.ActionUnauthorizedUserLookup), 1)
}

func TestGetSelfProfileHidesSecrets(t *testing.T) {
	f := newFixture()
	me := f.seedUser("alice", "Old1pass")
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodGet, "/api/users/"+strconv.FormatInt(me.ID, 10), me.ID, "")

	require.Equal(t, http.StatusOK, res.Code)
	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	user := payload["user"]
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, res.Body.String(), "password")
	assert.NotContains(t, res.Body.String(), "hash")
	assert.NotContains(t, res.Body.String(), "salt")
}

func TestCreateDuplicateReturns409(t *testing.T) {
	f := newFixture()
	admin := f.seedUser("admin", "Old1pass")
	f.seedUser("alice", "Old1pass")
	f.grant(admin.ID, shared.PermAdminUsers)
	router := newTestRouter(f)

	body := `{"username":"alice","email":"new@example.com","password":"New2Pass","role_id":1}`
	res := doRequest(t, router, http.MethodPost, "/api/users", admin.ID, body)

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "already exists")
}

func TestCreateUserReturns201(t *testing.T) {
	f := newFixture()
	admin := f.seedUser("admin", "Old1pass")
	f.grant(admin.ID, shared.PermUsersCreate)
	router := newTestRouter(f)

	body := `{"username":"carol","email":"carol@example.com","password":"New2Pass","role_id":2}`
	res := doRequest(t, router, http.MethodPost, "/api/users", admin.ID, body)

	require.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), `"username":"carol"`)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	admin := f.seedUser("admin", "Old1pass")
	f.grant(admin.ID, shared.PermAdminUsers)
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodPost, "/api/users", admin.ID, `{"username":"x","email":"not-an-email","password":"New2Pass","role_id":1}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSelfPasswordChangeEndpoint(t *testing.T) {
	f := newFixture()
	me := f.seedUser("alice", "Old1pass")
	router := newTestRouter(f)
	path := "/api/users/" + strconv.FormatInt(me.ID, 10) + "/password"

	res := doRequest(t, router, http.MethodPut, path, me.ID, `{"current_password":"Old1pass","new_password":"New2Pass"}`)
	require.Equal(t, http.StatusOK, res.Code)

	res = doRequest(t, router, http.MethodPut, path, me.ID, `{"current_password":"Nope1pass","new_password":"Other3Pass"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Len(t, f.trail.byAction(audit.ActionPasswordChangeWrongCurrentPassword), 1)
}

func TestSelfDeleteEndpointReturns403(t *testing.T) {
	f := newFixture()
	me := f.seedUser("alice", "Old1pass")
	f.grant(me.ID, shared.PermAdminUsers)
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodDelete, "/api/users/"+strconv.FormatInt(me.ID, 10), me.ID, "")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestHardDeleteConflict(t *testing.T) {
	f := newFixture()
	admin := f.seedUser("admin", "Old1pass")
	target := f.seedUser("bob", "Old1pass")
	f.grant(admin.ID, shared.PermAdminUsers)
	f.repo.dependents[target.ID] = 1
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodDelete, "/api/users/"+strconv.FormatInt(target.ID, 10)+"?hard=true", admin.ID, "")
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestUnknownUserReturns404(t *testing.T) {
	f := newFixture()
	admin := f.seedUser("admin", "Old1pass")
	f.grant(admin.ID, shared.PermAdminUsers)
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodGet, "/api/users/999", admin.ID, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestMissingPrincipalReturns401(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodGet, "/api/users", 0, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestInvalidUserIDReturns400(t *testing.T) {
	f := newFixture()
	me := f.seedUser("alice", "Old1pass")
	router := newTestRouter(f)

	res := doRequest(t, router, http.MethodGet, "/api/users/abc", me.ID, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSessionsEndpointsEmpty(t *testing.T) {
	f := newFixture()
	me := f.seedUser("alice", "Old1pass")
	router := newTestRouter(f)
	base := "/api/users/" + strconv.FormatInt(me.ID, 10) + "/sessions"

	res := doRequest(t, router, http.MethodGet, base, me.ID, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"sessions":[]`)

	res = doRequest(t, router, http.MethodDelete, base, me.ID, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"terminated":0`)
}

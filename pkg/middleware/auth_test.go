package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/internal/tokens"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDirectory struct {
	byKey map[string]*tenant.Tenant
	byID  map[string]*tenant.Tenant
}

func (f *fakeDirectory) Authenticate(_ context.Context, apiKey string) (*tenant.Tenant, error) {
	if t, ok := f.byKey[apiKey]; ok {
		return t, nil
	}
	return nil, errors.New("bad key")
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*tenant.Tenant, error) {
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, errors.New("not found")
}

func authRouter(dir TenantDirectory, secret string) *gin.Engine {
	r := gin.New()
	r.GET("/probe", TenantAuth(dir, secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": TenantFrom(c).ID})
	})
	return r
}

func TestTenantAuthAPIKey(t *testing.T) {
	dir := &fakeDirectory{byKey: map[string]*tenant.Tenant{
		"t1.secret": {ID: "t1", Name: "Acme"},
	}}
	r := authRouter(dir, "jwt-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "t1.secret")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"t1"`)
}

func TestTenantAuthRejectsBadAPIKey(t *testing.T) {
	r := authRouter(&fakeDirectory{}, "jwt-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "nope")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantAuthBearerToken(t *testing.T) {
	dir := &fakeDirectory{byID: map[string]*tenant.Tenant{
		"t1": {ID: "t1", Name: "Acme"},
	}}
	r := authRouter(dir, "jwt-secret")

	tok, err := tokens.GenerateAccessToken("jwt-secret", "t1", "Acme", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"t1"`)
}

func TestTenantAuthRejectsTokenForDeletedTenant(t *testing.T) {
	r := authRouter(&fakeDirectory{}, "jwt-secret")

	tok, err := tokens.GenerateAccessToken("jwt-secret", "gone", "Gone", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantAuthRejectsMissingCredentials(t *testing.T) {
	r := authRouter(&fakeDirectory{}, "jwt-secret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.POST("/admin", AdminAuth("letmein"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("X-Admin-Token", "letmein")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthRefusesWhenUnconfigured(t *testing.T) {
	r := gin.New()
	r.POST("/admin", AdminAuth(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("X-Admin-Token", "")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

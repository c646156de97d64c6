package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/docgate/docgate/internal/breaker"
	docrepo "github.com/docgate/docgate/internal/document/repository"
	docservice "github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/internal/ratelimit"
	"github.com/docgate/docgate/internal/search"
	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// publishRecorder collects publish intents instead of talking to a broker.
type publishRecorder struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (p *publishRecorder) PublishIndex(_ context.Context, docID, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexed = append(p.indexed, docID)
}

func (p *publishRecorder) PublishDelete(_ context.Context, docID, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, docID)
}

type testApp struct {
	router  *gin.Engine
	tenants *tenant.Service
	docs    *docservice.Service
	repo    *docrepo.GormRepo
	engine  *search.BleveEngine
	pub     *publishRecorder
}

const testAdminToken = "test-admin-token"
const testJWTSecret = "test-jwt-secret"

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	repo := docrepo.NewGormRepo(db)
	require.NoError(t, repo.Migrate())
	tenantRepo := tenant.NewRepository(db)
	require.NoError(t, tenantRepo.Migrate())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pub := &publishRecorder{}
	limiter := ratelimit.NewLimiter(client)
	cache := search.NewCache(client, "", time.Minute)
	tenants := tenant.NewService(tenantRepo, repo, pub, limiter, cache)
	docs := docservice.New(repo, pub)

	eng, err := search.NewBleveEngine("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	brk := breaker.New("search-engine", client, breaker.Settings{
		CallTimeout:     time.Second,
		SleepWindow:     10 * time.Second,
		RollingWindow:   time.Minute,
		VolumeThreshold: 100,
		ErrorThreshold:  0.99,
	})
	gw := search.NewGateway(eng, cache, repo, brk, nil)

	r := gin.New()
	RegisterTenantRoutes(r, tenants, testAdminToken)
	RegisterAuthRoutes(r, tenants, testJWTSecret, time.Hour)
	RegisterHealthRoutes(r)
	RegisterSwagger(r)
	authed := r.Group("/api/v1", middleware.TenantAuth(tenants, testJWTSecret), middleware.TenantRateLimit(limiter))
	RegisterDocumentRoutes(authed, docs)
	RegisterSearchRoutes(authed, gw)

	return &testApp{router: r, tenants: tenants, docs: docs, repo: repo, engine: eng, pub: pub}
}

// newTenant provisions a tenant directly through the service and returns it
// with its api key.
func (a *testApp) newTenant(t *testing.T, name string, quota, rpm int64) (*tenant.Tenant, string) {
	t.Helper()
	tn, key, err := a.tenants.Create(context.Background(), name, quota, rpm)
	require.NoError(t, err)
	return tn, key
}

func (a *testApp) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) adminRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Admin-Token", testAdminToken)
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

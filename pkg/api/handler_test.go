package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/helix/pkg/auth"
	"github.com/txn2/helix/pkg/cache"
	"github.com/txn2/helix/pkg/clock"
	"github.com/txn2/helix/pkg/notify"
	"github.com/txn2/helix/pkg/tenant"
)

var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

var (
	userAda   = &auth.Principal{Subject: "u-ada", TenantID: "t-1", Kind: auth.KindUser}
	userBob   = &auth.Principal{Subject: "u-bob", TenantID: "t-2", Kind: auth.KindUser}
	adminEve  = &auth.Principal{Subject: "u-eve", Roles: []string{auth.RoleAdmin}, Kind: auth.KindUser}
	serviceCI = &auth.Principal{Subject: "apikey:ingest", Roles: []string{auth.RoleService}, Kind: auth.KindService}
)

type fixture struct {
	handler       *Handler
	tenants       *tenant.MemoryStore
	notifications *notify.MemoryStore
	cache         *cache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(testNow)
	c, err := cache.New(cache.Config{Clock: clk})
	require.NoError(t, err)

	tenants := tenant.NewMemoryStore()
	notifications := notify.NewMemoryStore()
	dispatcher := notify.NewDispatcher(notifications, nil, nil, notify.Config{
		Clock:       clk,
		FrontendURL: "https://app.example.com",
	})

	h := NewHandler(Deps{
		Tenants:       tenant.NewCachedStore(tenants, c, 0),
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Cache:         c,
		Clock:         clk,
	}, nil)

	return &fixture{handler: h, tenants: tenants, notifications: notifications, cache: c}
}

func (f *fixture) do(t *testing.T, p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (f *fixture) seedNotification(t *testing.T, id, recipient string, offset time.Duration) {
	t.Helper()
	require.NoError(t, f.notifications.Insert(context.Background(), notify.Notification{
		ID:          id,
		RecipientID: recipient,
		Category:    notify.CategorySystem,
		Title:       "t " + id,
		Priority:    notify.PriorityLow,
		CreatedAt:   testNow.Add(offset),
	}))
}

func TestGetTenant(t *testing.T) {
	f := newFixture(t)
	perms := tenant.DefaultPermissions()
	perms.Analytics = true
	require.NoError(t, f.tenants.Upsert(context.Background(), tenant.Tenant{ID: "t-1", Name: "Acme", Permissions: perms}))

	tests := []struct {
		name   string
		p      *auth.Principal
		id     string
		status int
	}{
		{name: "own tenant", p: userAda, id: "t-1", status: http.StatusOK},
		{name: "other tenant", p: userBob, id: "t-1", status: http.StatusForbidden},
		{name: "admin", p: adminEve, id: "t-1", status: http.StatusOK},
		{name: "service", p: serviceCI, id: "t-1", status: http.StatusOK},
		{name: "anonymous", p: nil, id: "t-1", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.p, http.MethodGet, "/api/customer/tenant/"+tt.id, "")
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				got := decode[tenant.Tenant](t, rec)
				assert.Equal(t, "Acme", got.Name)
				assert.True(t, got.Permissions.Analytics)
			}
		})
	}
}

func TestGetTenant_MissingReportsDefaults(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, userBob, http.MethodGet, "/api/customer/tenant/t-2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[tenant.Tenant](t, rec)
	assert.Equal(t, "t-2", got.ID)
	assert.Equal(t, tenant.DefaultPermissions(), got.Permissions)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tenants.Upsert(context.Background(), tenant.Tenant{ID: "t-1", Permissions: tenant.DefaultPermissions()}))

	// Warm the cache so the write has something to invalidate.
	require.Equal(t, http.StatusOK, f.do(t, userAda, http.MethodGet, "/api/customer/tenant/t-1", "").Code)

	rec := f.do(t, adminEve, http.MethodPut, "/api/admin/tenants/t-1/permissions",
		`{"customerPermissions":{"analytics":true,"dashboard":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[tenant.Tenant](t, rec)
	assert.True(t, updated.Permissions.Analytics)
	assert.False(t, updated.Permissions.Dashboard)
	assert.True(t, updated.Permissions.LegalCases, "unpatched flags keep their value")

	rec = f.do(t, userAda, http.MethodGet, "/api/customer/tenant/t-1", "")
	got := decode[tenant.Tenant](t, rec)
	assert.True(t, got.Permissions.Analytics, "read after write must not see the cached value")
}

func TestUpdatePermissions_Errors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		p      *auth.Principal
		body   string
		status int
	}{
		{name: "not admin", p: userAda, body: `{"customerPermissions":{"analytics":true}}`, status: http.StatusForbidden},
		{name: "service is not admin", p: serviceCI, body: `{"customerPermissions":{"analytics":true}}`, status: http.StatusForbidden},
		{name: "unknown flag", p: adminEve, body: `{"customerPermissions":{"teleport":true}}`, status: http.StatusBadRequest},
		{name: "empty patch", p: adminEve, body: `{"customerPermissions":{}}`, status: http.StatusBadRequest},
		{name: "bad json", p: adminEve, body: `{`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.p, http.MethodPut, "/api/admin/tenants/t-9/permissions", tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestUpdatePermissions_CreatesMissingTenant(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, adminEve, http.MethodPut, "/api/admin/tenants/t-new/permissions", `{"customerPermissions":{"reports":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.tenants.Get(context.Background(), "t-new")
	require.NoError(t, err)
	assert.True(t, stored.Permissions.Reports)
	assert.True(t, stored.Permissions.Dashboard, "defaults fill the rest")
}

func TestListNotifications(t *testing.T) {
	f := newFixture(t)
	f.seedNotification(t, "a", userAda.Subject, 0)
	f.seedNotification(t, "b", userAda.Subject, time.Minute)
	f.seedNotification(t, "c", userBob.Subject, 2*time.Minute)

	rec := f.do(t, userAda, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[notificationListResponse](t, rec)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, notify.DefaultListLimit, got.Limit)
	assert.Equal(t, "b", got.Data[0].ID)

	rec = f.do(t, userAda, http.MethodGet, "/api/notifications?limit=1", "")
	got = decode[notificationListResponse](t, rec)
	assert.Equal(t, 1, got.Count)

	for _, q := range []string{"?limit=0", "?limit=x", "?unread=maybe"} {
		rec = f.do(t, userAda, http.MethodGet, "/api/notifications"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = f.do(t, nil, http.MethodGet, "/api/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListNotifications_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, userAda, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestReadState(t *testing.T) {
	f := newFixture(t)
	f.seedNotification(t, "a", userAda.Subject, 0)
	f.seedNotification(t, "b", userAda.Subject, time.Minute)
	f.seedNotification(t, "c", userBob.Subject, 0)

	rec := f.do(t, userAda, http.MethodGet, "/api/notifications/unread-count", "")
	assert.Equal(t, int64(2), decode[countResponse](t, rec).Count)

	rec = f.do(t, userAda, http.MethodPost, "/api/notifications/c/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's notification")

	rec = f.do(t, userAda, http.MethodPost, "/api/notifications/missing/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, userAda, http.MethodPost, "/api/notifications/a/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, userAda, http.MethodGet, "/api/notifications?unread=true", "")
	unread := decode[notificationListResponse](t, rec)
	require.Len(t, unread.Data, 1)
	assert.Equal(t, "b", unread.Data[0].ID)

	rec = f.do(t, userAda, http.MethodPost, "/api/notifications/read-all", "")
	assert.Equal(t, int64(1), decode[updatedResponse](t, rec).Updated)

	rec = f.do(t, userBob, http.MethodGet, "/api/notifications/unread-count", "")
	assert.Equal(t, int64(1), decode[countResponse](t, rec).Count)
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, userAda, http.MethodGet, "/api/notifications/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notify.DefaultPreferences(), decode[notify.Preferences](t, rec))

	rec = f.do(t, userAda, http.MethodPut, "/api/notifications/preferences",
		`{"email":false,"push":true,"inApp":true,"frequency":"weekly","categories":["security"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, userAda, http.MethodGet, "/api/notifications/preferences", "")
	got := decode[notify.Preferences](t, rec)
	assert.True(t, got.Push)
	assert.Equal(t, notify.FrequencyWeekly, got.Frequency)
	assert.Equal(t, []notify.Category{notify.CategorySecurity}, got.Categories)

	rec = f.do(t, userAda, http.MethodPut, "/api/notifications/preferences", `{"frequency":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, userAda, http.MethodPut, "/api/notifications/preferences", `{"categories":["gossip"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendNotification(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, serviceCI, http.MethodPost, "/api/events/notifications",
		`{"recipientId":"u-ada","category":"system","title":"Maintenance","message":"Tonight"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[sendResponse](t, rec).Persisted)

	stored, err := f.notifications.List(context.Background(), notify.ListFilter{RecipientID: "u-ada"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, notify.PriorityMedium, stored[0].Priority)

	rec = f.do(t, serviceCI, http.MethodPost, "/api/events/notifications", `{"recipientId":"u-ada","category":"gossip","title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, userAda, http.MethodPost, "/api/events/notifications", `{"recipientId":"u-ada","category":"system","title":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendBulk(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, adminEve, http.MethodPost, "/api/events/notifications/bulk", `{"events":[
		{"recipientId":"u-1","category":"system","title":"a"},
		{"recipientId":"u-2","category":"system","title":"b"},
		{"recipientId":"","category":"system","title":"c"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notify.BulkResult{Success: 2, Failed: 1}, decode[notify.BulkResult](t, rec))
}

func TestDomainEvents(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, serviceCI, http.MethodPost, "/api/events/regulatory-updates", `{
		"update":{"id":"ru-1","title":"New AI Act guidance","summary":"s","priority":"critical"},
		"recipients":["u-1","u-2"],"tenantId":"t-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notify.BulkResult{Success: 2}, decode[notify.BulkResult](t, rec))

	rec = f.do(t, serviceCI, http.MethodPost, "/api/events/legal-cases", `{
		"case":{"id":"lc-1","title":"Smith v. Data Corp","impactLevel":"high"},
		"recipients":["u-1"],"tenantId":"t-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notify.BulkResult{Success: 1}, decode[notify.BulkResult](t, rec))

	rec = f.do(t, serviceCI, http.MethodPost, "/api/events/security-alerts", `{
		"alert":{"title":"Suspicious login","message":"New device","userId":"u-1"},"tenantId":"t-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[sendResponse](t, rec).Persisted)

	stored, err := f.notifications.List(context.Background(), notify.ListFilter{RecipientID: "u-1"})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, notify.PriorityUrgent, stored[0].Priority)

	for _, path := range []string{"/api/events/regulatory-updates", "/api/events/legal-cases"} {
		rec = f.do(t, serviceCI, http.MethodPost, path, `{"recipients":["u-1"]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	rec = f.do(t, serviceCI, http.MethodPost, "/api/events/security-alerts", `{"alert":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheAdmin(t *testing.T) {
	f := newFixture(t)
	f.cache.Set("a", 1, cache.WithTags("tenant:t-1"))
	f.cache.Set("b", 2, cache.WithTags("tenants"))
	f.cache.Set("c", 3)

	rec := f.do(t, adminEve, http.MethodGet, "/api/admin/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[cache.Stats](t, rec).Entries)

	rec = f.do(t, adminEve, http.MethodPost, "/api/admin/cache/invalidate", `{"tags":["tenant:t-1","tenants"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[invalidateResponse](t, rec).Removed)
	assert.Equal(t, 1, f.cache.Size())

	rec = f.do(t, adminEve, http.MethodPost, "/api/admin/cache/invalidate", `{"tags":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, userAda, http.MethodGet, "/api/admin/cache/stats", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOptionalRoutes(t *testing.T) {
	h := NewHandler(Deps{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthMiddleApplied(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), userAda)))
		})
	}
	h := NewHandler(Deps{Notifications: notify.NewMemoryStore()}, mw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", http.NoBody))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingStore struct {
	notify.Store
}

func (failingStore) CountUnread(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestStoreFailureIs500(t *testing.T) {
	h := NewHandler(Deps{Notifications: failingStore{Store: notify.NewMemoryStore()}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", http.NoBody)
	req = req.WithContext(auth.WithPrincipal(req.Context(), userAda))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/shopspring/decimal"
)

// --- Helpers ---

// asUser injects session claims the way RequireSession does.
func asUser(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.Claims{Username: "ayu", Role: role}
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
		})
	}
}

func mount(role, prefix string, register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	if role != "" {
		r.Use(asUser(role))
	}
	r.Route(prefix, register)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, want, rr.Body.String())
	}
}

// --- Mock remote ---

type mockRemote struct {
	settings       remote.Settings
	settingsErr    error
	menu           []remote.MenuItem
	saveSettingsFn func(ctx context.Context, s remote.Settings) (*remote.Settings, error)
	createMenuFn   func(ctx context.Context, in remote.MenuItemInput) (*remote.MenuItem, error)
	updateMenuFn   func(ctx context.Context, id remote.ID, in remote.MenuItemInput) (*remote.MenuItem, error)
	deleteMenuFn   func(ctx context.Context, id remote.ID) error
	pendingFn      func(ctx context.Context) (*remote.OrderList, error)
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		settings: remote.Settings{
			BusinessName:         "Warung Kiwari",
			BusinessType:         enum.BusinessTypeRestaurant,
			Currency:             "Rp",
			TaxPercentage:        decimal.NewFromInt(10),
			ServiceCharge:        decimal.NewFromInt(5),
			ServiceChargeEnabled: true,
			NumberOfTables:       4,
		},
		menu: []remote.MenuItem{
			{ID: "1", Name: "Nasi Goreng", Price: decimal.NewFromInt(10), Available: true},
			{ID: "2", Name: "Es Teh", Price: decimal.NewFromInt(5), Available: true},
		},
	}
}

func (m *mockRemote) Settings(ctx context.Context) (*remote.Settings, error) {
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockRemote) SaveSettings(ctx context.Context, s remote.Settings) (*remote.Settings, error) {
	return m.saveSettingsFn(ctx, s)
}

func (m *mockRemote) MenuItems(ctx context.Context) ([]remote.MenuItem, error) {
	return m.menu, nil
}

func (m *mockRemote) MenuItem(ctx context.Context, id remote.ID) (*remote.MenuItem, error) {
	for i := range m.menu {
		if m.menu[i].ID == id {
			return &m.menu[i], nil
		}
	}
	return nil, remote.ErrMenuItemNotFound
}

func (m *mockRemote) CreateMenuItem(ctx context.Context, in remote.MenuItemInput) (*remote.MenuItem, error) {
	return m.createMenuFn(ctx, in)
}

func (m *mockRemote) UpdateMenuItem(ctx context.Context, id remote.ID, in remote.MenuItemInput) (*remote.MenuItem, error) {
	return m.updateMenuFn(ctx, id, in)
}

func (m *mockRemote) DeleteMenuItem(ctx context.Context, id remote.ID) error {
	return m.deleteMenuFn(ctx, id)
}

func (m *mockRemote) PendingOrders(ctx context.Context) (*remote.OrderList, error) {
	return m.pendingFn(ctx)
}

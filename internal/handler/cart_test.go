package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/handler"
	"github.com/kiwari-pos/terminal/internal/remote"
	"go.uber.org/zap"
)

type mockSubmitter struct {
	submitFn func(ctx context.Context, username string) (*remote.Order, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, username string) (*remote.Order, error) {
	return m.submitFn(ctx, username)
}

func newCartRouter(c *cart.Cart, ref *mockRemote, sub *mockSubmitter, role string) http.Handler {
	h := handler.NewCartHandler(c, ref, sub, zap.NewNop())
	return mount(role, "/cart", h.RegisterRoutes)
}

func TestCart_AddLineNeedsTable(t *testing.T) {
	c := cart.New()
	router := newCartRouter(c, newMockRemote(), &mockSubmitter{}, enum.RoleStaff)

	rr := doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "1"})
	expectStatus(t, rr, http.StatusConflict)
	if resp := decodeResponse(t, rr); resp["code"] != "table_required" {
		t.Errorf("code: got %v", resp["code"])
	}
	if !c.Snapshot().IsEmpty() {
		t.Error("line added without a table")
	}
}

func TestCart_AddLineWithoutTablesForCafe(t *testing.T) {
	c := cart.New()
	ref := newMockRemote()
	ref.settings.BusinessType = enum.BusinessTypeCafe
	router := newCartRouter(c, ref, &mockSubmitter{}, enum.RoleStaff)

	rr := doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "2"})
	expectStatus(t, rr, http.StatusOK)
	if len(c.Snapshot().Lines) != 1 {
		t.Error("expected one line")
	}
}

func TestCart_PricedSnapshot(t *testing.T) {
	c := cart.New()
	router := newCartRouter(c, newMockRemote(), &mockSubmitter{}, enum.RoleStaff)

	expectStatus(t, doJSON(t, router, "PUT", "/cart/table", map[string]string{"tableNumber": "3"}), http.StatusOK)
	doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "1"})
	doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "1"})
	rr := doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "2"})
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	want := map[string]float64{"subtotal": 25, "tax": 2.5, "serviceCharge": 1.25, "total": 28.75}
	for k, v := range want {
		if resp[k] != v {
			t.Errorf("%s: got %v, want %v", k, resp[k], v)
		}
	}
	if resp["orderType"] != enum.OrderTypeSitIn {
		t.Errorf("orderType: got %v", resp["orderType"])
	}
	lines := resp["lines"].([]interface{})
	if len(lines) != 2 || lines[0].(map[string]interface{})["quantity"] != float64(2) {
		t.Errorf("lines: %v", lines)
	}
}

func TestCart_LineOperations(t *testing.T) {
	c := cart.New()
	router := newCartRouter(c, newMockRemote(), &mockSubmitter{}, enum.RoleStaff)
	doJSON(t, router, "PUT", "/cart/table", map[string]string{"tableNumber": "1"})
	doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "1"})

	expectStatus(t, doJSON(t, router, "POST", "/cart/lines/0/increase", nil), http.StatusOK)
	expectStatus(t, doJSON(t, router, "POST", "/cart/lines/0/decrease", nil), http.StatusOK)
	expectStatus(t, doJSON(t, router, "POST", "/cart/lines/0/decrease", nil), http.StatusOK)
	if q := c.Snapshot().Lines[0].Quantity; q != 1 {
		t.Errorf("quantity: got %d, want 1", q)
	}

	expectStatus(t, doJSON(t, router, "PUT", "/cart/lines/0/notes", map[string]string{"notes": "extra pedas"}), http.StatusOK)
	if n := c.Snapshot().Lines[0].Notes; n != "extra pedas" {
		t.Errorf("notes: got %q", n)
	}

	expectStatus(t, doJSON(t, router, "POST", "/cart/lines/5/increase", nil), http.StatusNotFound)
	expectStatus(t, doJSON(t, router, "POST", "/cart/lines/x/increase", nil), http.StatusBadRequest)

	expectStatus(t, doJSON(t, router, "DELETE", "/cart/lines/0", nil), http.StatusOK)
	if !c.Snapshot().IsEmpty() {
		t.Error("line not removed")
	}
}

func TestCart_UnknownMenuItem(t *testing.T) {
	c := cart.New()
	router := newCartRouter(c, newMockRemote(), &mockSubmitter{}, enum.RoleStaff)
	doJSON(t, router, "PUT", "/cart/table", map[string]string{"tableNumber": "1"})

	expectStatus(t, doJSON(t, router, "POST", "/cart/lines", map[string]string{"itemId": "99"}), http.StatusNotFound)
}

func TestCart_OpenResets(t *testing.T) {
	c := cart.New()
	c.SelectTable("2", "")
	c.AddLine(cart.MenuItem{ID: "1", Name: "Nasi Goreng"}, true)
	router := newCartRouter(c, newMockRemote(), &mockSubmitter{}, enum.RoleStaff)

	expectStatus(t, doJSON(t, router, "POST", "/cart/open", nil), http.StatusOK)
	if snap := c.Snapshot(); !snap.IsEmpty() || snap.TableNumber != "" {
		t.Errorf("cart not reset: %+v", snap)
	}
}

func TestCart_Submit(t *testing.T) {
	var gotUser string
	sub := &mockSubmitter{submitFn: func(ctx context.Context, username string) (*remote.Order, error) {
		gotUser = username
		return &remote.Order{ID: "10", ReceiptNumber: "123456"}, nil
	}}
	router := newCartRouter(cart.New(), newMockRemote(), sub, enum.RoleStaff)

	rr := doJSON(t, router, "POST", "/cart/submit", nil)
	expectStatus(t, rr, http.StatusCreated)
	if gotUser != "ayu" {
		t.Errorf("username: got %q", gotUser)
	}
	if resp := decodeResponse(t, rr); resp["receiptNumber"] != "123456" {
		t.Errorf("receiptNumber: got %v", resp["receiptNumber"])
	}
}

func TestCart_SubmitRemoteError(t *testing.T) {
	sub := &mockSubmitter{submitFn: func(ctx context.Context, username string) (*remote.Order, error) {
		return nil, &remote.Error{Method: "POST", Path: "/save-order", StatusCode: 422, Message: "menu item is out of stock"}
	}}
	router := newCartRouter(cart.New(), newMockRemote(), sub, enum.RoleStaff)

	rr := doJSON(t, router, "POST", "/cart/submit", nil)
	expectStatus(t, rr, http.StatusBadGateway)
	if resp := decodeResponse(t, rr); resp["error"] != "menu item is out of stock" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestCart_SubmitWithoutSession(t *testing.T) {
	sub := &mockSubmitter{submitFn: func(ctx context.Context, username string) (*remote.Order, error) {
		t.Fatal("submit should not be called")
		return nil, nil
	}}
	router := newCartRouter(cart.New(), newMockRemote(), sub, "")

	expectStatus(t, doJSON(t, router, "POST", "/cart/submit", nil), http.StatusUnauthorized)
}

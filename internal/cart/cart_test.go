package cart

import (
	"errors"
	"testing"

	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	nasiBakar = MenuItem{ID: "m-1", Name: "Nasi Bakar Ayam", Price: decimal.RequireFromString("25000")}
	esTeh     = MenuItem{ID: "m-2", Name: "Es Teh", Price: decimal.RequireFromString("5000")}
)

func TestAddLine_SameItemIncrementsQuantity(t *testing.T) {
	c := New()
	c.SelectTable("3", enum.OrderTypeSitIn)

	if err := c.AddLine(nasiBakar, true); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := c.AddLine(nasiBakar, true); err != nil {
		t.Fatalf("add line: %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(snap.Lines))
	}
	if snap.Lines[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", snap.Lines[0].Quantity)
	}
}

func TestAddLine_DistinctItemsAppend(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)
	c.AddLine(esTeh, false)

	snap := c.Snapshot()
	if len(snap.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snap.Lines))
	}
	if snap.Lines[1].ItemID != "m-2" || snap.Lines[1].Quantity != 1 {
		t.Errorf("second line: %+v", snap.Lines[1])
	}
	if !snap.Lines[1].UnitPrice.Equal(esTeh.Price) {
		t.Errorf("unit price: got %s", snap.Lines[1].UnitPrice)
	}
}

func TestAddLine_TableRequired(t *testing.T) {
	c := New()

	err := c.AddLine(nasiBakar, true)
	if !errors.Is(err, ErrTableRequired) {
		t.Fatalf("expected ErrTableRequired, got %v", err)
	}
	if !c.Snapshot().IsEmpty() {
		t.Fatal("line attached to a cart without a table")
	}
}

func TestAddLine_NoTableNeeded(t *testing.T) {
	c := New()
	if err := c.AddLine(nasiBakar, false); err != nil {
		t.Fatalf("add line without table: %v", err)
	}
}

func TestAddLine_MissingID(t *testing.T) {
	c := New()
	if err := c.AddLine(MenuItem{Name: "ghost"}, false); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestQuantityChanges(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)

	c.IncreaseQuantity(0)
	c.IncreaseQuantity(0)
	if q := c.Snapshot().Lines[0].Quantity; q != 3 {
		t.Fatalf("after increase: got %d, want 3", q)
	}

	for i := 0; i < 5; i++ {
		if err := c.DecreaseQuantity(0); err != nil {
			t.Fatalf("decrease: %v", err)
		}
	}
	if q := c.Snapshot().Lines[0].Quantity; q != 1 {
		t.Errorf("decrease must floor at 1, got %d", q)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)

	ops := map[string]func() error{
		"increase": func() error { return c.IncreaseQuantity(1) },
		"decrease": func() error { return c.DecreaseQuantity(-1) },
		"remove":   func() error { return c.RemoveLine(5) },
		"notes":    func() error { return c.SetNotes(2, "extra sambal") },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrLineNotFound) {
			t.Errorf("%s: expected ErrLineNotFound, got %v", name, err)
		}
	}
}

func TestRemoveLine(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)
	c.AddLine(esTeh, false)

	if err := c.RemoveLine(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Lines) != 1 || snap.Lines[0].ItemID != "m-2" {
		t.Errorf("unexpected lines after remove: %+v", snap.Lines)
	}
}

func TestReset(t *testing.T) {
	c := New()
	c.SelectTable("7", enum.OrderTypeSitIn)
	c.AddLine(nasiBakar, true)
	before := c.Snapshot().SessionID

	c.Reset()

	snap := c.Snapshot()
	if !snap.IsEmpty() || snap.TableNumber != "" || snap.OrderType != "" || snap.Editing != nil {
		t.Errorf("cart not cleared: %+v", snap)
	}
	if snap.SessionID == before {
		t.Error("reset should start a new cart session")
	}
}

func TestResetIfSession(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)
	old := c.Snapshot().SessionID

	c.Reset()
	c.AddLine(esTeh, false)

	if c.ResetIfSession(old) {
		t.Fatal("stale session id must not reset the current cart")
	}
	if c.Snapshot().IsEmpty() {
		t.Fatal("current cart was cleared")
	}
	if !c.ResetIfSession(c.Snapshot().SessionID) {
		t.Fatal("current session id should reset the cart")
	}
}

func TestSelectTable_InvalidOrderType(t *testing.T) {
	c := New()
	if err := c.SelectTable("1", "delivery"); !errors.Is(err, ErrInvalidOrderType) {
		t.Fatalf("expected ErrInvalidOrderType, got %v", err)
	}
}

func TestLoadForEdit(t *testing.T) {
	c := New()
	c.AddLine(esTeh, false)

	lines := []Line{{ItemID: "m-1", Name: "Nasi Bakar Ayam", UnitPrice: nasiBakar.Price, Quantity: 2}}
	c.LoadForEdit(EditTarget{OrderID: "o-1", ReceiptNumber: "482913", TableNumber: "4"}, enum.OrderTypeSitIn, lines)
	lines[0].Quantity = 99

	snap := c.Snapshot()
	if snap.Editing == nil || snap.Editing.OrderID != "o-1" {
		t.Fatalf("edit target not set: %+v", snap.Editing)
	}
	if snap.TableNumber != "4" || snap.OrderType != enum.OrderTypeSitIn {
		t.Errorf("table/type: %q/%q", snap.TableNumber, snap.OrderType)
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != 2 {
		t.Errorf("lines not copied: %+v", snap.Lines)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.AddLine(nasiBakar, false)

	snap := c.Snapshot()
	snap.Lines[0].Quantity = 50

	if q := c.Snapshot().Lines[0].Quantity; q != 1 {
		t.Errorf("snapshot mutation leaked into cart: quantity %d", q)
	}
}

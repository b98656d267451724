package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/receipt"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/split"
	"go.uber.org/zap"
)

// PrintMarker records an order's print flag on the service.
// Satisfied by *remote.Client.
type PrintMarker interface {
	MarkPrinted(ctx context.Context, orderID remote.ID, isPrinted bool) error
}

// PrintService prints receipts for pending orders.
//
// Printing runs Unprinted -> Printing -> Printed. The board shows the order
// as printed as soon as printing starts. If the receipt cannot be produced,
// or the service does not accept the print flag, the board goes back to
// what it showed before.
type PrintService struct {
	board    *Board
	marker   PrintMarker
	settings SettingsSource
	printer  receipt.Printer
	notify   Notifier
	log      *zap.Logger
	now      func() time.Time

	mu             sync.Mutex
	splitsInFlight map[remote.ID]struct{}
}

// NewPrintService creates a PrintService. notify may be nil.
func NewPrintService(board *Board, marker PrintMarker, settings SettingsSource, printer receipt.Printer, notify Notifier, log *zap.Logger) *PrintService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &PrintService{
		board:          board,
		marker:         marker,
		settings:       settings,
		printer:        printer,
		notify:         notify,
		log:            log,
		now:            time.Now,
		splitsInFlight: make(map[remote.ID]struct{}),
	}
}

// Print prints the receipt for a pending order and records it as printed.
//
// When the receipt is printed but the service rejects the print flag the
// returned error is a *PrintStatusError: the paper exists, the order is
// shown as unprinted again.
func (s *PrintService) Print(ctx context.Context, id remote.ID) (*remote.Order, error) {
	before, err := s.board.beginPrint(id)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		s.board.endPrint(id, before.IsPrinted)
		return nil, fmt.Errorf("load settings: %w", err)
	}

	doc := receipt.Render(before, *settings, s.now())
	if err := s.printer.Print(ctx, doc); err != nil {
		s.board.endPrint(id, before.IsPrinted)
		s.log.Error("print receipt", zap.String("order_id", id.String()), zap.Error(err))
		s.notify.Notify(enum.TopicNotifications, enum.EventPrintFailed, map[string]string{
			"orderId": id.String(),
			"message": err.Error(),
		})
		return nil, fmt.Errorf("print receipt: %w", err)
	}

	if err := s.marker.MarkPrinted(ctx, id, true); err != nil {
		s.board.endPrint(id, before.IsPrinted)
		statusErr := &PrintStatusError{OrderID: id.String(), Err: err}
		s.log.Error("print status not recorded",
			zap.String("order_id", id.String()),
			zap.String("receipt_number", before.ReceiptNumber),
			zap.Error(err),
		)
		s.notify.Notify(enum.TopicNotifications, enum.EventPrintStatusFailed, map[string]string{
			"orderId":       id.String(),
			"receiptNumber": before.ReceiptNumber,
			"message":       statusErr.Error(),
		})
		return nil, statusErr
	}

	s.board.endPrint(id, true)
	printed := before
	printed.IsPrinted = true

	s.log.Info("receipt printed",
		zap.String("order_id", id.String()),
		zap.String("receipt_number", before.ReceiptNumber),
	)
	s.notify.Notify(enum.TopicOrders, enum.EventOrderPrinted, printed)
	return &printed, nil
}

// SplitFor returns a split of the pending order's total carrying the given
// allocations.
func (s *PrintService) SplitFor(id remote.ID, allocations []split.Allocation) (split.Split, error) {
	order, ok := s.board.Get(id)
	if !ok {
		return split.Split{}, ErrOrderNotFound
	}
	return split.Split{Total: order.TotalAmount, Allocations: allocations}, nil
}

// PrintSplit prints a split receipt. The split must balance exactly; the
// order itself is not changed.
func (s *PrintService) PrintSplit(ctx context.Context, id remote.ID, allocations []split.Allocation) ([]split.Share, error) {
	sp, err := s.SplitFor(id, allocations)
	if err != nil {
		return nil, err
	}
	shares, err := sp.Confirm()
	if err != nil {
		return nil, err
	}

	if !s.acquireSplit(id) {
		return nil, ErrPrintInProgress
	}
	defer s.releaseSplit(id)

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	order, _ := s.board.Get(id)
	doc := receipt.RenderSplit(order, *settings, shares, s.now())
	if err := s.printer.Print(ctx, doc); err != nil {
		s.notify.Notify(enum.TopicNotifications, enum.EventPrintFailed, map[string]string{
			"orderId": id.String(),
			"message": err.Error(),
		})
		return nil, fmt.Errorf("print split receipt: %w", err)
	}

	s.log.Info("split receipt printed", zap.String("order_id", id.String()), zap.Int("payers", len(shares)))
	return shares, nil
}

func (s *PrintService) acquireSplit(id remote.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.splitsInFlight[id]; busy {
		return false
	}
	s.splitsInFlight[id] = struct{}{}
	return true
}

func (s *PrintService) releaseSplit(id remote.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.splitsInFlight, id)
}

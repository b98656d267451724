package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
	"go.uber.org/zap"
)

// maxPendingPages bounds PendingOrders against a service that never reports
// a last page.
const maxPendingPages = 50

// ListOrders fetches one page of GET /orders.
func (c *Client) ListOrders(ctx context.Context, p ListOrdersParams) (*OrderList, error) {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.TableNumber != "" {
		q.Set("tableNumber", p.TableNumber)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var list OrderList
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders", query: q}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// PendingOrders fetches every page of pending orders. The totals come from
// the first page.
func (c *Client) PendingOrders(ctx context.Context) (*OrderList, error) {
	first, err := c.ListOrders(ctx, ListOrdersParams{Status: enum.OrderStatusPending, Page: 1})
	if err != nil {
		return nil, err
	}

	all := *first
	for page := 2; page <= first.TotalPages && page <= maxPendingPages; page++ {
		next, err := c.ListOrders(ctx, ListOrdersParams{Status: enum.OrderStatusPending, Page: page})
		if err != nil {
			return nil, err
		}
		if len(next.Orders) == 0 {
			break
		}
		all.Orders = append(all.Orders, next.Orders...)
	}
	return &all, nil
}

// SaveOrder creates an order with POST /save-order. Each call carries a
// fresh Idempotency-Key.
func (c *Client) SaveOrder(ctx context.Context, body SaveOrderRequest) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/save-order",
		body:    body,
		headers: map[string]string{"Idempotency-Key": uuid.NewString()},
	}, &order)
	if err != nil {
		return nil, err
	}
	c.invalidateOverviews(ctx)
	return &order, nil
}

type updateOrderBody struct {
	OrderID   ID               `json:"orderId"`
	OrderData SaveOrderRequest `json:"orderData"`
}

// UpdateOrder replaces an order's body with PUT /update-order.
func (c *Client) UpdateOrder(ctx context.Context, orderID ID, data SaveOrderRequest) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/update-order",
		body:   updateOrderBody{OrderID: orderID, OrderData: data},
	}, &order)
	if err != nil {
		return nil, err
	}
	c.invalidateOverviews(ctx)
	return &order, nil
}

type closeOrderBody struct {
	OrderID ID     `json:"orderId"`
	Status  string `json:"status"`
}

// CloseOrder sets an order's status with PATCH /close-order.
func (c *Client) CloseOrder(ctx context.Context, orderID ID, status string) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/close-order",
		body:   closeOrderBody{OrderID: orderID, Status: status},
	}, &order)
	if err != nil {
		return nil, err
	}
	c.invalidateOverviews(ctx)
	return &order, nil
}

type printOrderBody struct {
	OrderID   ID   `json:"orderId"`
	IsPrinted bool `json:"isPrinted"`
}

// MarkPrinted records the order's print flag with PATCH /print-order.
func (c *Client) MarkPrinted(ctx context.Context, orderID ID, isPrinted bool) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/print-order",
		body:   printOrderBody{OrderID: orderID, IsPrinted: isPrinted},
	}, nil)
}

// invalidateOverviews drops cached aggregate overviews after an order
// write. The order already exists remotely, so a failure here is logged
// rather than reported as a failed write; the TTL bounds the staleness.
func (c *Client) invalidateOverviews(ctx context.Context) {
	if err := c.invalidate(ctx, enum.CacheKeyOverviews); err != nil {
		c.log.Warn("overviews may be stale until ttl", zap.Error(err))
	}
}

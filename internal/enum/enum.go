package enum

// ── Order lifecycle (values are the remote service's wire strings) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "Completed"
)

const (
	OrderTypeSitIn    = "sit-in"
	OrderTypeTakeaway = "takeaway"
)

// ── Print workflow ──

const (
	PrintStateUnprinted = "UNPRINTED"
	PrintStatePrinting  = "PRINTING"
	PrintStatePrinted   = "PRINTED"
)

// ── Business settings ──

const (
	BusinessTypeBar        = "bar"
	BusinessTypeRestaurant = "restaurant"
	BusinessTypeCafe       = "cafe"
	BusinessTypeRetail     = "retail"
)

// BusinessUsesTables reports whether orders for this business type are
// attached to a physical table.
func BusinessUsesTables(businessType string) bool {
	switch businessType {
	case BusinessTypeBar, BusinessTypeRestaurant:
		return true
	}
	return false
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	PaymentMethodCash     = "Cash"
	PaymentMethodCard     = "Card"
	PaymentMethodTransfer = "Transfer"
)

// ── Session cache keys ──

const (
	CacheKeySettings        = "businessSettings"
	CacheKeyMenuItems       = "menuItems"
	CacheKeyOverviews       = "overview:*"
	CacheKeyOccupancy       = "tableOccupancy"
	CacheKeyOccupancySeeded = "tableOccupancySeeded"
	CacheKeyAuthToken       = "authToken"
)

// ── Notification topics and event types ──

const (
	TopicOrders        = "orders"
	TopicNotifications = "notifications"
)

const (
	EventOrderSubmitted    = "order.submitted"
	EventOrderClosed       = "order.closed"
	EventOrderPrinted      = "order.printed"
	EventPrintFailed       = "print.failed"
	EventPrintStatusFailed = "print.status_failed"
)

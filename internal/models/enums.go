package models

// OrderStatus is the position of an order in its fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "Draft"
	OrderStatusSubmitted      OrderStatus = "Submitted"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusReadyForPickup OrderStatus = "ReadyForPickup"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusReceived       OrderStatus = "Received"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

var orderStatuses = map[OrderStatus]bool{
	OrderStatusDraft:          true,
	OrderStatusSubmitted:      true,
	OrderStatusPreparing:      true,
	OrderStatusReadyForPickup: true,
	OrderStatusDelivered:      true,
	OrderStatusReceived:       true,
	OrderStatusCancelled:      true,
}

func (s OrderStatus) Valid() bool { return orderStatuses[s] }

// PaymentStatus is tracked independently from OrderStatus.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
	PaymentStatusPaid   PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPaid
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodCash
}

// MovementType classifies an inventory ledger entry.
type MovementType string

const (
	MovementIn      MovementType = "IN"
	MovementOut     MovementType = "OUT"
	MovementAdjust  MovementType = "ADJUST"
	MovementRestock MovementType = "RESTOCK"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementRestock:
		return true
	}
	return false
}

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleWorker Role = "Worker"
	RoleClient Role = "Client"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker || r == RoleClient
}

// IsStaff reports whether the role may operate the back office.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleWorker
}

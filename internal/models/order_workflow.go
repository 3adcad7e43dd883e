package models

// OrderAction is a staff or client command that moves an order forward.
type OrderAction string

const (
	ActionStartPreparing     OrderAction = "StartPreparing"
	ActionMarkReadyForPickup OrderAction = "MarkReadyForPickup"
	ActionShip               OrderAction = "Ship"
	ActionMarkReceived       OrderAction = "MarkReceived"
	ActionCancel             OrderAction = "Cancel"
)

type transition struct {
	from []OrderStatus
	to   OrderStatus
	note string
}

var transitions = map[OrderAction]transition{
	ActionStartPreparing:     {from: []OrderStatus{OrderStatusSubmitted}, to: OrderStatusPreparing, note: "Preparing order."},
	ActionMarkReadyForPickup: {from: []OrderStatus{OrderStatusPreparing}, to: OrderStatusReadyForPickup, note: "Ready for pickup."},
	ActionShip:               {from: []OrderStatus{OrderStatusReadyForPickup}, to: OrderStatusDelivered, note: "Shipped."},
	ActionMarkReceived:       {from: []OrderStatus{OrderStatusDelivered}, to: OrderStatusReceived, note: "Received."},
	// Draft orders never carry stock movements, so only committed states cancel.
	ActionCancel: {
		from: []OrderStatus{OrderStatusSubmitted, OrderStatusPreparing, OrderStatusReadyForPickup},
		to:   OrderStatusCancelled,
		note: "Cancelled.",
	},
}

func (a OrderAction) Valid() bool {
	_, ok := transitions[a]
	return ok
}

// Target returns the status the action leads to.
func (a OrderAction) Target() OrderStatus { return transitions[a].to }

// DefaultNote is the history note recorded when the caller gives none.
func (a OrderAction) DefaultNote() string { return transitions[a].note }

// Next returns the status the order would move to under action and whether
// the move is allowed from the order's current state. A disallowed move is
// not an error: callers treat it as a no-op.
func (o *Order) Next(action OrderAction) (OrderStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return o.Status, false
	}
	allowed := false
	for _, from := range t.from {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return o.Status, false
	}
	if action == ActionStartPreparing && o.PaymentStatus != PaymentStatusPaid {
		return o.Status, false
	}
	return t.to, true
}

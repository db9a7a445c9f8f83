package domain

import "strconv"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var statuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func Statuses() []OrderStatus {
	out := make([]OrderStatus, len(statuses))
	copy(out, statuses)
	return out
}

func ParseStatus(s string) (OrderStatus, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", invalid("status", "unrecognized value "+strconv.Quote(s))
}

// StatusPolicy decides whether an order may move from one status to another.
// Both statuses are already known to be valid when it is called.
type StatusPolicy interface {
	Allow(from, to OrderStatus) error
}

// PermissivePolicy accepts any recognized status at any time.
type PermissivePolicy struct{}

func (PermissivePolicy) Allow(from, to OrderStatus) error { return nil }

// StrictTransitions only accepts the edges of the order lifecycle.
// Setting the current status again is always allowed.
type StrictTransitions struct{}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

func (StrictTransitions) Allow(from, to OrderStatus) error {
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return invalid("status", "cannot move from "+string(from)+" to "+string(to))
}

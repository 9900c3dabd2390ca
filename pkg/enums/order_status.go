package enums

import "fmt"

// OrderStatus tracks an order between creation and payment confirmation.
type OrderStatus string

const (
	// OrderStatusPending is the state at creation, before the payment
	// provider confirms or abandons the checkout session.
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	// OrderStatusCanceled marks orders whose session creation failed or
	// whose checkout session expired unpaid.
	OrderStatusCanceled OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts a raw string into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

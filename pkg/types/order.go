package types

// OrderStatus is the closed status set all venue statuses normalize into
// at the adapter boundary.
type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusPartial          OrderStatus = "partial"
	StatusFilled           OrderStatus = "filled"
	StatusCancelled        OrderStatus = "cancelled"
	StatusCancelInProgress OrderStatus = "cancel_in_progress"
	StatusUnknown          OrderStatus = "unknown"
)

// Cancellish reports whether the status counts as cancelled for
// reconciliation purposes. cancel_in_progress is included so repeated
// cancel requests are not issued while the venue is still unwinding.
func (s OrderStatus) Cancellish() bool {
	return s == StatusCancelled || s == StatusCancelInProgress
}

// Trade is a fill record from the Opinion trade tape.
type Trade struct {
	TradeID   string
	OrderID   string
	Price     float64
	Shares    float64
	USDAmount float64 // raw 18-decimal fixed point when Shares is absent
	Status    OrderStatus
}

package order

type Status string

const (
	// StatusPending covers both "awaiting payment" and "paid, awaiting fulfillment".
	// The payment record tells the two apart.
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal states are never re-entered or left.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next.
// Re-writing pending onto a pending order is allowed and has no effect.
func (s Status) CanTransition(next Status) bool {
	if s != StatusPending {
		return false
	}
	return next.Valid()
}

package payment

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// CanTransition reports whether a payment may move from s to next.
// Writing the current terminal value again is allowed so that the confirm call and
// the webhook can both apply the same outcome. failed -> completed is only valid when
// the gateway reports success for the same intent.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusCompleted || next == StatusFailed
	case StatusCompleted:
		return next == StatusCompleted || next == StatusRefunded
	case StatusFailed:
		return next == StatusFailed || next == StatusCompleted
	case StatusRefunded:
		return next == StatusRefunded
	}
	return false
}

type Method string

const (
	MethodCOD       Method = "cod"
	MethodStripe    Method = "stripe"
	MethodCard      Method = "card"
	MethodApplePay  Method = "apple_pay"
	MethodGooglePay Method = "google_pay"
	MethodACH       Method = "ach"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCOD, MethodStripe, MethodCard, MethodApplePay, MethodGooglePay, MethodACH:
		return true
	}
	return false
}

// UsesGateway is true for every method settled through the payment gateway.
func (m Method) UsesGateway() bool {
	return m.Valid() && m != MethodCOD
}

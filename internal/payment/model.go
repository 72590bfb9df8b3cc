package payment

import "time"

type Payment struct {
	ID              string    `json:"paymentId"`
	UserID          string    `json:"userId"`
	OrderID         string    `json:"orderId"`
	Method          Method    `json:"paymentMethod"`
	TotalAmount     float64   `json:"totalAmount"`
	Status          Status    `json:"paymentStatus"`
	GatewayIntentID *string   `json:"gatewayIntentId"`
	GatewayChargeID *string   `json:"gatewayChargeId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IntentID returns the stored gateway intent id or "".
func (p *Payment) IntentID() string {
	if p.GatewayIntentID == nil {
		return ""
	}
	return *p.GatewayIntentID
}

// ChargeID returns the stored gateway charge id or "".
func (p *Payment) ChargeID() string {
	if p.GatewayChargeID == nil {
		return ""
	}
	return *p.GatewayChargeID
}

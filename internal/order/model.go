package order

import "time"

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID              string    `json:"orderId"`
	UserID          string    `json:"userId"`
	Products        []Item    `json:"products"`
	ShippingAddress string    `json:"shippingAddress"`
	PhoneNumber     string    `json:"phoneNumber"`
	TotalAmount     float64   `json:"totalAmount"`
	PaymentMethod   string    `json:"paymentMethod"`
	Status          Status    `json:"orderStatus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProductIDs returns the distinct product ids of the order lines.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Products))
	ids := make([]string, 0, len(o.Products))
	for _, it := range o.Products {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

package domain

type PaymentState string

const (
	PaymentPending  PaymentState = "Pendiente"
	PaymentApproved PaymentState = "Aprobado"
	PaymentRejected PaymentState = "Rechazado"
)

func (s PaymentState) Valid() bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPreparing OrderStatus = "En preparación"
	OrderStatusShipped   OrderStatus = "Enviado"
	OrderStatusInTransit OrderStatus = "En camino"
	OrderStatusReceived  OrderStatus = "Recibido"
	OrderStatusCancelled OrderStatus = "Cancelado"
	OrderStatusDelivered OrderStatus = "Entregado"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPreparing, OrderStatusShipped, OrderStatusInTransit,
		OrderStatusReceived, OrderStatusCancelled, OrderStatusDelivered:
		return true
	}
	return false
}

type Courier string

const (
	CourierPickup   Courier = "retiro en tienda"
	CourierShipping Courier = "envio"
)

const TrackingPending = "PENDIENTE"

// OrderItem keeps the product name rather than its id so the order survives catalog edits.
type OrderItem struct {
	Name               string  `json:"name"`
	Quantity           int     `json:"quantity"`
	SubTotal           int64   `json:"subTotal"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Total              int64   `json:"total"`
}

// Order is written once at checkout. Only Status and PaymentState change afterwards.
type Order struct {
	ID             string       `json:"id"`
	RUTCliente     string       `json:"rutCliente"`
	Date           string       `json:"date"`
	Items          []OrderItem  `json:"items"`
	Total          int64        `json:"total"`
	PaymentID      string       `json:"paymentId"`
	PaymentMethod  string       `json:"paymentMethod"`
	PaymentState   PaymentState `json:"statePago"`
	Courier        Courier      `json:"Courier"`
	AddressDetail  string       `json:"addressDetail,omitempty"`
	Region         string       `json:"region,omitempty"`
	Commune        string       `json:"commune,omitempty"`
	BranchOffice   string       `json:"branchOffice,omitempty"`
	Tracking       string       `json:"Tracking"`
	Status         OrderStatus  `json:"statePedido"`
	GlobalSubtotal int64        `json:"globalSubtotal"`
	GlobalDiscount int64        `json:"globalDiscount"`
	FinalTotal     int64        `json:"finalTotal"`
	Version        int64        `json:"version"`
}

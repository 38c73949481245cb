package domain

import "time"

type OrderCreatedEvent struct {
	OrderID    string      `json:"order_id"`
	RUTCliente string      `json:"rut_cliente"`
	Email      string      `json:"email,omitempty"`
	Items      []OrderItem `json:"items"`
	FinalTotal int64       `json:"final_total"`
	Courier    Courier     `json:"courier"`
	Timestamp  time.Time   `json:"timestamp"`
}

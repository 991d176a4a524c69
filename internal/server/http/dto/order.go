package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItemRequest is one checkout line.
type CartItemRequest struct {
	MaterialID string `json:"material_id"`
	SupplierID string `json:"supplier_id"`
	Quantity   int64  `json:"quantity"`
}

// CheckoutRequest describes the cart payload.
type CheckoutRequest struct {
	Items []CartItemRequest `json:"items"`
}

// TransitionRequest carries the optional note; reason is accepted as an alias.
type TransitionRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// StatusEntryResponse describes one history record.
type StatusEntryResponse struct {
	Status    string    `json:"status"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// OrderResponse describes an order.
type OrderResponse struct {
	ID          string                `json:"id"`
	VendorID    string                `json:"vendor_id"`
	SupplierID  string                `json:"supplier_id"`
	MaterialID  string                `json:"material_id"`
	Quantity    int64                 `json:"quantity"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	Status      string                `json:"status"`
	Version     int64                 `json:"version"`
	History     []StatusEntryResponse `json:"history"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// FailureResponse explains a rejected cart line.
type FailureResponse struct {
	MaterialID string `json:"material_id"`
	SupplierID string `json:"supplier_id"`
	Requested  int64  `json:"requested"`
	Available  int64  `json:"available"`
	Reason     string `json:"reason"`
}

// CheckoutResponse lists the placed orders.
type CheckoutResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Failures []FailureResponse `json:"failures,omitempty"`
}

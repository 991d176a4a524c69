package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes a fulfillment lifecycle stage.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusAccepted       OrderStatus = "accepted"
	OrderStatusRejected       OrderStatus = "rejected"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusExpired        OrderStatus = "expired"
)

// Valid reports whether the status is part of the lifecycle.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected, OrderStatusPreparing,
		OrderStatusPacked, OrderStatusInTransit, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// ReleasesStock reports whether reaching the status returns reserved stock.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusRejected || s == OrderStatusCancelled || s == OrderStatusExpired
}

// StatusEntry is one append-only record of an order's status history.
type StatusEntry struct {
	Status    OrderStatus
	ActorID   string
	ActorRole Role
	Note      string
	At        time.Time
}

// Order describes a vendor purchase of a single material from a single supplier.
type Order struct {
	ID                string
	VendorID          string
	SupplierID        string
	MaterialID        string
	ReservationID     string
	Quantity          int64
	UnitPriceSnapshot decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	History           []StatusEntry
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// Clone returns a copy that shares no history backing array with the receiver.
func (o Order) Clone() Order {
	o.History = append([]StatusEntry(nil), o.History...)
	return o
}

// Token rebuilds the reservation handle bound to the order.
func (o Order) Token() ReservationToken {
	return ReservationToken{
		ID:         o.ReservationID,
		MaterialID: o.MaterialID,
		Quantity:   o.Quantity,
		UnitPrice:  o.UnitPriceSnapshot,
	}
}

// StatusChange is emitted after every persisted transition.
type StatusChange struct {
	OrderID  string
	Previous OrderStatus
	Current  OrderStatus
}

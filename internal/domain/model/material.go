package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is the stock record of a supplier's material.
type Material struct {
	ID                string
	SupplierID        string
	Name              string
	PricePerUnit      decimal.Decimal
	AvailableQuantity int64
	ReservedQuantity  int64
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReservationStatus tracks settlement of a reservation.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation records quantity held against a material until it is committed or released.
type Reservation struct {
	ID         string
	MaterialID string
	SupplierID string
	Quantity   int64
	UnitPrice  decimal.Decimal
	Status     ReservationStatus
	CreatedAt  time.Time
	SettledAt  *time.Time
}

// Token returns the handle handed to callers of Reserve.
func (r Reservation) Token() ReservationToken {
	return ReservationToken{ID: r.ID, MaterialID: r.MaterialID, Quantity: r.Quantity, UnitPrice: r.UnitPrice}
}

// ReservationToken binds a reserved quantity of one material.
type ReservationToken struct {
	ID         string
	MaterialID string
	Quantity   int64
	UnitPrice  decimal.Decimal
}

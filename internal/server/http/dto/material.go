package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialRequest registers a material.
type MaterialRequest struct {
	Name         string          `json:"name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     int64           `json:"quantity"`
}

// RestockRequest adds stock.
type RestockRequest struct {
	Quantity int64 `json:"quantity"`
}

// PriceRequest sets the unit price.
type PriceRequest struct {
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// MaterialResponse describes a stock record.
type MaterialResponse struct {
	ID                string          `json:"id"`
	SupplierID        string          `json:"supplier_id"`
	Name              string          `json:"name"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	AvailableQuantity int64           `json:"available_quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	Version           int64           `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

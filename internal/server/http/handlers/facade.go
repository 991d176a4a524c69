package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	Checkout(ctx context.Context, vendorID string, items []model.CartItem) (*model.CheckoutResult, error)
	Transition(ctx context.Context, actor model.Actor, orderID string, target model.OrderStatus, note string) (*model.Order, error)
	Order(ctx context.Context, actor model.Actor, orderID string) (*model.Order, error)
	Orders(ctx context.Context, actor model.Actor, status model.OrderStatus) ([]model.Order, error)
}

// MaterialFacade provides stock operations.
type MaterialFacade interface {
	RegisterMaterial(ctx context.Context, actor model.Actor, name string, price decimal.Decimal, quantity int64) (*model.Material, error)
	Material(ctx context.Context, materialID string) (*model.Material, error)
	Materials(ctx context.Context, supplierID string) ([]model.Material, error)
	Restock(ctx context.Context, actor model.Actor, materialID string, quantity int64) (*model.Material, error)
	Reprice(ctx context.Context, actor model.Actor, materialID string, price decimal.Decimal) (*model.Material, error)
}

// HealthFacade reports storage health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// FulfillmentFacade aggregates the full set of operations used across handlers.
type FulfillmentFacade interface {
	OrderFacade
	MaterialFacade
	HealthFacade
	ParseToken(token string) (model.Actor, error)
}

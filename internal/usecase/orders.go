package usecase

import (
	"context"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// OrderQueryUseCase serves order reads to the parties of an order.
type OrderQueryUseCase struct {
	orders repository.OrderRepository
	cache  OrderCache
	logger *slog.Logger
}

// NewOrderQueryUseCase constructs OrderQueryUseCase.
func NewOrderQueryUseCase(orders repository.OrderRepository, cache OrderCache, logger *slog.Logger) *OrderQueryUseCase {
	return &OrderQueryUseCase{orders: orders, cache: cache, logger: logger}
}

// Get returns the order if actor is its vendor or supplier. Reads go through
// the cache; a failing cache falls back to the repository.
func (u *OrderQueryUseCase) Get(ctx context.Context, actor model.Actor, orderID string) (*model.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domainErrors.Validation("order id is required")
	}

	order, hit, err := u.cache.Get(ctx, orderID)
	if err != nil {
		u.logger.WarnContext(ctx, "order cache read failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
	}
	if !hit {
		if order, err = u.orders.Get(ctx, orderID); err != nil {
			return nil, domainErrors.Persistence("get order", err)
		}
		if err := u.cache.Set(ctx, order); err != nil {
			u.logger.WarnContext(ctx, "order cache write failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
		}
	}

	if actor.Role == model.RoleSystem || !isParty(actor, order) {
		return nil, domainErrors.ErrForbidden
	}
	return order, nil
}

// List returns the actor's orders, newest first, optionally narrowed to one
// status.
func (u *OrderQueryUseCase) List(ctx context.Context, actor model.Actor, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, domainErrors.Validation("unknown status %q", status)
	}

	var (
		orders []model.Order
		err    error
	)
	switch actor.Role {
	case model.RoleVendor:
		orders, err = u.orders.ListByVendor(ctx, actor.ID)
	case model.RoleSupplier:
		orders, err = u.orders.ListBySupplier(ctx, actor.ID)
	default:
		return nil, domainErrors.ErrForbidden
	}
	if err != nil {
		return nil, domainErrors.Persistence("list orders", err)
	}

	if status == "" {
		return orders, nil
	}
	filtered := orders[:0]
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

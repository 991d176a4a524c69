package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

const (
	reasonInvalidLine       = "invalid line"
	reasonUnknownMaterial   = "material not found"
	reasonSupplierMismatch  = "material belongs to another supplier"
	reasonInsufficientStock = "insufficient stock"
)

// CheckoutOrchestrator turns a multi-supplier cart into one pending order per
// material, reserving all stock or none.
type CheckoutOrchestrator struct {
	materials repository.MaterialRepository
	orders    repository.OrderRepository
	ledger    StockLedger
	now       func() time.Time
	logger    *slog.Logger
}

// NewCheckoutOrchestrator constructs CheckoutOrchestrator.
func NewCheckoutOrchestrator(materials repository.MaterialRepository, orders repository.OrderRepository, ledger StockLedger, logger *slog.Logger) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		materials: materials,
		orders:    orders,
		ledger:    ledger,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

type checkoutLine struct {
	supplierID string
	materialID string
	quantity   int64
}

// Checkout places the cart. Every failure leaves stock and orders exactly as
// they were; the returned result then carries per-line failures when there
// are any to report.
func (c *CheckoutOrchestrator) Checkout(ctx context.Context, vendorID string, items []model.CartItem) (result *model.CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutOrchestrator.Checkout", trace.WithAttributes(
		attribute.String("vendor.id", vendorID),
		attribute.Int("cart.items", len(items)),
	))
	defer func() { endSpan(span, err) }()

	lines, failures, err := normalizeCart(vendorID, items)
	if err != nil {
		return &model.CheckoutResult{Failures: failures}, err
	}

	if failures, err := c.verify(ctx, lines); err != nil {
		return &model.CheckoutResult{Failures: failures}, err
	}

	tokens := make([]model.ReservationToken, 0, len(lines))
	for i, line := range lines {
		token, err := c.ledger.Reserve(ctx, line.materialID, line.quantity)
		if err != nil {
			c.compensate(ctx, tokens)
			if errors.Is(err, domainErrors.ErrInsufficientStock) {
				return c.shortage(ctx, lines[i:])
			}
			return nil, err
		}
		tokens = append(tokens, token)
	}

	now := c.now()
	orders := make([]*model.Order, len(lines))
	for i, line := range lines {
		token := tokens[i]
		orders[i] = &model.Order{
			ID:                uuid.NewString(),
			VendorID:          vendorID,
			SupplierID:        line.supplierID,
			MaterialID:        line.materialID,
			ReservationID:     token.ID,
			Quantity:          token.Quantity,
			UnitPriceSnapshot: token.UnitPrice,
			TotalAmount:       token.UnitPrice.Mul(decimal.NewFromInt(token.Quantity)),
			Status:            model.OrderStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
			Version:           1,
			History: []model.StatusEntry{{
				Status:    model.OrderStatusPending,
				ActorID:   vendorID,
				ActorRole: model.RoleVendor,
				At:        now,
			}},
		}
	}

	if err := c.orders.CreateBatch(ctx, orders); err != nil {
		c.compensate(ctx, tokens)
		return nil, &domainErrors.PersistenceError{Op: "create orders", Err: err}
	}

	result = &model.CheckoutResult{Orders: make([]model.Order, len(orders))}
	for i, o := range orders {
		result.Orders[i] = *o
	}
	c.logger.InfoContext(ctx, "checkout placed",
		slog.String("vendor_id", vendorID),
		slog.Int("orders", len(orders)),
	)
	return result, nil
}

// normalizeCart validates the cart, merges repeated (supplier, material) lines
// and orders them by material so concurrent checkouts lock stock in the same
// sequence.
func normalizeCart(vendorID string, items []model.CartItem) ([]checkoutLine, []model.CheckoutFailure, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, nil, domainErrors.Validation("vendor id is required")
	}
	if len(items) == 0 {
		return nil, nil, domainErrors.Validation("cart is empty")
	}

	var failures []model.CheckoutFailure
	merged := make(map[[2]string]int64, len(items))
	for _, item := range items {
		var problem string
		switch {
		case strings.TrimSpace(item.MaterialID) == "":
			problem = "material id is required"
		case strings.TrimSpace(item.SupplierID) == "":
			problem = "supplier id is required"
		case item.Quantity <= 0:
			problem = "quantity must be positive"
		case item.VendorID != "" && item.VendorID != vendorID:
			problem = "line belongs to another vendor"
		}
		if problem != "" {
			failures = append(failures, model.CheckoutFailure{
				MaterialID: item.MaterialID,
				SupplierID: item.SupplierID,
				Requested:  item.Quantity,
				Reason:     reasonInvalidLine + ": " + problem,
			})
			continue
		}
		merged[[2]string{item.SupplierID, item.MaterialID}] += item.Quantity
	}
	if len(failures) > 0 {
		return nil, failures, domainErrors.Validation("%d invalid cart line(s)", len(failures))
	}

	lines := make([]checkoutLine, 0, len(merged))
	for key, qty := range merged {
		lines = append(lines, checkoutLine{supplierID: key[0], materialID: key[1], quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].materialID != lines[j].materialID {
			return lines[i].materialID < lines[j].materialID
		}
		return lines[i].supplierID < lines[j].supplierID
	})
	return lines, nil, nil
}

func (c *CheckoutOrchestrator) verify(ctx context.Context, lines []checkoutLine) ([]model.CheckoutFailure, error) {
	for _, line := range lines {
		material, err := c.materials.Get(ctx, line.materialID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return []model.CheckoutFailure{line.failure(0, reasonUnknownMaterial)},
					fmt.Errorf("material %s: %w", line.materialID, domainErrors.ErrNotFound)
			}
			return nil, domainErrors.Persistence("get material", err)
		}
		if material.SupplierID != line.supplierID {
			return []model.CheckoutFailure{line.failure(0, reasonSupplierMismatch)},
				domainErrors.Validation("material %s is not sold by supplier %s", line.materialID, line.supplierID)
		}
	}
	return nil, nil
}

// shortage reports the line that ran out together with every later line that
// would run out too, judged from a read-only look at current stock.
func (c *CheckoutOrchestrator) shortage(ctx context.Context, lines []checkoutLine) (*model.CheckoutResult, error) {
	stockErr := &domainErrors.InsufficientStockError{}
	result := &model.CheckoutResult{}
	for i, line := range lines {
		material, err := c.materials.Get(ctx, line.materialID)
		if err != nil {
			if i == 0 {
				stockErr.MaterialIDs = append(stockErr.MaterialIDs, line.materialID)
				result.Failures = append(result.Failures, line.failure(0, reasonInsufficientStock))
			}
			continue
		}
		if i == 0 || material.AvailableQuantity < line.quantity {
			stockErr.MaterialIDs = append(stockErr.MaterialIDs, line.materialID)
			result.Failures = append(result.Failures, line.failure(material.AvailableQuantity, reasonInsufficientStock))
		}
	}
	return result, stockErr
}

// compensate releases reservations on a context detached from the request.
// A release that fails stays reserved until the reconciler settles it.
func (c *CheckoutOrchestrator) compensate(ctx context.Context, tokens []model.ReservationToken) {
	detached := context.WithoutCancel(ctx)
	for _, token := range tokens {
		if err := c.ledger.Release(detached, token); err != nil {
			c.logger.ErrorContext(ctx, "checkout compensation failed",
				slog.String("reservation_id", token.ID),
				slog.String("material_id", token.MaterialID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (l checkoutLine) failure(available int64, reason string) model.CheckoutFailure {
	return model.CheckoutFailure{
		MaterialID: l.materialID,
		SupplierID: l.supplierID,
		Requested:  l.quantity,
		Available:  available,
		Reason:     reason,
	}
}

package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	newInventoryLedger,
	func(l *InventoryLedger) StockLedger { return l },
	NewOrderStateMachine,
	NewCheckoutOrchestrator,
	NewOrderQueryUseCase,
	newReconciler,
)

type ledgerParams struct {
	fx.In

	Materials    repository.MaterialRepository
	Reservations repository.ReservationRepository
	Config       *config.Config
	Logger       *slog.Logger
}

func newInventoryLedger(p ledgerParams) *InventoryLedger {
	return NewInventoryLedger(p.Materials, p.Reservations, p.Config.ReserveRetries, p.Logger)
}

type reconcilerParams struct {
	fx.In

	Reservations repository.ReservationRepository
	Orders       repository.OrderRepository
	Ledger       StockLedger
	Config       *config.Config
	Logger       *slog.Logger
}

func newReconciler(p reconcilerParams) *Reconciler {
	return NewReconciler(p.Reservations, p.Orders, p.Ledger, p.Config.ReconcileGrace, p.Logger)
}

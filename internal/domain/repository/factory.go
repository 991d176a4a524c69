package repository

import "context"

// Factory describes access to different domain repositories.
type Factory interface {
	Materials() MaterialRepository
	Reservations() ReservationRepository
	Orders() OrderRepository
	HealthCheck(ctx context.Context) error
	Close()
}

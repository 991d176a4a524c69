package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/server/http/dto"
	"github.com/polkiloo/fulfillment/internal/server/http/middleware"
)

// CurrentActor extracts the authenticated actor from context.
func CurrentActor(c *gin.Context) model.Actor {
	val, ok := c.Get(middleware.ActorContextKey)
	if !ok {
		return model.Actor{}
	}
	actor, _ := val.(model.Actor)
	return actor
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInsufficientStock), errors.Is(err, domainErrors.ErrConflict), errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrUnauthorizedTransition), errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, failures []model.CheckoutFailure) {
	status := statusFor(err)
	body := dto.ErrorResponse{Error: err.Error(), Failures: toFailureResponses(failures)}
	// Storage details stay out of responses.
	if status == http.StatusInternalServerError {
		body.Error = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: message})
}

func toFailureResponses(failures []model.CheckoutFailure) []dto.FailureResponse {
	if len(failures) == 0 {
		return nil
	}
	resp := make([]dto.FailureResponse, 0, len(failures))
	for _, f := range failures {
		resp = append(resp, dto.FailureResponse{
			MaterialID: f.MaterialID,
			SupplierID: f.SupplierID,
			Requested:  f.Requested,
			Available:  f.Available,
			Reason:     f.Reason,
		})
	}
	return resp
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	history := make([]dto.StatusEntryResponse, 0, len(order.History))
	for _, h := range order.History {
		history = append(history, dto.StatusEntryResponse{
			Status:    string(h.Status),
			ActorID:   h.ActorID,
			ActorRole: string(h.ActorRole),
			Note:      h.Note,
			At:        h.At,
		})
	}
	return dto.OrderResponse{
		ID:          order.ID,
		VendorID:    order.VendorID,
		SupplierID:  order.SupplierID,
		MaterialID:  order.MaterialID,
		Quantity:    order.Quantity,
		UnitPrice:   order.UnitPriceSnapshot,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		Version:     order.Version,
		History:     history,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func toMaterialResponse(m model.Material) dto.MaterialResponse {
	return dto.MaterialResponse{
		ID:                m.ID,
		SupplierID:        m.SupplierID,
		Name:              m.Name,
		PricePerUnit:      m.PricePerUnit,
		AvailableQuantity: m.AvailableQuantity,
		ReservedQuantity:  m.ReservedQuantity,
		Version:           m.Version,
		UpdatedAt:         m.UpdatedAt,
	}
}

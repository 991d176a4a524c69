package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/server/http/dto"
)

// TransitionActions maps route actions onto target statuses.
var TransitionActions = map[string]model.OrderStatus{
	"accept":           model.OrderStatusAccepted,
	"reject":           model.OrderStatusRejected,
	"prepare":          model.OrderStatusPreparing,
	"pack":             model.OrderStatusPacked,
	"transit":          model.OrderStatusInTransit,
	"out-for-delivery": model.OrderStatusOutForDelivery,
	"deliver":          model.OrderStatusDelivered,
	"cancel":           model.OrderStatusCancelled,
}

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Checkout handles POST /api/checkout.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed checkout request")
		return
	}

	actor := CurrentActor(c)
	items := make([]model.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.CartItem{
			VendorID:   actor.ID,
			MaterialID: item.MaterialID,
			SupplierID: item.SupplierID,
			Quantity:   item.Quantity,
		})
	}

	result, err := h.facade.Checkout(c.Request.Context(), actor.ID, items)
	if err != nil {
		var failures []model.CheckoutFailure
		if result != nil {
			failures = result.Failures
		}
		respondError(c, err, failures)
		return
	}

	resp := dto.CheckoutResponse{Orders: make([]dto.OrderResponse, 0, len(result.Orders))}
	for _, o := range result.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	c.JSON(http.StatusCreated, resp)
}

// Transition returns the handler of POST /api/orders/:id/{action}.
func (h *OrderHandler) Transition(target model.OrderStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "malformed transition request")
			return
		}
		note := req.Note
		if note == "" {
			note = req.Reason
		}

		order, err := h.facade.Transition(c.Request.Context(), CurrentActor(c), c.Param("id"), target, note)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(*order))
	}
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.facade.Order(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.facade.Orders(c.Request.Context(), CurrentActor(c), model.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

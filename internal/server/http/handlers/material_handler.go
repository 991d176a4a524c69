package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillment/internal/server/http/dto"
)

// MaterialHandler manages supplier stock endpoints.
type MaterialHandler struct {
	facade MaterialFacade
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(facade MaterialFacade) *MaterialHandler {
	return &MaterialHandler{facade: facade}
}

// Register handles POST /api/materials.
func (h *MaterialHandler) Register(c *gin.Context) {
	var req dto.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed material request")
		return
	}
	material, err := h.facade.RegisterMaterial(c.Request.Context(), CurrentActor(c), req.Name, req.PricePerUnit, req.Quantity)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, toMaterialResponse(*material))
}

// List handles GET /api/materials.
func (h *MaterialHandler) List(c *gin.Context) {
	materials, err := h.facade.Materials(c.Request.Context(), CurrentActor(c).ID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	resp := make([]dto.MaterialResponse, 0, len(materials))
	for _, m := range materials {
		resp = append(resp, toMaterialResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/materials/:id.
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.facade.Material(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(*material))
}

// Restock handles POST /api/materials/:id/restock.
func (h *MaterialHandler) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed restock request")
		return
	}
	material, err := h.facade.Restock(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(*material))
}

// Reprice handles PUT /api/materials/:id/price.
func (h *MaterialHandler) Reprice(c *gin.Context) {
	var req dto.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed price request")
		return
	}
	material, err := h.facade.Reprice(c.Request.Context(), CurrentActor(c), c.Param("id"), req.PricePerUnit)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(*material))
}

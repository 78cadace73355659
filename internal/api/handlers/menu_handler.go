package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/api/middleware"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// MenuHandler handles the JSON menu API
type MenuHandler struct {
	catalog *services.CatalogService
	tracer  tracing.Tracer
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(catalog *services.CatalogService, tracer tracing.Tracer) *MenuHandler {
	return &MenuHandler{
		catalog: catalog,
		tracer:  tracer,
	}
}

// MenuItemResponse is one item in the JSON menu. Price is rendered in pounds.
type MenuItemResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Available   bool   `json:"available"`
}

func toMenuItemResponse(item *models.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Price:       fmt.Sprintf("%.2f", item.PricePence.Pounds()),
		Available:   item.Available,
	}
}

// HandleListMenu returns the menu as JSON, optionally filtered by category.
func (h *MenuHandler) HandleListMenu(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-menu")
	defer h.tracer.EndTransaction(txn)

	items, err := h.catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list menu items")
		h.tracer.RecordError(txn, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	response := make([]MenuItemResponse, 0, len(items))
	for i := range items {
		response = append(response, toMenuItemResponse(&items[i]))
	}

	c.JSON(http.StatusOK, response)
}

// HandleCreateMenuItem creates a menu item from a JSON body.
func (h *MenuHandler) HandleCreateMenuItem(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-menu-item")
	defer h.tracer.EndTransaction(txn)

	var input services.MenuItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.catalog.Create(c.Request.Context(), input)
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "menu_item_id", item.ID)
	c.JSON(http.StatusCreated, toMenuItemResponse(item))
}

// RegisterRoutes registers the handler's routes
func (h *MenuHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/menu", h.HandleListMenu)
	router.POST("/api/menu", middleware.RequireAPIRole(models.RoleAdmin), h.HandleCreateMenuItem)
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case faults.IsValidation(err):
		return http.StatusBadRequest
	case faults.IsNotFound(err):
		return http.StatusNotFound
	case faults.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/api/middleware"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/storage"
)

// AdminHandler handles menu management and the on-demand summary run
type AdminHandler struct {
	catalog   *services.CatalogService
	summaries *services.SummaryService
	images    *storage.ImageStore
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(catalog *services.CatalogService, summaries *services.SummaryService, images *storage.ImageStore) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		summaries: summaries,
		images:    images,
	}
}

// HandleMenuPage renders the menu management page, unavailable items included.
func (h *AdminHandler) HandleMenuPage(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list menu items")
		c.HTML(http.StatusServiceUnavailable, "admin_menu.tmpl",
			pageData(c, gin.H{"Error": "The catalog is temporarily unavailable"}))
		return
	}

	c.HTML(http.StatusOK, "admin_menu.tmpl", pageData(c, gin.H{"Items": items}))
}

// menuItemInput reads the admin form, including an optional image upload.
func (h *AdminHandler) menuItemInput(c *gin.Context) (services.MenuItemInput, error) {
	available := c.PostForm("available") != ""
	input := services.MenuItemInput{
		Name:        c.PostForm("name"),
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Available:   &available,
	}

	header, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return input, nil
	}
	if err != nil {
		return input, err
	}

	url, err := h.images.Save(c.Request.Context(), header)
	if err != nil {
		return input, err
	}
	input.Image = url
	return input, nil
}

func (h *AdminHandler) flashError(c *gin.Context, err error) {
	sess := middleware.CurrentSession(c)
	if faults.IsValidation(err) {
		flashAndRedirect(c, sess, err.Error(), "/admin/menu")
		return
	}
	log.Error().Err(err).Msg("Menu change failed")
	flashAndRedirect(c, sess, "Something went wrong, please try again", "/admin/menu")
}

// HandleCreateItem adds a menu item from the admin form.
func (h *AdminHandler) HandleCreateItem(c *gin.Context) {
	input, err := h.menuItemInput(c)
	if err == nil {
		_, err = h.catalog.Create(c.Request.Context(), input)
	}
	if err != nil {
		h.flashError(c, err)
		return
	}

	sess := middleware.CurrentSession(c)
	flashAndRedirect(c, sess, "Menu item created", "/admin/menu")
}

// HandleUpdateItem edits a menu item from the admin form.
func (h *AdminHandler) HandleUpdateItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin/menu")
		return
	}

	input, err := h.menuItemInput(c)
	if err == nil {
		_, err = h.catalog.Update(c.Request.Context(), id, input)
	}
	if err != nil {
		h.flashError(c, err)
		return
	}

	sess := middleware.CurrentSession(c)
	flashAndRedirect(c, sess, "Menu item updated", "/admin/menu")
}

// HandleDeleteItem removes a menu item.
func (h *AdminHandler) HandleDeleteItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin/menu")
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.flashError(c, err)
		return
	}

	sess := middleware.CurrentSession(c)
	flashAndRedirect(c, sess, "Menu item deleted", "/admin/menu")
}

// HandleRunSummary recomputes the sales summary for a day on demand. The
// posted date defaults to today (UTC).
func (h *AdminHandler) HandleRunSummary(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	day := time.Now().UTC()
	if posted := c.PostForm("date"); posted != "" {
		parsed, err := time.Parse(services.SummaryDateFormat, posted)
		if err != nil {
			flashAndRedirect(c, sess, "Date must look like 2026-08-29", "/admin/menu")
			return
		}
		day = parsed
	}

	summary, err := h.summaries.RunForDate(c.Request.Context(), day)
	if err != nil {
		log.Error().Err(err).Msg("Summary run failed")
		flashAndRedirect(c, sess, "Summary run failed, please try again", "/admin/menu")
		return
	}

	flashAndRedirect(c, sess,
		"Summary for "+summary.Date+": "+summary.TotalRevenuePence.String(),
		"/admin/menu")
}

// RegisterRoutes registers the handler's routes
func (h *AdminHandler) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/menu", h.HandleMenuPage)
	admin.POST("/menu/create", h.HandleCreateItem)
	admin.POST("/menu/update/:id", h.HandleUpdateItem)
	admin.POST("/menu/delete/:id", h.HandleDeleteItem)
	admin.POST("/summary/run", h.HandleRunSummary)
}

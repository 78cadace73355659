package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/api/middleware"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
	"example.com/restaurant/services/ordering/internal/payments"
	"example.com/restaurant/services/ordering/internal/postcode"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/session"
)

// OrderHistory is the slice of the order repository the web pages need.
type OrderHistory interface {
	ListForUser(ctx context.Context, userID uint) ([]models.Order, error)
}

// WebHandler handles the customer-facing pages: menu, cart, checkout,
// payment and order history.
type WebHandler struct {
	catalog   *services.CatalogService
	checkout  *services.CheckoutService
	orders    OrderHistory
	postcodes *postcode.Checker
}

// NewWebHandler creates a new web handler
func NewWebHandler(catalog *services.CatalogService, checkout *services.CheckoutService, orders OrderHistory, postcodes *postcode.Checker) *WebHandler {
	return &WebHandler{
		catalog:   catalog,
		checkout:  checkout,
		orders:    orders,
		postcodes: postcodes,
	}
}

// HandleIndex renders the landing page.
func (h *WebHandler) HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", pageData(c, nil))
}

// menuItemView is a MenuItem shaped for the templates.
type menuItemView struct {
	ID          uint
	Name        string
	Category    string
	Description string
	Price       string
	Image       string
}

func toMenuItemView(item *models.MenuItem) menuItemView {
	return menuItemView{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Price:       item.PricePence.String(),
		Image:       item.Image,
	}
}

// HandleMenuPage renders the browsable menu, optionally filtered by category.
func (h *WebHandler) HandleMenuPage(c *gin.Context) {
	category := c.Query("category")

	items, err := h.catalog.ListAvailable(c.Request.Context(), category)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load menu")
		c.HTML(http.StatusServiceUnavailable, "menu.tmpl",
			pageData(c, gin.H{"Error": "The menu is temporarily unavailable"}))
		return
	}

	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load categories")
		categories = nil
	}

	views := make([]menuItemView, 0, len(items))
	for i := range items {
		views = append(views, toMenuItemView(&items[i]))
	}

	c.HTML(http.StatusOK, "menu.tmpl", pageData(c, gin.H{
		"Items":      views,
		"Categories": categories,
		"Selected":   category,
	}))
}

func itemIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// HandleCartAdd puts one more of a menu item in the cart.
func (h *WebHandler) HandleCartAdd(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	id, ok := itemIDParam(c)
	if !ok {
		flashAndRedirect(c, sess, "Unknown menu item", "/menu")
		return
	}

	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil || !item.Available {
		flashAndRedirect(c, sess, "That item is not available", "/menu")
		return
	}

	sess.Data.AddToCart(id)
	flashAndRedirect(c, sess, item.Name+" added to cart", "/menu")
}

// cartLineView is one cart row shaped for the template.
type cartLineView struct {
	ID       uint
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

// cartContents resolves the session cart against the current menu. Lines for
// items that have since vanished are dropped from the view.
func (h *WebHandler) cartContents(c *gin.Context, sess *session.Session) ([]cartLineView, money.Pence) {
	var lines []cartLineView
	var total money.Pence

	for key, qty := range sess.Data.Cart {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			continue
		}
		item, err := h.catalog.Get(c.Request.Context(), uint(id))
		if err != nil {
			continue
		}
		subtotal := item.PricePence * money.Pence(qty)
		total += subtotal
		lines = append(lines, cartLineView{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: qty,
			Price:    item.PricePence.String(),
			Subtotal: subtotal.String(),
		})
	}
	return lines, total
}

// HandleCartPage renders the cart.
func (h *WebHandler) HandleCartPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	lines, total := h.cartContents(c, sess)

	c.HTML(http.StatusOK, "cart.tmpl", pageData(c, gin.H{
		"Lines": lines,
		"Total": total.String(),
	}))
}

// HandleCartUpdate changes a cart line's quantity by the posted delta.
func (h *WebHandler) HandleCartUpdate(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	id, ok := itemIDParam(c)
	if !ok {
		flashAndRedirect(c, sess, "Unknown menu item", "/cart")
		return
	}

	delta, err := strconv.Atoi(c.PostForm("delta"))
	if err != nil {
		flashAndRedirect(c, sess, "Invalid quantity change", "/cart")
		return
	}

	sess.Data.AdjustCart(id, delta)
	if err := sess.Save(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
	}
	c.Redirect(http.StatusSeeOther, "/cart")
}

// HandleCartRemove deletes a cart line.
func (h *WebHandler) HandleCartRemove(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	if id, ok := itemIDParam(c); ok {
		sess.Data.RemoveFromCart(id)
		if err := sess.Save(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("Failed to save session")
		}
	}
	c.Redirect(http.StatusSeeOther, "/cart")
}

// HandleCheckoutPage renders the delivery details form.
func (h *WebHandler) HandleCheckoutPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if len(sess.Data.Cart) == 0 {
		flashAndRedirect(c, sess, "Your cart is empty", "/menu")
		return
	}

	c.HTML(http.StatusOK, "checkout.tmpl", pageData(c, gin.H{
		"Delivery": sess.Data.Delivery,
	}))
}

// HandleCheckout stores the delivery details and moves on to payment. The
// postcode is checked here so the form can be corrected before card entry.
func (h *WebHandler) HandleCheckout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if len(sess.Data.Cart) == 0 {
		flashAndRedirect(c, sess, "Your cart is empty", "/menu")
		return
	}

	delivery := session.Delivery{
		FullName: c.PostForm("full_name"),
		Phone:    c.PostForm("phone"),
		Address1: c.PostForm("address1"),
		Address2: c.PostForm("address2"),
		City:     c.PostForm("city"),
		Postcode: postcode.Normalize(c.PostForm("postcode")),
	}

	if delivery.FullName == "" || delivery.Address1 == "" {
		flashAndRedirect(c, sess, "Name and address are required", "/checkout")
		return
	}
	if !h.postcodes.Serviceable(delivery.Postcode) {
		flashAndRedirect(c, sess, "Sorry, we do not deliver to that postcode", "/checkout")
		return
	}

	sess.Data.Delivery = &delivery
	if err := sess.Save(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
	}
	c.Redirect(http.StatusSeeOther, "/payment")
}

// HandlePaymentPage renders the card form.
func (h *WebHandler) HandlePaymentPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if len(sess.Data.Cart) == 0 || sess.Data.Delivery == nil {
		c.Redirect(http.StatusSeeOther, "/checkout")
		return
	}

	_, total := h.cartContents(c, sess)
	c.HTML(http.StatusOK, "payment.tmpl", pageData(c, gin.H{
		"Total":    total.String(),
		"Postcode": sess.Data.Delivery.Postcode,
	}))
}

// HandlePayment runs the checkout workflow against the session cart.
func (h *WebHandler) HandlePayment(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if len(sess.Data.Cart) == 0 || sess.Data.Delivery == nil {
		c.Redirect(http.StatusSeeOther, "/checkout")
		return
	}

	var lines []services.CartLine
	for key, qty := range sess.Data.Cart {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			continue
		}
		lines = append(lines, services.CartLine{MenuItemID: uint(id), Quantity: qty})
	}

	card := payments.Card{
		Name:            c.PostForm("card_name"),
		Number:          c.PostForm("card_number"),
		Expiry:          c.PostForm("card_expiry"),
		CVC:             c.PostForm("card_cvc"),
		BillingPostcode: c.PostForm("billing_postcode"),
		Agreed:          c.PostForm("agree") == "on",
	}

	order, err := h.checkout.Checkout(
		c.Request.Context(),
		sess.Data.UserID,
		sess.Data.Email,
		lines,
		sess.Data.Delivery.Postcode,
		card,
	)

	switch {
	case err == nil || faults.IsPartialWrite(err):
		// The order stands either way; a trail gap is an internal concern.
	case faults.IsValidation(err):
		flashAndRedirect(c, sess, err.Error(), "/payment")
		return
	case faults.IsNotFound(err):
		flashAndRedirect(c, sess, "An item in your cart is no longer available", "/cart")
		return
	default:
		log.Error().Err(err).Msg("Checkout failed")
		flashAndRedirect(c, sess, "Something went wrong, please try again", "/payment")
		return
	}

	if order.Status != models.OrderStatusPaid {
		flashAndRedirect(c, sess, "Payment was declined, please try another card", "/payment")
		return
	}

	sess.Data.ClearCart()
	sess.Data.Delivery = nil
	flashAndRedirect(c, sess, "Order placed, thank you!", "/orders")
}

// orderView is one past order shaped for the template.
type orderView struct {
	ID     uint
	Placed string
	Status string
	Total  string
}

// HandleOrdersPage renders the user's order history, newest first.
func (h *WebHandler) HandleOrdersPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	orders, err := h.orders.ListForUser(c.Request.Context(), sess.Data.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		c.HTML(http.StatusServiceUnavailable, "orders.tmpl",
			pageData(c, gin.H{"Error": "Order history is temporarily unavailable"}))
		return
	}

	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, orderView{
			ID:     orders[i].ID,
			Placed: orders[i].CreatedAt.Format("2 Jan 2006 15:04"),
			Status: orders[i].Status,
			Total:  orders[i].Total().String(),
		})
	}

	c.HTML(http.StatusOK, "orders.tmpl", pageData(c, gin.H{"Orders": views}))
}

// RegisterRoutes registers the handler's routes
func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.HandleIndex)
	router.GET("/menu", h.HandleMenuPage)

	router.POST("/cart/add/:id", h.HandleCartAdd)
	router.GET("/cart", h.HandleCartPage)
	router.POST("/cart/update/:id", h.HandleCartUpdate)
	router.POST("/cart/remove/:id", h.HandleCartRemove)

	authed := router.Group("/", middleware.RequireLogin())
	authed.GET("/checkout", h.HandleCheckoutPage)
	authed.POST("/checkout", h.HandleCheckout)
	authed.GET("/payment", h.HandlePaymentPage)
	authed.POST("/payment", h.HandlePayment)
	authed.GET("/orders", h.HandleOrdersPage)
}

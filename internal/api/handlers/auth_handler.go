package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/api/middleware"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/session"
)

// AuthHandler handles registration, login and logout pages
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// pageData builds the template context shared by every rendered page,
// draining queued flash messages in the process.
func pageData(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	sess := middleware.CurrentSession(c)
	if sess != nil {
		flashes := sess.Data.PopFlashes()
		if len(flashes) > 0 {
			if err := sess.Save(c.Request.Context()); err != nil {
				log.Error().Err(err).Msg("Failed to save session")
			}
		}
		data["Flashes"] = flashes
		data["LoggedIn"] = sess.Data.LoggedIn()
		data["Email"] = sess.Data.Email
		data["IsAdmin"] = sess.Data.Role == models.RoleAdmin
		data["CartCount"] = len(sess.Data.Cart)
	}
	return data
}

// flashAndRedirect queues a message and sends the browser elsewhere.
func flashAndRedirect(c *gin.Context, sess *session.Session, msg, location string) {
	sess.Data.Flash(msg)
	if err := sess.Save(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
	}
	c.Redirect(http.StatusSeeOther, location)
}

// HandleRegisterPage renders the registration form.
func (h *AuthHandler) HandleRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", pageData(c, nil))
}

// HandleRegister creates an account and logs the new user in.
func (h *AuthHandler) HandleRegister(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	if password != confirm {
		flashAndRedirect(c, sess, "Passwords do not match", "/register")
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), email, password)
	if err != nil {
		if faults.IsValidation(err) {
			flashAndRedirect(c, sess, err.Error(), "/register")
			return
		}
		log.Error().Err(err).Msg("Failed to register user")
		c.HTML(http.StatusInternalServerError, "register.tmpl",
			pageData(c, gin.H{"Error": "Something went wrong, please try again"}))
		return
	}

	h.signIn(c, sess, user)
}

// HandleLoginPage renders the login form.
func (h *AuthHandler) HandleLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", pageData(c, nil))
}

// HandleLogin checks credentials and starts the session.
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	user, err := h.accounts.Authenticate(c.Request.Context(), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		if faults.IsValidation(err) {
			flashAndRedirect(c, sess, err.Error(), "/login")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user")
		c.HTML(http.StatusInternalServerError, "login.tmpl",
			pageData(c, gin.H{"Error": "Something went wrong, please try again"}))
		return
	}

	h.signIn(c, sess, user)
}

func (h *AuthHandler) signIn(c *gin.Context, sess *session.Session, user *models.User) {
	sess.Data.UserID = user.ID
	sess.Data.Email = user.Email
	sess.Data.Role = user.Role
	if err := sess.Save(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
		c.HTML(http.StatusInternalServerError, "login.tmpl",
			pageData(c, gin.H{"Error": "Something went wrong, please try again"}))
		return
	}

	if user.IsAdmin() {
		c.Redirect(http.StatusSeeOther, "/admin/menu")
		return
	}
	c.Redirect(http.StatusSeeOther, "/menu")
}

// HandleLogout ends the session.
func (h *AuthHandler) HandleLogout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess != nil {
		if err := sess.Destroy(c); err != nil {
			log.Error().Err(err).Msg("Failed to destroy session")
		}
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// RegisterRoutes registers the handler's routes
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/register", h.HandleRegisterPage)
	router.POST("/register", h.HandleRegister)
	router.GET("/login", h.HandleLoginPage)
	router.POST("/login", h.HandleLogin)
	router.GET("/logout", h.HandleLogout)
}

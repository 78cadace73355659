package session

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/restaurant/services/ordering/internal/cache"
)

// CookieName is the session cookie set at login.
const CookieName = "ordering_session"

// Sessions live this long without activity before Redis expires them.
const ttl = 24 * time.Hour

// Delivery holds the checkout form's delivery details between the checkout
// and payment steps.
type Delivery struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
}

// Data is everything stored server-side for one session. The cart maps menu
// item ids (as strings, JSON keys) to quantities.
type Data struct {
	UserID   uint           `json:"user_id"`
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	Cart     map[string]int `json:"cart"`
	Delivery *Delivery      `json:"delivery,omitempty"`
	Flashes  []string       `json:"flashes,omitempty"`
}

// LoggedIn reports whether the session belongs to an authenticated user.
func (d *Data) LoggedIn() bool {
	return d.UserID != 0
}

// AddToCart increments the quantity of a menu item.
func (d *Data) AddToCart(itemID uint) {
	if d.Cart == nil {
		d.Cart = map[string]int{}
	}
	key := strconv.FormatUint(uint64(itemID), 10)
	d.Cart[key]++
}

// AdjustCart changes a cart line's quantity by delta, removing the line when
// it drops to zero or below.
func (d *Data) AdjustCart(itemID uint, delta int) {
	if d.Cart == nil {
		return
	}
	key := strconv.FormatUint(uint64(itemID), 10)
	qty := d.Cart[key] + delta
	if qty <= 0 {
		delete(d.Cart, key)
	} else {
		d.Cart[key] = qty
	}
}

// RemoveFromCart deletes a cart line.
func (d *Data) RemoveFromCart(itemID uint) {
	key := strconv.FormatUint(uint64(itemID), 10)
	delete(d.Cart, key)
}

// ClearCart empties the cart after a completed checkout.
func (d *Data) ClearCart() {
	d.Cart = map[string]int{}
}

// Flash queues a message for the next rendered page.
func (d *Data) Flash(msg string) {
	d.Flashes = append(d.Flashes, msg)
}

// PopFlashes returns and clears the queued messages.
func (d *Data) PopFlashes() []string {
	flashes := d.Flashes
	d.Flashes = nil
	return flashes
}

// Session is one loaded session plus the handle needed to save it back.
type Session struct {
	ID   string
	Data Data

	store *Store
}

// Save writes the session data back to Redis.
func (s *Session) Save(ctx context.Context) error {
	return s.store.cache.Set(ctx, cache.SessionCacheKey(s.ID), &s.Data, ttl)
}

// Destroy removes the session server-side and expires the cookie.
func (s *Session) Destroy(c *gin.Context) error {
	c.SetCookie(CookieName, "", -1, "/", "", s.store.secure, true)
	return s.store.cache.Delete(c.Request.Context(), cache.SessionCacheKey(s.ID))
}

// Store loads and creates cookie-backed sessions in Redis.
type Store struct {
	cache  *cache.RedisCache
	secure bool
}

// NewStore creates a session store
func NewStore(redisCache *cache.RedisCache, secure bool) *Store {
	return &Store{cache: redisCache, secure: secure}
}

// Load returns the request's session, creating a fresh one (and setting the
// cookie) when none exists.
func (s *Store) Load(c *gin.Context) (*Session, error) {
	id, err := c.Cookie(CookieName)
	if err == nil && id != "" {
		sess := &Session{ID: id, store: s}
		err = s.cache.Get(c.Request.Context(), cache.SessionCacheKey(id), &sess.Data)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, http.ErrNoCookie) {
			return nil, errors.Wrap(err, "failed to load session")
		}
		// Stale cookie, fall through and mint a new session.
	}

	sess := &Session{
		ID:    uuid.NewString(),
		Data:  Data{Cart: map[string]int{}},
		store: s,
	}
	c.SetCookie(CookieName, sess.ID, int(ttl.Seconds()), "/", "", s.secure, true)

	if err := sess.Save(c.Request.Context()); err != nil {
		return nil, err
	}
	return sess, nil
}

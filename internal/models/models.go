package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/money"
)

// User roles. Role-based access is a capability check per request, not a
// separate user type.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Order statuses. An order is created pending and transitions exactly once
// to paid or failed.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// User represents a registered account
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:customer" json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MenuItem represents a purchasable menu item
type MenuItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"size:120;not null" json:"name"`
	Category    string         `gorm:"size:60;not null" json:"category"`
	Description string         `gorm:"size:500" json:"description"`
	PricePence  money.Pence    `gorm:"not null" json:"price_pence"`
	Available   bool           `gorm:"not null;default:true" json:"available"`
	Image       string         `gorm:"size:255" json:"image"`
}

// Order represents a checkout. TrailComplete is false when the relational
// write landed but one or more event log appends did not; the reconciliation
// job re-derives and re-appends the missing events, then flips the flag.
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	Postcode      string      `gorm:"size:10;not null" json:"postcode"`
	Status        string      `gorm:"size:30;not null;default:pending" json:"status"`
	TrailComplete bool        `gorm:"not null;default:true" json:"trail_complete"`
	User          User        `gorm:"foreignKey:UserID" json:"-"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// Total sums the line items in pence.
func (o *Order) Total() money.Pence {
	var total money.Pence
	for _, item := range o.Items {
		total += item.UnitPricePence * money.Pence(item.Quantity)
	}
	return total
}

// OrderItem is an immutable line of an order. UnitPricePence is a snapshot
// of the menu price at order time so later menu edits don't rewrite history.
type OrderItem struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	OrderID        uint        `gorm:"not null;index" json:"order_id"`
	MenuItemID     uint        `gorm:"not null" json:"menu_item_id"`
	Quantity       int         `gorm:"not null" json:"quantity"`
	UnitPricePence money.Pence `gorm:"not null" json:"unit_price_pence"`
	MenuItem       MenuItem    `gorm:"foreignKey:MenuItemID" json:"-"`
}

// SalesSummary is the daily rollup of paid orders. One row per day,
// recomputed and overwritten whole by the summary job.
type SalesSummary struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Date              string      `gorm:"size:10;not null;uniqueIndex" json:"date"`
	TotalRevenuePence money.Pence `gorm:"not null" json:"total_revenue_pence"`
	OrderCount        int         `gorm:"not null" json:"order_count"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&MenuItem{},
		&Order{},
		&OrderItem{},
		&SalesSummary{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}

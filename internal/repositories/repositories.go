package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/restaurant/services/ordering/internal/models"
)

// UserRepository provides access to user accounts
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by email")
	}
	return &user, nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by ID")
	}
	return &user, nil
}

// EmailExists reports whether an account with this email already exists.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check email existence")
	}
	return count > 0, nil
}

// MenuRepository provides access to the menu catalog
type MenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Create creates a new menu item
func (r *MenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID gets a menu item by ID
func (r *MenuRepository) GetByID(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get menu item by ID")
	}
	return &item, nil
}

// List lists menu items, optionally filtered by category, ordered the way
// the menu page renders them.
func (r *MenuRepository) List(ctx context.Context, category string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	q := r.db.WithContext(ctx).Order("category, name")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list menu items")
	}
	return items, nil
}

// Categories returns the distinct non-empty categories in use.
func (r *MenuRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list menu categories")
	}
	return categories, nil
}

// Update saves changes to a menu item
func (r *MenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete soft-deletes a menu item. Historical order items keep their price
// snapshot and item reference.
func (r *MenuRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.MenuItem{}, id).Error
}

// OrderRepository provides access to orders and their line items
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems creates an order and its line items in one transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return errors.Wrap(err, "failed to create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return errors.Wrap(err, "failed to create order items")
		}
		order.Items = items
		return nil
	})
}

// GetByID gets an order with its line items
func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB {
			// Receipts for old orders still need names of since-deleted items.
			return db.Unscoped()
		}).
		Preload("User").
		First(&order, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order by ID")
	}
	return &order, nil
}

// ListForUser lists a user's orders, newest first
func (r *OrderRepository) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders for user")
	}
	return orders, nil
}

// SetStatus transitions an order out of pending. The pending guard makes the
// transition happen exactly once.
func (r *OrderRepository) SetStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Update("status", status)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order status")
	}
	if result.RowsAffected == 0 {
		return errors.New("order is not pending")
	}
	return nil
}

// MarkTrailIncomplete flags an order whose event trail has a gap.
func (r *OrderRepository) MarkTrailIncomplete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("trail_complete", false).Error
	return errors.Wrap(err, "failed to mark order trail incomplete")
}

// MarkTrailComplete clears the gap flag after reconciliation.
func (r *OrderRepository) MarkTrailComplete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("trail_complete", true).Error
	return errors.Wrap(err, "failed to mark order trail complete")
}

// ListIncompleteTrails lists terminal orders whose event trail has a gap.
func (r *OrderRepository) ListIncompleteTrails(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("trail_complete = ? AND status IN ?", false,
			[]string{models.OrderStatusPaid, models.OrderStatusFailed}).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders with incomplete trails")
	}
	return orders, nil
}

// SummaryRepository provides access to daily sales summaries
type SummaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert writes the summary row for its date, replacing any previous values
// whole. Re-running a day is a full recompute, never an increment.
func (r *SummaryRepository) Upsert(ctx context.Context, summary *models.SalesSummary) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_revenue_pence", "order_count", "updated_at"}),
		}).
		Create(summary).Error
	return errors.Wrap(err, "failed to upsert sales summary")
}

// GetByDate gets the summary for a date
func (r *SummaryRepository) GetByDate(ctx context.Context, date string) (*models.SalesSummary, error) {
	var summary models.SalesSummary
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&summary).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sales summary by date")
	}
	return &summary, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
)

// MenuStore is the slice of the menu repository the catalog service needs.
type MenuStore interface {
	Create(ctx context.Context, item *models.MenuItem) error
	GetByID(ctx context.Context, id uint) (*models.MenuItem, error)
	List(ctx context.Context, category string) ([]models.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id uint) error
}

// MenuItemInput carries the form/JSON fields for creating or editing an item.
// Price arrives as the user typed it, in pounds.
type MenuItemInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Available   *bool  `json:"available"`
	Image       string `json:"image"`
}

// CatalogService handles menu browsing and admin menu management.
type CatalogService struct {
	menu MenuStore
}

// NewCatalogService creates a new catalog service
func NewCatalogService(menu MenuStore) *CatalogService {
	return &CatalogService{menu: menu}
}

// List returns menu items, optionally filtered by category.
func (s *CatalogService) List(ctx context.Context, category string) ([]models.MenuItem, error) {
	items, err := s.menu.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, faults.Unavailable("catalog store", err)
	}
	return items, nil
}

// ListAvailable returns only orderable items, for the customer-facing menu.
func (s *CatalogService) ListAvailable(ctx context.Context, category string) ([]models.MenuItem, error) {
	items, err := s.List(ctx, category)
	if err != nil {
		return nil, err
	}
	available := items[:0]
	for _, item := range items {
		if item.Available {
			available = append(available, item)
		}
	}
	return available, nil
}

// Categories returns the categories currently in use.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.menu.Categories(ctx)
	if err != nil {
		return nil, faults.Unavailable("catalog store", err)
	}
	return categories, nil
}

// Get returns a single menu item.
func (s *CatalogService) Get(ctx context.Context, id uint) (*models.MenuItem, error) {
	item, err := s.menu.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, faults.NotFound("menu item", id)
		}
		return nil, faults.Unavailable("catalog store", err)
	}
	return item, nil
}

func (s *CatalogService) applyInput(item *models.MenuItem, input MenuItemInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return faults.Validation("name is required")
	}

	price, err := money.ParsePounds(input.Price)
	if err != nil {
		return err
	}

	item.Name = name
	item.Category = strings.TrimSpace(input.Category)
	item.Description = strings.TrimSpace(input.Description)
	item.PricePence = price
	if input.Available != nil {
		item.Available = *input.Available
	}
	if input.Image != "" {
		item.Image = input.Image
	}
	return nil
}

// Create adds a menu item. New items default to available.
func (s *CatalogService) Create(ctx context.Context, input MenuItemInput) (*models.MenuItem, error) {
	item := &models.MenuItem{Available: true}
	if err := s.applyInput(item, input); err != nil {
		return nil, err
	}
	if err := s.menu.Create(ctx, item); err != nil {
		return nil, faults.Unavailable("catalog store", err)
	}
	return item, nil
}

// Update edits an existing menu item.
func (s *CatalogService) Update(ctx context.Context, id uint, input MenuItemInput) (*models.MenuItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(item, input); err != nil {
		return nil, err
	}
	if err := s.menu.Update(ctx, item); err != nil {
		return nil, faults.Unavailable("catalog store", err)
	}
	return item, nil
}

// Delete removes a menu item from the catalog. The row is soft-deleted so
// past orders keep their reference.
func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.menu.Delete(ctx, id); err != nil {
		return faults.Unavailable("catalog store", err)
	}
	return nil
}

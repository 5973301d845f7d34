package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/repository"
	"github.com/google/uuid"
	nuts "github.com/vaudience/go-nuts"
)

const (
	maxQtyPerItem   = 100
	defaultCurrency = "USD"
	defaultCountry  = "US"
)

// OrderService prices carts and places orders
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	now      func() time.Time
}

// Products lists the active catalogue by name
func (s *OrderService) Products(ctx context.Context) ([]*models.Product, error) {
	return s.products.ListActive(ctx)
}

// List returns the caller's orders, newest first
func (s *OrderService) List(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.orders.ListByCustomer(ctx, userID)
}

// Get returns one of the caller's orders with its items
func (s *OrderService) Get(ctx context.Context, userID, id string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != userID {
		return nil, errors.NewAccessDeniedError("order "+id+" does not belong to you", nil)
	}
	return order, nil
}

// Place prices the cart with server-side prices and stores the order
func (s *OrderService) Place(ctx context.Context, userID string, req models.PlaceOrderRequest) (*models.Order, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user id is required", nil)
	}
	shipping, err := ValidateShipping(req.Shipping)
	if err != nil {
		return nil, err
	}
	cart, err := mergeCart(req.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		CustomerID:    userID,
		CreatedBy:     userID,
		Status:        models.OrderStatusPending,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     s.clock(),
		ShippingInfo:  shipping,
		ShippingCents: models.FlatShippingCents,
	}
	for _, item := range cart {
		p, ok := byID[item.ProductID]
		if !ok || !p.Active {
			return nil, errors.NewValidationError(fmt.Sprintf("product %s is not available", item.ProductID), nil)
		}
		if order.Currency == "" {
			order.Currency = p.Currency
		}
		line := p.PriceCents * int64(item.Qty)
		order.SubtotalCents += line
		order.Items = append(order.Items, models.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Qty:            item.Qty,
			UnitPriceCents: p.PriceCents,
			LineTotalCents: line,
			Meta:           models.JSON{},
		})
	}
	if order.Currency == "" {
		order.Currency = defaultCurrency
	}
	order.TaxCents = Tax(order.SubtotalCents)
	order.TotalCents = order.SubtotalCents + order.TaxCents + order.ShippingCents

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		return nil, err
	}
	nuts.L.Infof("[OrderService] Order %s placed by %s: %d items, total %d %s",
		order.ID, userID, len(order.Items), order.TotalCents, order.Currency)
	return order, nil
}

// Tax is the flat rate applied to the subtotal, truncated to whole cents
func Tax(subtotalCents int64) int64 {
	return int64(float64(subtotalCents) * models.TaxRate)
}

// ValidateShipping trims the address and checks required fields. The state
// must be a two-letter code and is upper-cased.
func ValidateShipping(in models.ShippingInfo) (models.ShippingInfo, error) {
	out := models.ShippingInfo{
		Name:       strings.TrimSpace(in.Name),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.ToUpper(strings.TrimSpace(in.State)),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
		Phone:      strings.TrimSpace(in.Phone),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}

	switch {
	case out.Name == "":
		return out, errors.NewValidationError("full name is required", nil)
	case out.Line1 == "":
		return out, errors.NewValidationError("address is required", nil)
	case out.City == "":
		return out, errors.NewValidationError("city is required", nil)
	case len(out.State) != 2:
		return out, errors.NewValidationError("state must be a 2-letter code (e.g., NY)", nil)
	case out.PostalCode == "":
		return out, errors.NewValidationError("postal code is required", nil)
	case out.Phone == "":
		return out, errors.NewValidationError("phone number is required", nil)
	}
	return out, nil
}

// mergeCart collapses repeated products, keeping first-seen order
func mergeCart(items []models.CartItem) ([]models.CartItem, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("cart is empty", nil)
	}
	index := make(map[string]int, len(items))
	merged := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return nil, errors.NewValidationError("product id is required", nil)
		}
		if item.Qty < 1 {
			return nil, errors.NewValidationError("quantity must be at least 1", nil)
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Qty += item.Qty
		} else {
			index[item.ProductID] = len(merged)
			merged = append(merged, item)
		}
	}
	for _, item := range merged {
		if item.Qty > maxQtyPerItem {
			return nil, errors.NewValidationError(fmt.Sprintf("at most %d of product %s per order", maxQtyPerItem, item.ProductID), nil)
		}
	}
	return merged, nil
}

func (s *OrderService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

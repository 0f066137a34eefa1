package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fabrino-server/models"

	log "github.com/sirupsen/logrus"
)

// ErrOrderItemsFailed means the header was written but its items were not.
var ErrOrderItemsFailed = errors.New("order items could not be stored")

// OrderStore is the write side of the orders and order_items tables.
type OrderStore interface {
	InsertOrder(ctx context.Context, order models.Order) (string, error)
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
}

// OrderEventPublisher announces stored orders to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, evt models.OrderEvent) error
}

// PlaceOrderRequest is everything needed to persist one checkout.
type PlaceOrderRequest struct {
	SessionID string
	UserID    *string
	Shipping  ShippingForm
	Items     []models.CartItem
	Total     float64
}

// OrderSaga writes an order header then its items. If the items fail it
// deletes the header, and if that fails too it marks the header incomplete
// so it can be reconciled later.
type OrderSaga struct {
	store  OrderStore
	events OrderEventPublisher
	now    func() time.Time
}

// NewOrderSaga returns a saga over store. events may be nil.
func NewOrderSaga(store OrderStore, events OrderEventPublisher) *OrderSaga {
	return &OrderSaga{store: store, events: events, now: time.Now}
}

// Place persists req and returns the order id.
func (s *OrderSaga) Place(ctx context.Context, req PlaceOrderRequest) (string, error) {
	orderID, err := s.store.InsertOrder(ctx, models.Order{
		FirstName:  req.Shipping.FirstName,
		LastName:   req.Shipping.LastName,
		Address:    req.Shipping.Address,
		City:       req.Shipping.City,
		PostalCode: req.Shipping.PostalCode,
		Total:      req.Total,
		Status:     models.OrderStatusProcessing,
		UserID:     req.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("insert order header: %w", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			OrderID:            orderID,
			ProductID:          item.ProductID,
			Name:               item.Name,
			CustomizationText:  item.Text,
			CustomizationColor: item.Color,
			Quantity:           item.Quantity,
			Price:              item.Price,
		})
	}

	if err := s.store.InsertOrderItems(ctx, items); err != nil {
		return orderID, s.compensate(ctx, orderID, err)
	}

	if s.events != nil {
		evt := models.OrderEvent{
			OrderID:   orderID,
			UserID:    req.UserID,
			Total:     req.Total,
			Items:     items,
			PlacedAt:  s.now().UTC(),
			SessionID: req.SessionID,
		}
		if err := s.events.PublishOrderPlaced(ctx, evt); err != nil {
			log.WithError(err).WithField("order_id", orderID).Warn("Failed to publish order event")
		}
	}
	return orderID, nil
}

func (s *OrderSaga) compensate(ctx context.Context, orderID string, cause error) error {
	logger := log.WithField("order_id", orderID).WithError(cause)

	delErr := s.store.DeleteOrder(ctx, orderID)
	if delErr == nil {
		logger.Warn("Order items failed, header removed")
		return fmt.Errorf("%w: order %s removed: %w", ErrOrderItemsFailed, orderID, cause)
	}

	markErr := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusIncomplete)
	if markErr == nil {
		logger.WithField("delete_error", delErr.Error()).Warn("Order items failed, header marked incomplete")
		return fmt.Errorf("%w: order %s marked incomplete: %w", ErrOrderItemsFailed, orderID, cause)
	}

	logger.WithFields(log.Fields{
		"delete_error": delErr.Error(),
		"mark_error":   markErr.Error(),
	}).Error("Order items failed and header could not be compensated")
	return fmt.Errorf("%w: order %s left orphaned: %w", ErrOrderItemsFailed, orderID, errors.Join(cause, delErr, markErr))
}

package services

import (
	"context"
	"errors"
	"testing"

	"fabrino-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) InsertOrder(ctx context.Context, order models.Order) (string, error) {
	args := m.Called(order)
	return args.String(0), args.Error(1)
}

func (m *mockOrderStore) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	return m.Called(items).Error(0)
}

func (m *mockOrderStore) DeleteOrder(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return m.Called(id, status).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, evt models.OrderEvent) error {
	return m.Called(evt).Error(0)
}

func sampleOrderRequest() PlaceOrderRequest {
	uid := "user-1"
	return PlaceOrderRequest{
		SessionID: "sess-1",
		UserID:    &uid,
		Shipping:  ShippingForm{FirstName: "Ada", LastName: "Lovelace", Address: "12 Analytical St", City: "London", PostalCode: "N1"},
		Items: []models.CartItem{
			{CustomizationState: models.CustomizationState{Text: "For Ada", Color: "#D4AF37"}, CartID: "1-1", ProductID: "1", Name: "The Echo Vessel", Price: 145, Quantity: 1},
			{CustomizationState: models.CustomizationState{Text: "Standard Edition", Color: "#7C9082"}, CartID: "2-1", ProductID: "2", Name: "Celestial Topography", Price: 110, Quantity: 1},
		},
		Total: 255,
	}
}

func TestPlaceRecordsHeaderAndItems(t *testing.T) {
	store := new(mockOrderStore)
	events := new(mockPublisher)

	store.On("InsertOrder", mock.MatchedBy(func(o models.Order) bool {
		return o.FirstName == "Ada" && o.Total == 255 && o.Status == models.OrderStatusProcessing && *o.UserID == "user-1"
	})).Return("order-9", nil)
	store.On("InsertOrderItems", mock.MatchedBy(func(items []models.OrderItem) bool {
		return len(items) == 2 &&
			items[0].OrderID == "order-9" && items[0].CustomizationText == "For Ada" && items[0].CustomizationColor == "#D4AF37" &&
			items[1].ProductID == "2" && items[1].Price == 110
	})).Return(nil)
	events.On("PublishOrderPlaced", mock.MatchedBy(func(evt models.OrderEvent) bool {
		return evt.OrderID == "order-9" && evt.SessionID == "sess-1" && len(evt.Items) == 2
	})).Return(nil)

	id, err := NewOrderSaga(store, events).Place(context.Background(), sampleOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, "order-9", id)

	store.AssertExpectations(t)
	events.AssertExpectations(t)
	store.AssertNotCalled(t, "DeleteOrder", mock.Anything)
}

func TestPlaceHeaderFailureWritesNothingElse(t *testing.T) {
	store := new(mockOrderStore)
	store.On("InsertOrder", mock.Anything).Return("", errors.New("connection refused"))

	_, err := NewOrderSaga(store, nil).Place(context.Background(), sampleOrderRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order header")

	store.AssertNotCalled(t, "InsertOrderItems", mock.Anything)
	store.AssertNotCalled(t, "DeleteOrder", mock.Anything)
}

func TestPlaceItemsFailureDeletesHeader(t *testing.T) {
	store := new(mockOrderStore)
	events := new(mockPublisher)
	itemsErr := errors.New("violates check constraint")

	store.On("InsertOrder", mock.Anything).Return("order-1", nil)
	store.On("InsertOrderItems", mock.Anything).Return(itemsErr)
	store.On("DeleteOrder", "order-1").Return(nil)

	id, err := NewOrderSaga(store, events).Place(context.Background(), sampleOrderRequest())
	assert.Equal(t, "order-1", id)
	assert.ErrorIs(t, err, ErrOrderItemsFailed)
	assert.ErrorIs(t, err, itemsErr)
	assert.Contains(t, err.Error(), "removed")

	store.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything)
}

func TestPlaceMarksIncompleteWhenDeleteFails(t *testing.T) {
	store := new(mockOrderStore)
	store.On("InsertOrder", mock.Anything).Return("order-1", nil)
	store.On("InsertOrderItems", mock.Anything).Return(errors.New("timeout"))
	store.On("DeleteOrder", "order-1").Return(errors.New("permission denied"))
	store.On("UpdateOrderStatus", "order-1", models.OrderStatusIncomplete).Return(nil)

	_, err := NewOrderSaga(store, nil).Place(context.Background(), sampleOrderRequest())
	assert.ErrorIs(t, err, ErrOrderItemsFailed)
	assert.Contains(t, err.Error(), "marked incomplete")
	store.AssertExpectations(t)
}

func TestPlaceReportsOrphanWhenCompensationFails(t *testing.T) {
	store := new(mockOrderStore)
	markErr := errors.New("still down")
	store.On("InsertOrder", mock.Anything).Return("order-1", nil)
	store.On("InsertOrderItems", mock.Anything).Return(errors.New("timeout"))
	store.On("DeleteOrder", "order-1").Return(errors.New("permission denied"))
	store.On("UpdateOrderStatus", "order-1", models.OrderStatusIncomplete).Return(markErr)

	_, err := NewOrderSaga(store, nil).Place(context.Background(), sampleOrderRequest())
	assert.ErrorIs(t, err, ErrOrderItemsFailed)
	assert.ErrorIs(t, err, markErr)
	assert.Contains(t, err.Error(), "orphaned")
}

func TestPlacePublishFailureDoesNotFailOrder(t *testing.T) {
	store := new(mockOrderStore)
	events := new(mockPublisher)
	store.On("InsertOrder", mock.Anything).Return("order-1", nil)
	store.On("InsertOrderItems", mock.Anything).Return(nil)
	events.On("PublishOrderPlaced", mock.Anything).Return(errors.New("broker down"))

	id, err := NewOrderSaga(store, events).Place(context.Background(), sampleOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, "order-1", id)
}

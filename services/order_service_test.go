package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
)

// mockSNS implements aws.SNSPublisher.
type mockSNS struct {
	publishedArn string
	publishedMsg []byte
}

func (m *mockSNS) Publish(ctx context.Context, topicArn string, message []byte) error {
	m.publishedArn = topicArn
	m.publishedMsg = append([]byte(nil), message...)
	return nil
}

type fakeInventory struct {
	calls [][]repository.Increment
}

func (f *fakeInventory) BulkIncrement(_ context.Context, incs []repository.Increment) error {
	f.calls = append(f.calls, incs)
	return nil
}

type countRecorder struct {
	names []string
}

func (c *countRecorder) RecordCount(_ context.Context, name string, _ map[string]string) error {
	c.names = append(c.names, name)
	return nil
}

const topicArn = "arn:aws:sns:eu-west-2:000000000000:order-events"

func seedCart(t *testing.T, carts *memCarts, pid primitive.ObjectID) *models.Cart {
	t.Helper()
	cart := &models.Cart{
		ID:        "cart-1",
		User:      "u1",
		CartItems: []models.CartItem{{ID: "i1", Product: pid.Hex(), Quantity: 2, Price: 10}},
	}
	cart.Recalculate()
	require.NoError(t, carts.SaveCart(context.Background(), cart))
	return cart
}

func TestCreateCashOrder(t *testing.T) {
	orders := newMemStore()
	inventory := &fakeInventory{}
	carts := newMemCarts()
	sns := &mockSNS{}
	metrics := &countRecorder{}
	pid := primitive.NewObjectID()
	seedCart(t, carts, pid)

	svc := NewOrderService(orders, inventory, carts, carts, sns, metrics,
		OrderConfig{TaxPrice: 1.5, ShippingPrice: 5, SNSTopicArn: topicArn}, nil)

	order, err := svc.CreateCashOrder(context.Background(), "u1", "cart-1", "key-1",
		map[string]any{"city": "Pune"})
	require.NoError(t, err)

	assert.Equal(t, 26.5, order["totalOrderPrice"])
	assert.Equal(t, models.PaymentCash, order["paymentMethodType"])
	assert.Equal(t, bson.M{"city": "Pune"}, order["shippingAddress"])
	items := order["cartItems"].(bson.A)
	require.Len(t, items, 1)
	assert.Equal(t, pid, items[0].(bson.M)["product"])

	require.Len(t, inventory.calls, 1)
	assert.Equal(t, []repository.Increment{{ID: pid, Fields: bson.M{"quantity": -2, "sold": 2}}}, inventory.calls[0])

	cart, _ := carts.GetCart(context.Background(), "u1")
	assert.Nil(t, cart)

	assert.Equal(t, topicArn, sns.publishedArn)
	var event OrderEvent
	require.NoError(t, json.Unmarshal(sns.publishedMsg, &event))
	assert.Equal(t, EventOrderCreated, event.Event)
	assert.Equal(t, order["_id"], event.OrderID)
	assert.Equal(t, []OrderItemEvent{{ProductID: pid.Hex(), Quantity: 2}}, event.Items)
	assert.Equal(t, []string{"OrdersCreated"}, metrics.names)

	// replaying the key returns the same order without touching stock again
	again, err := svc.CreateCashOrder(context.Background(), "u1", "cart-1", "key-1", nil)
	require.NoError(t, err)
	assert.Equal(t, order["_id"], again["_id"])
	assert.Equal(t, 1, orders.creates)
	assert.Len(t, inventory.calls, 1)
}

func TestCreateCashOrderWrongCart(t *testing.T) {
	carts := newMemCarts()
	seedCart(t, carts, primitive.NewObjectID())
	svc := NewOrderService(newMemStore(), &fakeInventory{}, carts, nil, nil, nil, OrderConfig{}, nil)

	_, err := svc.CreateCashOrder(context.Background(), "u1", "other", "", nil)
	require.Error(t, err)
	assert.Equal(t, 404, statusOf(err))

	_, err = svc.CreateCashOrder(context.Background(), "u2", "cart-1", "", nil)
	require.Error(t, err)
	assert.Equal(t, 404, statusOf(err))
}

func TestCreateCashOrderAsyncInventory(t *testing.T) {
	inventory := &fakeInventory{}
	carts := newMemCarts()
	pid := primitive.NewObjectID()
	seedCart(t, carts, pid)
	sns := &mockSNS{}
	svc := NewOrderService(newMemStore(), inventory, carts, nil, sns, nil,
		OrderConfig{SNSTopicArn: topicArn, AsyncInventory: true}, nil)

	_, err := svc.CreateCashOrder(context.Background(), "u1", "cart-1", "", nil)
	require.NoError(t, err)
	assert.Empty(t, inventory.calls)

	// the queue delivers the SNS envelope
	envelope, err := json.Marshal(map[string]string{"Type": "Notification", "Message": string(sns.publishedMsg)})
	require.NoError(t, err)
	require.NoError(t, svc.HandleOrderEvent(context.Background(), string(envelope)))
	require.Len(t, inventory.calls, 1)
	assert.Equal(t, pid, inventory.calls[0][0].ID)
}

func TestHandleOrderEventIgnoresOtherEvents(t *testing.T) {
	inventory := &fakeInventory{}
	svc := NewOrderService(newMemStore(), inventory, newMemCarts(), nil, nil, nil, OrderConfig{}, nil)

	require.NoError(t, svc.HandleOrderEvent(context.Background(), `{"event":"order.paid"}`))
	assert.Empty(t, inventory.calls)
	assert.Error(t, svc.HandleOrderEvent(context.Background(), `not json`))
}

func TestMarkPaidAndDelivered(t *testing.T) {
	orders := newMemStore(bson.M{"_id": "o1", "isPaid": false, "isDelivered": false})
	svc := NewOrderService(orders, &fakeInventory{}, newMemCarts(), nil, nil, nil, OrderConfig{}, nil)

	doc, err := svc.MarkPaid(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, true, doc["isPaid"])
	assert.Contains(t, doc, "paidAt")

	doc, err = svc.MarkDelivered(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, true, doc["isDelivered"])

	_, err = svc.MarkPaid(context.Background(), "o2")
	require.Error(t, err)
	assert.Equal(t, 404, statusOf(err))
}

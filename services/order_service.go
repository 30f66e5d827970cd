package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/models"
	awspkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/repository"
)

// EventOrderCreated is published once a cash order is stored.
const EventOrderCreated = "order.created"

type OrderItemEvent struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderEvent struct {
	Event      string           `json:"event"`
	OrderID    string           `json:"orderId"`
	UserID     string           `json:"userId"`
	Items      []OrderItemEvent `json:"items"`
	TotalPrice float64          `json:"totalOrderPrice"`
	Timestamp  time.Time        `json:"timestamp"`
}

type InventoryStore interface {
	BulkIncrement(ctx context.Context, incs []repository.Increment) error
}

type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string) (string, error)
	SetIdempotency(ctx context.Context, key, orderID string, ttl time.Duration) error
}

// CountRecorder is the part of awspkg.MetricsClient the order flow uses.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type OrderConfig struct {
	TaxPrice      float64
	ShippingPrice float64
	SNSTopicArn   string
	// AsyncInventory leaves the stock adjustment to the order event consumer.
	AsyncInventory bool
	IdempotencyTTL time.Duration
}

type OrderService struct {
	orders    repository.Store
	inventory InventoryStore
	carts     CartStore
	idem      IdempotencyStore
	publisher awspkg.SNSPublisher
	metrics   CountRecorder
	cfg       OrderConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderService(orders repository.Store, inventory InventoryStore, carts CartStore, idem IdempotencyStore, publisher awspkg.SNSPublisher, metrics CountRecorder, cfg OrderConfig, log *zap.Logger) *OrderService {
	if cfg.IdempotencyTTL == 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		idem:      idem,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateCashOrder turns the user's cart into an order paid on delivery.
// A repeated idempotency key returns the order created the first time.
func (s *OrderService) CreateCashOrder(ctx context.Context, userID, cartID, idemKey string, shippingAddress map[string]any) (bson.M, error) {
	if idemKey != "" && s.idem != nil {
		orderID, err := s.idem.GetIdempotency(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if orderID != "" {
			doc, err := s.orders.FindByID(ctx, orderID)
			if err == nil {
				return s.orders.Present(doc)[0], nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.ID != cartID {
		return nil, apperrors.NotFound("There is no such cart with id %s", cartID)
	}
	if len(cart.CartItems) == 0 {
		return nil, apperrors.BadRequest("Cart is empty")
	}

	items := make(bson.A, 0, len(cart.CartItems))
	events := make([]OrderItemEvent, 0, len(cart.CartItems))
	for _, item := range cart.CartItems {
		pid, err := primitive.ObjectIDFromHex(item.Product)
		if err != nil {
			return nil, apperrors.BadRequest("Invalid ID format: %s", item.Product)
		}
		line := bson.M{"product": pid, "quantity": item.Quantity, "price": item.Price}
		if item.Color != "" {
			line["color"] = item.Color
		}
		items = append(items, line)
		events = append(events, OrderItemEvent{ProductID: item.Product, Quantity: item.Quantity})
	}

	total := cart.Payable() + s.cfg.TaxPrice + s.cfg.ShippingPrice
	doc := bson.M{
		"user":              userID,
		"cartItems":         items,
		"taxPrice":          s.cfg.TaxPrice,
		"shippingPrice":     s.cfg.ShippingPrice,
		"totalOrderPrice":   total,
		"paymentMethodType": models.PaymentCash,
	}
	if len(shippingAddress) > 0 {
		doc["shippingAddress"] = bson.M(shippingAddress)
	}

	order, err := s.orders.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	orderID := repository.ObjectIDHex(order["_id"])

	if !s.cfg.AsyncInventory {
		if err := s.AdjustInventory(ctx, events); err != nil {
			return nil, err
		}
	}
	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.log.Warn("failed to clear cart after order", zap.String("user_id", userID), zap.Error(err))
	}
	if idemKey != "" && s.idem != nil {
		if err := s.idem.SetIdempotency(ctx, idemKey, orderID, s.cfg.IdempotencyTTL); err != nil {
			s.log.Warn("failed to store idempotency key", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	s.publish(ctx, OrderEvent{
		Event:      EventOrderCreated,
		OrderID:    orderID,
		UserID:     userID,
		Items:      events,
		TotalPrice: total,
		Timestamp:  s.now(),
	})
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricOrdersCreated, map[string]string{"PaymentMethod": models.PaymentCash})
	}
	return s.orders.Present(order)[0], nil
}

// AdjustInventory moves ordered quantities from stock to sold in one bulk write.
func (s *OrderService) AdjustInventory(ctx context.Context, items []OrderItemEvent) error {
	incs := make([]repository.Increment, 0, len(items))
	for _, item := range items {
		pid, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return apperrors.BadRequest("Invalid ID format: %s", item.ProductID)
		}
		incs = append(incs, repository.Increment{
			ID:     pid,
			Fields: bson.M{"quantity": -item.Quantity, "sold": item.Quantity},
		})
	}
	return s.inventory.BulkIncrement(ctx, incs)
}

// HandleOrderEvent consumes order events from the queue. Unknown events are
// acknowledged and ignored.
func (s *OrderService) HandleOrderEvent(ctx context.Context, body string) error {
	var event OrderEvent
	if err := json.Unmarshal([]byte(awspkg.UnwrapSNSEnvelope(body)), &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}
	if event.Event != EventOrderCreated {
		s.log.Debug("ignoring order event", zap.String("event", event.Event))
		return nil
	}
	if err := s.AdjustInventory(ctx, event.Items); err != nil {
		return err
	}
	s.log.Info("inventory adjusted", zap.String("order_id", event.OrderID), zap.Int("items", len(event.Items)))
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricOrderEvents, map[string]string{"Event": event.Event})
	}
	return nil
}

func (s *OrderService) MarkPaid(ctx context.Context, id string) (bson.M, error) {
	return s.mark(ctx, id, bson.M{"isPaid": true, "paidAt": s.now()})
}

func (s *OrderService) MarkDelivered(ctx context.Context, id string) (bson.M, error) {
	return s.mark(ctx, id, bson.M{"isDelivered": true, "deliveredAt": s.now()})
}

func (s *OrderService) mark(ctx context.Context, id string, changes bson.M) (bson.M, error) {
	doc, err := s.orders.FindByIDAndUpdate(ctx, id, changes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("There is no such order with this id: %s", id)
		}
		return nil, err
	}
	return s.orders.Present(doc)[0], nil
}

func (s *OrderService) publish(ctx context.Context, event OrderEvent) {
	if s.publisher == nil || s.cfg.SNSTopicArn == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.cfg.SNSTopicArn, payload); err != nil {
		s.log.Warn("SNS publish failed", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	s.log.Info("order event published", zap.String("order_id", event.OrderID), zap.String("topic", s.cfg.SNSTopicArn))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"clinic/internal/domain"
	"clinic/internal/notify"
	"clinic/internal/pricing"
	"clinic/internal/repository"
	"clinic/internal/validation"
)

// Catalog is the read-only reference data the order service consults.
type Catalog interface {
	MaterialByID(id string) (domain.Material, error)
	OrderTypeByID(id string) (domain.OrderType, error)
}

// Notifier receives committed order events. Publish must not block.
type Notifier interface {
	Publish(ctx context.Context, ev notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notify.Event) {}

// OrderService is the authoritative mutator of orders: every change goes
// through a per-order exclusive section and is committed whole or not at all.
type OrderService struct {
	catalog   Catalog
	pricing   *pricing.Engine
	validator *validation.Validator
	orders    repository.OrderRepository
	tx        repository.TxManager
	clock     domain.Clock
	notifier  Notifier
	logger    *logrus.Logger
	newID     func() string
}

// Option configures an OrderService.
type Option func(*OrderService)

func WithClock(c domain.Clock) Option { return func(s *OrderService) { s.clock = c } }
func WithNotifier(n Notifier) Option { return func(s *OrderService) { s.notifier = n } }
func WithLogger(l *logrus.Logger) Option { return func(s *OrderService) { s.logger = l } }
func WithIDGenerator(f func() string) Option { return func(s *OrderService) { s.newID = f } }

func NewOrderService(
	catalog Catalog,
	engine *pricing.Engine,
	validator *validation.Validator,
	orders repository.OrderRepository,
	tx repository.TxManager,
	opts ...Option,
) *OrderService {
	s := &OrderService{
		catalog:   catalog,
		pricing:   engine,
		validator: validator,
		orders:    orders,
		tx:        tx,
		clock:     domain.SystemClock{},
		notifier:  nopNotifier{},
		logger:    logrus.StandardLogger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads initial orders. Records that disagree with the catalog or carry
// an inconsistent completion state are rejected with ErrDataIntegrity.
func (s *OrderService) Seed(ctx context.Context, orders []domain.Order) error {
	for i := range orders {
		o := orders[i].Clone()
		if err := s.checkIntegrity(o); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return fmt.Errorf("seed order %q: %w", o.ID, err)
		}
	}
	s.logger.WithField("count", len(orders)).Info("Orders seeded")
	return nil
}

func (s *OrderService) checkIntegrity(o domain.Order) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("order %q: %s: %w", o.ID, fmt.Sprintf(format, args...), domain.ErrDataIntegrity)
	}
	if _, err := s.catalog.OrderTypeByID(o.TypeID); err != nil {
		return fail("unknown order type %q", o.TypeID)
	}
	if !o.Status.Valid() {
		return fail("unknown status %q", o.Status)
	}
	for id, qty := range o.Materials {
		if qty <= 0 {
			return fail("non-positive quantity for %q", id)
		}
		if _, err := s.catalog.MaterialByID(id); err != nil {
			return fail("unknown material %q", id)
		}
	}
	completed := o.Status == domain.OrderStatusCompleted
	if completed != (o.CompletedAt != nil) {
		return fail("completed_at must be set exactly when completed")
	}
	if completed != (o.TotalPrice != nil) {
		return fail("total_price must be set exactly when completed")
	}
	return nil
}

// CreateOrder registers a new pending order with empty materials and intake.
func (s *OrderService) CreateOrder(ctx context.Context, patientName, patientID, typeID string) (*domain.Order, error) {
	patientName, patientID = strings.TrimSpace(patientName), strings.TrimSpace(patientID)
	if patientName == "" || patientID == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.catalog.OrderTypeByID(typeID); err != nil {
		return nil, err
	}

	o := domain.Order{
		ID:          s.newID(),
		PatientName: patientName,
		PatientID:   patientID,
		TypeID:      typeID,
		Status:      domain.OrderStatusPending,
		CreatedAt:   s.clock.Now(),
		Materials:   domain.Selection{},
		Intake:      domain.Intake{},
	}
	if err := s.orders.Create(ctx, &o); err != nil {
		return nil, err
	}
	s.publish(ctx, notify.OrderCreated, o)
	return &o, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	return s.orders.List(ctx, f)
}

// Summary aggregates the dashboard counters.
type Summary struct {
	Total      int             `json:"total"`
	Pending    int             `json:"pending"`
	InProgress int             `json:"in_progress"`
	Completed  int             `json:"completed"`
	Today      int             `json:"today"`
	Revenue    decimal.Decimal `json:"revenue"`
}

func (s *OrderService) Summary(ctx context.Context) (Summary, error) {
	list, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return Summary{}, err
	}
	now := s.clock.Now().UTC()
	y, m, d := now.Date()

	sum := Summary{Total: len(list), Revenue: decimal.Zero}
	for _, o := range list {
		switch o.Status {
		case domain.OrderStatusPending:
			sum.Pending++
		case domain.OrderStatusInProgress:
			sum.InProgress++
		case domain.OrderStatusCompleted:
			sum.Completed++
			if o.TotalPrice != nil {
				sum.Revenue = sum.Revenue.Add(*o.TotalPrice)
			}
		}
		if oy, om, od := o.CreatedAt.UTC().Date(); oy == y && om == m && od == d {
			sum.Today++
		}
	}
	return sum, nil
}

// SetStatus moves a non-completed order between pending and in_progress.
// Completion has its own operation so validation and price freezing apply.
func (s *OrderService) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	return s.mutate(ctx, id, notify.OrderStatusChanged, func(o *domain.Order, _ domain.OrderType) error {
		if !status.Valid() || status == domain.OrderStatusCompleted {
			return fmt.Errorf("status %q: %w", status, ErrInvalidTransition)
		}
		o.Status = status
		return nil
	})
}

// SetMaterialSelection replaces the material quantities. Non-positive
// quantities are dropped; every id must exist in the catalog.
func (s *OrderService) SetMaterialSelection(ctx context.Context, id string, sel domain.Selection) (*domain.Order, error) {
	return s.mutate(ctx, id, notify.OrderMaterialsUpdated, func(o *domain.Order, _ domain.OrderType) error {
		for materialID := range sel {
			if _, err := s.catalog.MaterialByID(materialID); err != nil {
				return err
			}
		}
		o.Materials = sel.Normalize()
		return nil
	})
}

// SetMaterialQuantity changes a single material line; qty <= 0 removes it.
func (s *OrderService) SetMaterialQuantity(ctx context.Context, id, materialID string, qty int64) (*domain.Order, error) {
	return s.mutate(ctx, id, notify.OrderMaterialsUpdated, func(o *domain.Order, _ domain.OrderType) error {
		if _, err := s.catalog.MaterialByID(materialID); err != nil {
			return err
		}
		if qty > 0 {
			o.Materials[materialID] = qty
		} else {
			delete(o.Materials, materialID)
		}
		return nil
	})
}

// SetIntake replaces the intake data.
func (s *OrderService) SetIntake(ctx context.Context, id string, in domain.Intake) (*domain.Order, error) {
	return s.mutate(ctx, id, notify.OrderIntakeUpdated, func(o *domain.Order, _ domain.OrderType) error {
		o.Intake = in.Clone()
		return nil
	})
}

// SetIntakeField records one field; the field must belong to the order type.
func (s *OrderService) SetIntakeField(ctx context.Context, id, fieldID string, value any) (*domain.Order, error) {
	return s.mutate(ctx, id, notify.OrderIntakeUpdated, func(o *domain.Order, t domain.OrderType) error {
		if _, ok := t.Field(fieldID); !ok {
			return fmt.Errorf("field %q of order type %q: %w", fieldID, t.ID, domain.ErrNotFound)
		}
		o.Intake[fieldID] = value
		return nil
	})
}

// Complete validates the order and, if eligible, freezes its total and marks
// it completed. A failing validation leaves the order untouched.
func (s *OrderService) Complete(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.mutate(ctx, id, notify.OrderCompleted, func(o *domain.Order, t domain.OrderType) error {
		res, err := s.validator.Validate(t, o.Intake, o.Materials)
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		total, err := s.pricing.ComputeTotal(t, o.Materials, o.Intake)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		o.Status = domain.OrderStatusCompleted
		o.CompletedAt = &now
		o.TotalPrice = &total
		return nil
	})
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			s.logger.WithFields(logrus.Fields{
				"order_id":          id,
				"missing_fields":    ve.MissingFields,
				"missing_materials": ve.MissingMaterials,
			}).Info("Order not eligible for completion")
		}
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"order_id":    o.ID,
		"total_price": o.TotalPrice.StringFixed(2),
	}).Info("Order completed")
	return o, nil
}

// PriceQuote is a live price. Final is set for completed orders, whose
// Total is the frozen price.
type PriceQuote struct {
	pricing.Quote
	Final bool `json:"final"`
}

// Quote prices an order as it currently stands without changing it.
func (s *OrderService) Quote(ctx context.Context, id string) (PriceQuote, error) {
	o, t, err := s.load(ctx, id)
	if err != nil {
		return PriceQuote{}, err
	}
	q, err := s.pricing.Quote(t, o.Materials, o.Intake)
	if err != nil {
		return PriceQuote{}, err
	}
	pq := PriceQuote{Quote: q}
	if o.Status == domain.OrderStatusCompleted && o.TotalPrice != nil {
		pq.Total = *o.TotalPrice
		pq.Final = true
	}
	return pq, nil
}

// Validate reports what still blocks completion of an order.
func (s *OrderService) Validate(ctx context.Context, id string) (validation.Result, error) {
	o, t, err := s.load(ctx, id)
	if err != nil {
		return validation.Result{}, err
	}
	return s.validator.Validate(t, o.Intake, o.Materials)
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, domain.OrderType, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, domain.OrderType{}, err
	}
	t, err := s.orderType(o)
	if err != nil {
		return nil, domain.OrderType{}, err
	}
	return o, t, nil
}

// orderType resolves the type of a stored order; a dangling reference is
// an upstream data defect, not a lookup miss.
func (s *OrderService) orderType(o *domain.Order) (domain.OrderType, error) {
	t, err := s.catalog.OrderTypeByID(o.TypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.OrderType{}, fmt.Errorf("order %q references order type %q: %w", o.ID, o.TypeID, domain.ErrDataIntegrity)
		}
		return domain.OrderType{}, err
	}
	return t, nil
}

// mutate runs fn on a private copy of the order inside the per-id section
// and stores the copy only if fn succeeds.
func (s *OrderService) mutate(ctx context.Context, id, event string, fn func(o *domain.Order, t domain.OrderType) error) (*domain.Order, error) {
	var updated *domain.Order
	err := s.tx.WithOrder(ctx, id, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusCompleted {
			return fmt.Errorf("order %q is completed: %w", id, ErrInvalidTransition)
		}
		t, err := s.orderType(o)
		if err != nil {
			return err
		}
		if err := fn(o, t); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event, *updated)
	return updated, nil
}

func (s *OrderService) publish(ctx context.Context, event string, o domain.Order) {
	s.notifier.Publish(ctx, notify.Event{
		Type:      event,
		OrderID:   o.ID,
		Order:     o.Clone(),
		EventTime: s.clock.Now(),
	})
}

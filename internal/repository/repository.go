package repository

import (
	"context"
	"time"

	"clinic/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = domain.ErrNotFound

// OrderFilter параметры фильтрации списка заказов
type OrderFilter struct {
	Status      domain.OrderStatus
	TypeID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

func (f OrderFilter) match(o domain.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.TypeID != "" && o.TypeID != f.TypeID {
		return false
	}
	if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !o.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	return true
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// TxManager serializes read-modify-write sequences on a single order id.
// Sections on different ids run concurrently.
type TxManager interface {
	WithOrder(ctx context.Context, id string, fn func(ctx context.Context) error) error
}

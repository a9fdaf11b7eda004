// Package seed provides the demo orders loaded into an empty store at startup.
package seed

import (
	"time"

	"github.com/shopspring/decimal"

	"clinic/internal/catalog"
	"clinic/internal/domain"
)

// Orders returns the demo orders relative to now. The completed order's
// total is the price of its recorded materials and intake.
func Orders(now time.Time) []domain.Order {
	now = now.UTC()
	yesterday := now.AddDate(0, 0, -1)
	completedTotal := decimal.NewFromInt(313)

	pending := func(id, name, patientID, typeID string, st domain.OrderStatus) domain.Order {
		return domain.Order{
			ID:          id,
			PatientName: name,
			PatientID:   patientID,
			TypeID:      typeID,
			Status:      st,
			CreatedAt:   now,
			Materials:   domain.Selection{},
			Intake:      domain.Intake{},
		}
	}

	return []domain.Order{
		{
			ID:          "ord1",
			PatientName: "张三",
			PatientID:   "P12345",
			TypeID:      catalog.TeethCleaning,
			Status:      domain.OrderStatusCompleted,
			CreatedAt:   yesterday,
			CompletedAt: &now,
			TotalPrice:  &completedTotal,
			Materials:   domain.Selection{"mat1": 1, "mat2": 1, "mat4": 1, "mat5": 1, "mat8": 2},
			Intake: domain.Intake{
				"previous_cleaning":  "6个月前",
				"tartar_level":       "中度",
				"fluoride_treatment": true,
			},
		},
		pending("ord2", "李四", "P12346", catalog.CavityFilling, domain.OrderStatusPending),
		pending("ord3", "王五", "P12347", catalog.TeethCleaning, domain.OrderStatusInProgress),
		pending("ord4", "赵六", "P12348", catalog.CavityFilling, domain.OrderStatusPending),
		pending("ord5", "孙七", "P12349", catalog.TeethCleaning, domain.OrderStatusPending),
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"clinic/internal/catalog"
	"clinic/internal/domain"
	"clinic/internal/notify"
	"clinic/internal/pricing"
	"clinic/internal/repository"
	"clinic/internal/validation"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(ctx context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var t0 = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*OrderService, *fixedClock, *recorder) {
	t.Helper()
	c := catalog.Default()
	clock := &fixedClock{now: t0}
	rec := &recorder{}
	logger, _ := logtest.NewNullLogger()
	seq := 0
	svc := NewOrderService(
		c,
		pricing.NewEngine(c, pricing.DefaultRules()),
		validation.NewValidator(c),
		repository.NewMemoryStore(),
		repository.NewMemoryTx(),
		WithClock(clock),
		WithNotifier(rec),
		WithLogger(logger),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("ord-%d", seq) }),
	)
	return svc, clock, rec
}

func newCavityOrder(t *testing.T, svc *OrderService) *domain.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), "李四", "P12346", catalog.CavityFilling)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func fillCavityOrder(t *testing.T, svc *OrderService, id string) {
	t.Helper()
	ctx := context.Background()
	sel := domain.Selection{"mat1": 1, "mat3": 1, "mat4": 1, "mat6": 1, "mat7": 2, "mat8": 1}
	if _, err := svc.SetMaterialSelection(ctx, id, sel); err != nil {
		t.Fatalf("set materials: %v", err)
	}
	in := domain.Intake{
		"cavity_count":     "2",
		"xray_needed":      true,
		"cavity_locations": "上颌",
		"filling_material": "树脂",
	}
	if _, err := svc.SetIntake(ctx, id, in); err != nil {
		t.Fatalf("set intake: %v", err)
	}
}

func TestCreateOrder(t *testing.T) {
	svc, _, rec := setup(t)
	o := newCavityOrder(t, svc)

	if o.ID != "ord-1" || o.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.CreatedAt.Equal(t0) {
		t.Fatalf("created_at from clock expected, got %v", o.CreatedAt)
	}
	if o.TotalPrice != nil || o.CompletedAt != nil {
		t.Fatalf("new order must not carry completion data")
	}
	if got := rec.types(); len(got) != 1 || got[0] != notify.OrderCreated {
		t.Fatalf("events: %v", got)
	}
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	if _, err := svc.CreateOrder(ctx, " ", "P1", catalog.TeethCleaning); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty patient, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, "A", "P1", "whitening"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown type, got %v", err)
	}
}

func TestCompleteOrder_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, clock, rec := setup(t)
	o := newCavityOrder(t, svc)
	fillCavityOrder(t, svc, o.ID)

	clock.advance(time.Hour)
	done, err := svc.Complete(ctx, o.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	// 280 base + 200 composite + 1 anaesthetic 120 + 8 + 15 + 5 + 2*25 film + 100 extra cavity + 80 xray
	want := decimal.NewFromInt(280 + 15 + 120 + 8 + 200 + 50 + 5 + 100 + 80)
	if done.Status != domain.OrderStatusCompleted || done.TotalPrice == nil || !done.TotalPrice.Equal(want) {
		t.Fatalf("unexpected completion: status=%s total=%v", done.Status, done.TotalPrice)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("completed_at from clock expected, got %v", done.CompletedAt)
	}

	stored, _ := svc.GetOrder(ctx, o.ID)
	if !stored.TotalPrice.Equal(want) {
		t.Fatalf("total not stored")
	}
	types := rec.types()
	if types[len(types)-1] != notify.OrderCompleted {
		t.Fatalf("expected completed event last, got %v", types)
	}
}

func TestCompleteOrder_SpecScenarioTotal(t *testing.T) {
	ctx := context.Background()
	c := catalog.Default()
	// only the composite and film lines are priced; other required materials are free here
	free := make([]domain.Material, 0)
	for _, m := range c.Materials() {
		if m.ID != "mat6" && m.ID != "mat7" {
			m.Price = decimal.Zero
		}
		free = append(free, m)
	}
	c2, err := catalog.New(free, c.OrderTypes())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewOrderService(c2, pricing.NewEngine(c2, pricing.DefaultRules()), validation.NewValidator(c2),
		repository.NewMemoryStore(), repository.NewMemoryTx(), WithClock(&fixedClock{now: t0}))
	o := newCavityOrder(t, svc)
	fillCavityOrder(t, svc, o.ID)

	done, err := svc.Complete(ctx, o.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.TotalPrice.Equal(decimal.NewFromInt(710)) {
		t.Fatalf("total expected 710, got %s", done.TotalPrice)
	}
}

func TestCompleteOrder_ValidationFailureIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := setup(t)
	o := newCavityOrder(t, svc)
	if _, err := svc.SetStatus(ctx, o.ID, domain.OrderStatusInProgress); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetMaterialSelection(ctx, o.ID, domain.Selection{"mat1": 1}); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.GetOrder(ctx, o.ID)
	eventsBefore := len(rec.types())

	_, err := svc.Complete(ctx, o.ID)
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.MissingFields) != 3 || len(ve.MissingMaterials) != 5 {
		t.Fatalf("unexpected deficiencies: %+v", ve)
	}

	after, _ := svc.GetOrder(ctx, o.ID)
	if after.Status != before.Status || after.TotalPrice != nil || after.CompletedAt != nil {
		t.Fatalf("order changed by failed completion: %+v", after)
	}
	if len(rec.types()) != eventsBefore {
		t.Fatalf("failed completion must not notify")
	}
}

func TestCompletedOrder_IsFrozen(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)
	fillCavityOrder(t, svc, o.ID)
	done, err := svc.Complete(ctx, o.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	attempts := map[string]func() error{
		"status pending":   func() error { _, err := svc.SetStatus(ctx, o.ID, domain.OrderStatusPending); return err },
		"status completed": func() error { _, err := svc.SetStatus(ctx, o.ID, domain.OrderStatusCompleted); return err },
		"materials":        func() error { _, err := svc.SetMaterialSelection(ctx, o.ID, domain.Selection{"mat1": 3}); return err },
		"material line":    func() error { _, err := svc.SetMaterialQuantity(ctx, o.ID, "mat1", 0); return err },
		"intake":           func() error { _, err := svc.SetIntake(ctx, o.ID, domain.Intake{}); return err },
		"intake field":     func() error { _, err := svc.SetIntakeField(ctx, o.ID, "cavity_count", "9"); return err },
		"complete":         func() error { _, err := svc.Complete(ctx, o.ID); return err },
	}
	for name, fn := range attempts {
		if err := fn(); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected invalid transition, got %v", name, err)
		}
	}

	after, _ := svc.GetOrder(ctx, o.ID)
	if after.Status != domain.OrderStatusCompleted || !after.TotalPrice.Equal(*done.TotalPrice) ||
		!after.CompletedAt.Equal(*done.CompletedAt) || after.Materials["mat7"] != 2 || after.Intake["cavity_count"] != "2" {
		t.Fatalf("completed order changed: %+v", after)
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := setup(t)
	o := newCavityOrder(t, svc)

	up, err := svc.SetStatus(ctx, o.ID, domain.OrderStatusInProgress)
	if err != nil || up.Status != domain.OrderStatusInProgress {
		t.Fatalf("to in_progress: %v", err)
	}
	up, err = svc.SetStatus(ctx, o.ID, domain.OrderStatusPending)
	if err != nil || up.Status != domain.OrderStatusPending {
		t.Fatalf("back to pending: %v", err)
	}
	if _, err := svc.SetStatus(ctx, o.ID, domain.OrderStatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("direct completion must be rejected, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, o.ID, "cancelled"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "nope", domain.OrderStatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(rec.types()); n != 3 {
		t.Fatalf("expected 3 events, got %d", n)
	}
}

func TestSetMaterialSelection(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)

	up, err := svc.SetMaterialSelection(ctx, o.ID, domain.Selection{"mat1": 2, "mat3": 0, "mat4": -1})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(up.Materials) != 1 || up.Materials["mat1"] != 2 {
		t.Fatalf("non-positive quantities must be dropped: %v", up.Materials)
	}

	if _, err := svc.SetMaterialSelection(ctx, o.ID, domain.Selection{"mat1": 1, "mat99": 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown material, got %v", err)
	}
	stored, _ := svc.GetOrder(ctx, o.ID)
	if stored.Materials["mat1"] != 2 {
		t.Fatalf("rejected selection must not be stored")
	}

	up, err = svc.SetMaterialSelection(ctx, o.ID, domain.Selection{"mat6": 1})
	if err != nil || len(up.Materials) != 1 || up.Materials["mat6"] != 1 {
		t.Fatalf("selection must be replaced wholesale: %v %v", up.Materials, err)
	}
}

func TestSetMaterialQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)

	up, err := svc.SetMaterialQuantity(ctx, o.ID, "mat7", 2)
	if err != nil || up.Materials["mat7"] != 2 {
		t.Fatalf("add line: %v", err)
	}
	up, err = svc.SetMaterialQuantity(ctx, o.ID, "mat7", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := up.Materials["mat7"]; ok {
		t.Fatalf("zero quantity must remove the line")
	}
	if _, err := svc.SetMaterialQuantity(ctx, o.ID, "mat99", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetIntakeAndField(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)

	in := domain.Intake{"cavity_count": "3"}
	if _, err := svc.SetIntake(ctx, o.ID, in); err != nil {
		t.Fatal(err)
	}
	in["cavity_count"] = "9"
	stored, _ := svc.GetOrder(ctx, o.ID)
	if stored.Intake["cavity_count"] != "3" {
		t.Fatalf("intake must be copied, got %v", stored.Intake["cavity_count"])
	}

	up, err := svc.SetIntakeField(ctx, o.ID, "xray_needed", true)
	if err != nil || up.Intake["xray_needed"] != true || up.Intake["cavity_count"] != "3" {
		t.Fatalf("field update: %v %v", up, err)
	}
	if _, err := svc.SetIntakeField(ctx, o.ID, "fluoride_treatment", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("field of another type must be not found, got %v", err)
	}

	up, err = svc.SetIntake(ctx, o.ID, domain.Intake{"filling_material": "陶瓷"})
	if err != nil || len(up.Intake) != 1 {
		t.Fatalf("intake must be replaced wholesale: %v %v", up, err)
	}
}

func TestQuoteAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)

	q, err := svc.Quote(ctx, o.ID)
	if err != nil || !q.Total.Equal(decimal.NewFromInt(280)) || q.Final {
		t.Fatalf("base quote: %+v %v", q, err)
	}
	res, err := svc.Validate(ctx, o.ID)
	if err != nil || res.OK() {
		t.Fatalf("empty order must not validate: %+v %v", res, err)
	}

	fillCavityOrder(t, svc, o.ID)
	res, _ = svc.Validate(ctx, o.ID)
	if !res.OK() {
		t.Fatalf("filled order must validate: %+v", res)
	}
	live, _ := svc.Quote(ctx, o.ID)
	done, err := svc.Complete(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	final, _ := svc.Quote(ctx, o.ID)
	if !final.Final || !final.Total.Equal(*done.TotalPrice) || !live.Total.Equal(final.Total) {
		t.Fatalf("final quote mismatch: live=%s final=%s", live.Total, final.Total)
	}

	if _, err := svc.Quote(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnknownOrderIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	calls := map[string]func() error{
		"get":       func() error { _, err := svc.GetOrder(ctx, "x"); return err },
		"materials": func() error { _, err := svc.SetMaterialSelection(ctx, "x", nil); return err },
		"intake":    func() error { _, err := svc.SetIntake(ctx, "x", nil); return err },
		"complete":  func() error { _, err := svc.Complete(ctx, "x"); return err },
		"validate":  func() error { _, err := svc.Validate(ctx, "x"); return err },
	}
	for name, fn := range calls {
		if err := fn(); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}

func TestSeed_RejectsBrokenRecords(t *testing.T) {
	ctx := context.Background()
	total := decimal.NewFromInt(150)
	now := t0
	cases := map[string]domain.Order{
		"unknown type":        {ID: "a", TypeID: "whitening", Status: domain.OrderStatusPending},
		"unknown material":    {ID: "b", TypeID: catalog.TeethCleaning, Status: domain.OrderStatusPending, Materials: domain.Selection{"mat99": 1}},
		"completed w/o price": {ID: "c", TypeID: catalog.TeethCleaning, Status: domain.OrderStatusCompleted, CompletedAt: &now},
		"price while pending": {ID: "d", TypeID: catalog.TeethCleaning, Status: domain.OrderStatusPending, TotalPrice: &total},
		"completed w/o time":  {ID: "e", TypeID: catalog.TeethCleaning, Status: domain.OrderStatusCompleted, TotalPrice: &total},
		"unknown status":      {ID: "f", TypeID: catalog.TeethCleaning, Status: "archived"},
	}
	for name, o := range cases {
		svc, _, _ := setup(t)
		if err := svc.Seed(ctx, []domain.Order{o}); !errors.Is(err, domain.ErrDataIntegrity) {
			t.Fatalf("%s: expected data integrity error, got %v", name, err)
		}
	}
}

func TestStoredDanglingTypeIsIntegrityError(t *testing.T) {
	ctx := context.Background()
	c := catalog.Default()
	store := repository.NewMemoryStore()
	if err := store.Create(ctx, &domain.Order{ID: "ghost", TypeID: "removed", Status: domain.OrderStatusPending}); err != nil {
		t.Fatal(err)
	}
	svc := NewOrderService(c, pricing.NewEngine(c, pricing.DefaultRules()), validation.NewValidator(c), store, repository.NewMemoryTx())

	if _, err := svc.Complete(ctx, "ghost"); !errors.Is(err, domain.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
	if _, err := svc.Quote(ctx, "ghost"); !errors.Is(err, domain.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
}

func TestListAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	old := t0.AddDate(0, 0, -2)
	total := decimal.NewFromInt(313)
	if err := svc.Seed(ctx, []domain.Order{
		{ID: "old", TypeID: catalog.TeethCleaning, Status: domain.OrderStatusCompleted, CreatedAt: old, CompletedAt: &old, TotalPrice: &total},
	}); err != nil {
		t.Fatal(err)
	}
	a := newCavityOrder(t, svc)
	newCavityOrder(t, svc)
	if _, err := svc.SetStatus(ctx, a.ID, domain.OrderStatusInProgress); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListOrders(ctx, repository.OrderFilter{TypeID: catalog.CavityFilling})
	if err != nil || len(list) != 2 {
		t.Fatalf("list by type: %d %v", len(list), err)
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 3 || sum.Pending != 1 || sum.InProgress != 1 || sum.Completed != 1 || sum.Today != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !sum.Revenue.Equal(total) {
		t.Fatalf("revenue expected %s, got %s", total, sum.Revenue)
	}
}

func TestConcurrentMutationsOnOneOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	o := newCavityOrder(t, svc)

	var wg sync.WaitGroup
	for i := 1; i <= 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.SetMaterialQuantity(ctx, o.ID, fmt.Sprintf("mat%d", i%8+1), int64(i))
		}(i)
	}
	wg.Wait()

	stored, _ := svc.GetOrder(ctx, o.ID)
	if len(stored.Materials) != 8 {
		t.Fatalf("lost updates: %v", stored.Materials)
	}
}

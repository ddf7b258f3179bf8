package settlement

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/internal/affiliates"
	"github.com/craftora/storefront-backend/internal/customers"
	"github.com/craftora/storefront-backend/internal/giftcards"
	"github.com/craftora/storefront-backend/internal/inventory"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/metrics"
	"github.com/craftora/storefront-backend/pkg/outbox"
	"github.com/craftora/storefront-backend/pkg/outbox/payloads"
	"github.com/craftora/storefront-backend/pkg/types"
)

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type fakeEvents struct {
	emitted []outbox.DomainEvent
}

func (f *fakeEvents) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeEvents) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range f.emitted {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return f.Emit(ctx, tx, event)
}

func (f *fakeEvents) byType(eventType enums.OutboxEventType) []outbox.DomainEvent {
	var matched []outbox.DomainEvent
	for _, event := range f.emitted {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeInventory struct {
	calls  int
	err    error
	result *inventory.DeductionResult
}

func (f *fakeInventory) DeductForOrder(_ context.Context, _ *gorm.DB, _ inventory.DeductInput) (*inventory.DeductionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &inventory.DeductionResult{}, nil
}

func (f *fakeInventory) Restock(context.Context, *gorm.DB, uuid.UUID, uuid.UUID, uuid.UUID, int) error {
	return nil
}

type fakeGiftCards struct {
	calls  int
	err    error
	result *giftcards.RedemptionResult
}

func (f *fakeGiftCards) RedeemForOrder(_ context.Context, _ *gorm.DB, _ giftcards.RedeemInput) (*giftcards.RedemptionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &giftcards.RedemptionResult{}, nil
}

type fakeCustomers struct {
	spendCalls    int
	activityCalls int
	err           error
}

func (f *fakeCustomers) SpendCreditForOrder(_ context.Context, _ *gorm.DB, _ customers.SpendInput) (*customers.SpendResult, error) {
	f.spendCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &customers.SpendResult{}, nil
}

func (f *fakeCustomers) RecordOrderActivity(context.Context, *gorm.DB, uuid.UUID, int) error {
	f.activityCalls++
	return f.err
}

type fakeDiscounts struct {
	calls int
	err   error
}

func (f *fakeDiscounts) RecordUsageForOrder(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ []types.AppliedDiscount) error {
	f.calls++
	return f.err
}

type fakeAffiliates struct {
	calls int
	err   error
}

func (f *fakeAffiliates) RecordCommission(_ context.Context, _ *gorm.DB, _ affiliates.CommissionInput) (*models.InfluencerSale, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.InfluencerSale{}, nil
}

type ledgerFakes struct {
	inventory  *fakeInventory
	giftCards  *fakeGiftCards
	customers  *fakeCustomers
	discounts  *fakeDiscounts
	affiliates *fakeAffiliates
	events     *fakeEvents
	tx         *fakeTx
}

func newLedgerFakes() *ledgerFakes {
	return &ledgerFakes{
		inventory:  &fakeInventory{},
		giftCards:  &fakeGiftCards{},
		customers:  &fakeCustomers{},
		discounts:  &fakeDiscounts{},
		affiliates: &fakeAffiliates{},
		events:     &fakeEvents{},
		tx:         &fakeTx{},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newOrchestrator(t *testing.T, fakes *ledgerFakes) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(OrchestratorDeps{
		Tx:                fakes.tx,
		Inventory:         fakes.inventory,
		GiftCards:         fakes.giftCards,
		Customers:         fakes.customers,
		Discounts:         fakes.discounts,
		Affiliates:        fakes.affiliates,
		Events:            fakes.events,
		Metrics:           metrics.NewSettlementMetrics(prometheus.NewRegistry()),
		Logger:            testLogger(t),
		LowStockThreshold: 3,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func fullSnapshot() *types.OrderSnapshot {
	customerID := uuid.New()
	discountID := uuid.New()
	return &types.OrderSnapshot{
		CustomerID: &customerID,
		Email:      "buyer@example.com",
		LineItems: []types.SnapshotLineItem{
			{ProductID: uuid.New(), VariantID: uuid.New(), Title: "Tee", Quantity: 1, UnitPriceCents: 2000, LineTotalCents: 2000},
		},
		Discounts:        []types.AppliedDiscount{{DiscountID: &discountID, Code: "TEN", AmountCents: 200}},
		GiftCards:        []types.SnapshotGiftCard{{GiftCardID: uuid.New(), AmountCents: 500}},
		StoreCreditCents: 300,
		Affiliate:        &types.SnapshotAffiliate{InfluencerID: uuid.New(), Code: "JORDAN15"},
		TotalCents:       1000,
		Currency:         "USD",
	}
}

func TestOrchestratorRunsEveryStep(t *testing.T) {
	fakes := newLedgerFakes()
	orch := newOrchestrator(t, fakes)

	order := &models.Order{ID: uuid.New(), StoreID: uuid.New(), TotalCents: 1000}
	if err := orch.Run(context.Background(), order, fullSnapshot()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if fakes.inventory.calls != 1 || fakes.discounts.calls != 1 || fakes.giftCards.calls != 1 {
		t.Fatalf("steps not all run: inv=%d disc=%d gc=%d", fakes.inventory.calls, fakes.discounts.calls, fakes.giftCards.calls)
	}
	if fakes.customers.spendCalls != 1 || fakes.affiliates.calls != 1 || fakes.customers.activityCalls != 1 {
		t.Fatalf("steps not all run: credit=%d aff=%d stats=%d", fakes.customers.spendCalls, fakes.affiliates.calls, fakes.customers.activityCalls)
	}
}

func TestOrchestratorIsolatesStepFailures(t *testing.T) {
	fakes := newLedgerFakes()
	fakes.inventory.err = errors.New("variant gone")
	orch := newOrchestrator(t, fakes)

	order := &models.Order{ID: uuid.New(), StoreID: uuid.New(), TotalCents: 1000}
	err := orch.Run(context.Background(), order, fullSnapshot())
	if err == nil {
		t.Fatal("expected aggregated step error")
	}

	// Later steps still ran despite the inventory failure.
	if fakes.discounts.calls != 1 || fakes.giftCards.calls != 1 || fakes.affiliates.calls != 1 {
		t.Fatalf("failure did not stay isolated: disc=%d gc=%d aff=%d", fakes.discounts.calls, fakes.giftCards.calls, fakes.affiliates.calls)
	}
}

func TestOrchestratorEmitsLowStockEvents(t *testing.T) {
	fakes := newLedgerFakes()
	variantID := uuid.New()
	fakes.inventory.result = &inventory.DeductionResult{
		LowStock: []inventory.LowStockVariant{
			{VariantID: variantID, ProductID: uuid.New(), Title: "Tee", Quantity: 1},
		},
	}
	orch := newOrchestrator(t, fakes)

	order := &models.Order{ID: uuid.New(), StoreID: uuid.New()}
	if err := orch.Run(context.Background(), order, fullSnapshot()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := fakes.events.byType(enums.EventLowStockDetected)
	if len(events) != 1 {
		t.Fatalf("low stock events = %d, want 1", len(events))
	}
	if want := uuid.NewSHA1(variantID, order.ID[:]); events[0].AggregateID != want {
		t.Fatalf("aggregate = %s, want %s", events[0].AggregateID, want)
	}
	payload, ok := events[0].Data.(payloads.LowStockDetectedEvent)
	if !ok || payload.VariantID != variantID {
		t.Fatalf("payload mismatch: %+v", events[0].Data)
	}
}

func TestOrchestratorLowStockAlertsPerOrder(t *testing.T) {
	fakes := newLedgerFakes()
	variantID := uuid.New()
	fakes.inventory.result = &inventory.DeductionResult{
		LowStock: []inventory.LowStockVariant{
			{VariantID: variantID, ProductID: uuid.New(), Title: "Tee", Quantity: 2},
		},
	}
	orch := newOrchestrator(t, fakes)

	first := &models.Order{ID: uuid.New(), StoreID: uuid.New()}
	if err := orch.Run(context.Background(), first, fullSnapshot()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// A retried step for the same order deduplicates.
	if err := orch.Run(context.Background(), first, fullSnapshot()); err != nil {
		t.Fatalf("retried run: %v", err)
	}
	second := &models.Order{ID: uuid.New(), StoreID: first.StoreID}
	if err := orch.Run(context.Background(), second, fullSnapshot()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	events := fakes.events.byType(enums.EventLowStockDetected)
	if len(events) != 2 {
		t.Fatalf("low stock events = %d, want one per order", len(events))
	}
	if events[0].AggregateID == events[1].AggregateID {
		t.Fatal("each order's crossing must carry its own aggregate id")
	}
}

func TestOrchestratorEmitsGiftCardDepletedEvents(t *testing.T) {
	fakes := newLedgerFakes()
	cardID := uuid.New()
	fakes.giftCards.result = &giftcards.RedemptionResult{DepletedIDs: []uuid.UUID{cardID}}
	orch := newOrchestrator(t, fakes)

	order := &models.Order{ID: uuid.New(), StoreID: uuid.New()}
	if err := orch.Run(context.Background(), order, fullSnapshot()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := fakes.events.byType(enums.EventGiftCardDepleted)
	if len(events) != 1 || events[0].AggregateID != cardID {
		t.Fatalf("gift card depleted events mismatch: %+v", events)
	}
}

func TestOrchestratorSkipsOptionalStepsWhenAbsent(t *testing.T) {
	fakes := newLedgerFakes()
	orch := newOrchestrator(t, fakes)

	snapshot := &types.OrderSnapshot{
		LineItems:  []types.SnapshotLineItem{{VariantID: uuid.New(), Quantity: 1}},
		TotalCents: 500,
	}
	order := &models.Order{ID: uuid.New(), StoreID: uuid.New(), TotalCents: 500}
	if err := orch.Run(context.Background(), order, snapshot); err != nil {
		t.Fatalf("run: %v", err)
	}

	if fakes.giftCards.calls != 0 {
		t.Fatal("gift card step should be skipped without gift cards")
	}
	if fakes.customers.spendCalls != 0 {
		t.Fatal("credit step should be skipped without credit usage")
	}
	if fakes.affiliates.calls != 0 {
		t.Fatal("affiliate step should be skipped without a referral")
	}
	if fakes.customers.activityCalls != 0 {
		t.Fatal("stats step should be skipped without a customer")
	}
}

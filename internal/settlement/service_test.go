package settlement

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/internal/gateway"
	"github.com/craftora/storefront-backend/internal/orders"
	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/metrics"
	"github.com/craftora/storefront-backend/pkg/types"
)

type stubNormalizer struct {
	gw     enums.Gateway
	signal *gateway.CallbackSignal
	err    error
}

func (s *stubNormalizer) Gateway() enums.Gateway { return s.gw }

func (s *stubNormalizer) Normalize(context.Context, url.Values) (*gateway.CallbackSignal, error) {
	return s.signal, s.err
}

type fakeOrders struct {
	orders       map[uuid.UUID]*models.Order
	pending      map[string]*models.PendingPayment
	rebuilds     int
	nextNumber   int
	markPaid     int
	resolveCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders:     make(map[uuid.UUID]*models.Order),
		pending:    make(map[string]*models.PendingPayment),
		nextNumber: 1000,
	}
}

var _ orders.Service = (*fakeOrders)(nil)

func (f *fakeOrders) FindByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrders) FindPendingPaymentByReference(_ context.Context, gw enums.Gateway, reference string) (*models.PendingPayment, error) {
	pending, ok := f.pending[string(gw)+":"+reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pending, nil
}

func (f *fakeOrders) MarkPaidIfPending(_ context.Context, _ *gorm.DB, orderID uuid.UUID, metadata *types.PaymentMetadata) (bool, error) {
	f.markPaid++
	order, ok := f.orders[orderID]
	if !ok || order.FinancialStatus != enums.FinancialStatusPending {
		return false, nil
	}
	order.FinancialStatus = enums.FinancialStatusPaid
	order.PaymentMetadata = metadata
	return true, nil
}

func (f *fakeOrders) ResolvePendingPayment(_ context.Context, _ *gorm.DB, pendingID uuid.UUID, status enums.PendingPaymentStatus, orderID *uuid.UUID, failureCode *string) error {
	f.resolveCalls++
	for _, pending := range f.pending {
		if pending.ID == pendingID {
			pending.Status = status
			if orderID != nil {
				pending.OrderID = orderID
			}
			pending.FailureCode = failureCode
		}
	}
	return nil
}

func (f *fakeOrders) ClaimPendingPayment(_ context.Context, _ *gorm.DB, pendingID, orderID uuid.UUID) (bool, error) {
	for _, pending := range f.pending {
		if pending.ID == pendingID {
			if pending.OrderID != nil || pending.Status != enums.PendingPaymentInitiated {
				return false, nil
			}
			id := orderID
			pending.OrderID = &id
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) RebuildFromSnapshot(_ context.Context, _ *gorm.DB, pending *models.PendingPayment) (*models.Order, error) {
	if pending.Snapshot == nil {
		return nil, orders.ErrNoSnapshot
	}
	f.rebuilds++
	order := &models.Order{
		ID:              uuid.New(),
		StoreID:         pending.StoreID,
		OrderNumber:     f.nextNumber,
		Email:           pending.Snapshot.Email,
		FinancialStatus: enums.FinancialStatusPending,
		TotalCents:      pending.Snapshot.TotalCents,
		Currency:        pending.Snapshot.Currency,
		Snapshot:        pending.Snapshot,
		IsRecovered:     true,
	}
	f.nextNumber++
	f.orders[order.ID] = order
	return order, nil
}

type fakeMarker struct {
	seen map[string]bool
}

func (f *fakeMarker) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeMarker) CallbackMarkerKey(gw, reference string) string {
	return "sf:callback:" + gw + ":" + reference
}

type fixture struct {
	svc    Service
	orders *fakeOrders
	events *fakeEvents
	ledger *ledgerFakes
}

func newFixture(t *testing.T, normalizer gateway.Normalizer) *fixture {
	t.Helper()
	fakes := newLedgerFakes()
	orch := newOrchestrator(t, fakes)
	ord := newFakeOrders()
	events := &fakeEvents{}

	svc, err := NewService(Deps{
		Registry:     gateway.NewRegistry(normalizer),
		Orders:       ord,
		Orchestrator: orch,
		Tx:           &fakeTx{},
		Events:       events,
		Marker:       &fakeMarker{},
		Metrics:      metrics.NewSettlementMetrics(prometheus.NewRegistry()),
		Logger:       testLogger(t),
		Config: config.SettlementConfig{
			SuccessURL:        "/checkout/confirmation",
			FailureURL:        "/checkout/error",
			CallbackMarkerTTL: time.Hour,
			LowStockThreshold: 3,
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, orders: ord, events: events, ledger: fakes}
}

func successSignal(reference string) *gateway.CallbackSignal {
	return &gateway.CallbackSignal{
		Gateway:   enums.GatewayStripe,
		Succeeded: true,
		Reference: reference,
		Metadata:  &types.PaymentMetadata{Gateway: enums.GatewayStripe, TransactionID: reference},
	}
}

func TestHandleReturnSettlesPendingOrder(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewayStripe, signal: successSignal("pi_1")}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	orderID := uuid.New()
	fx.orders.orders[orderID] = &models.Order{
		ID:              orderID,
		StoreID:         storeID,
		OrderNumber:     1001,
		Email:           "buyer@example.com",
		FinancialStatus: enums.FinancialStatusPending,
		TotalCents:      2500,
		Currency:        "USD",
		Snapshot:        fullSnapshot(),
	}
	fx.orders.pending["stripe:pi_1"] = &models.PendingPayment{
		ID:      uuid.New(),
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		OrderID: &orderID,
		Status:  enums.PendingPaymentInitiated,
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		Params:  url.Values{"payment_intent": {"pi_1"}},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if result.Outcome != metrics.OutcomeSettled {
		t.Fatalf("outcome = %s, want settled", result.Outcome)
	}
	if !strings.HasPrefix(result.RedirectURL, "/checkout/confirmation") {
		t.Fatalf("redirect = %s", result.RedirectURL)
	}
	if fx.orders.orders[orderID].FinancialStatus != enums.FinancialStatusPaid {
		t.Fatal("order should be paid")
	}
	if len(fx.events.byType(enums.EventOrderSettled)) != 1 {
		t.Fatal("order_settled event should be queued once")
	}
	if fx.ledger.inventory.calls != 1 {
		t.Fatal("ledger should run for the winner")
	}
	if pending := fx.orders.pending["stripe:pi_1"]; pending.Status != enums.PendingPaymentCaptured {
		t.Fatalf("pending status = %s, want captured", pending.Status)
	}
}

func TestHandleReturnDuplicateCallbackSkipsLedger(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewayStripe, signal: successSignal("pi_2")}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	orderID := uuid.New()
	fx.orders.orders[orderID] = &models.Order{
		ID:              orderID,
		StoreID:         storeID,
		FinancialStatus: enums.FinancialStatusPaid,
		Snapshot:        fullSnapshot(),
	}
	fx.orders.pending["stripe:pi_2"] = &models.PendingPayment{
		ID:      uuid.New(),
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		OrderID: &orderID,
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if result.Outcome != metrics.OutcomeDuplicate {
		t.Fatalf("outcome = %s, want duplicate", result.Outcome)
	}
	if fx.ledger.inventory.calls != 0 {
		t.Fatal("duplicate must not re-run ledger")
	}
	if fx.orders.markPaid != 0 {
		t.Fatal("already-paid order must not hit the guard")
	}
}

func TestHandleReturnFailedSignalRedirectsWithReason(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewayPayPal, signal: &gateway.CallbackSignal{
		Gateway:     enums.GatewayPayPal,
		Succeeded:   false,
		Reference:   "EC-1",
		FailureCode: enums.FailureReasonPayPalCaptureFailed.String(),
	}}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	fx.orders.pending["paypal:EC-1"] = &models.PendingPayment{
		ID:      uuid.New(),
		StoreID: storeID,
		Gateway: enums.GatewayPayPal,
		Status:  enums.PendingPaymentInitiated,
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewayPayPal,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if !strings.Contains(result.RedirectURL, "reason=paypal_capture_failed") {
		t.Fatalf("redirect = %s", result.RedirectURL)
	}
	if pending := fx.orders.pending["paypal:EC-1"]; pending.Status != enums.PendingPaymentFailed {
		t.Fatalf("pending status = %s, want failed", pending.Status)
	}
	if len(fx.events.byType(enums.EventPaymentFailed)) != 1 {
		t.Fatal("payment_failed event should be queued")
	}
}

func TestHandleReturnRebuildsMissingOrder(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewaySquare, signal: &gateway.CallbackSignal{
		Gateway:   enums.GatewaySquare,
		Succeeded: true,
		Reference: "pay_9",
		Metadata:  &types.PaymentMetadata{Gateway: enums.GatewaySquare},
	}}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	fx.orders.pending["square:pay_9"] = &models.PendingPayment{
		ID:       uuid.New(),
		StoreID:  storeID,
		Gateway:  enums.GatewaySquare,
		Status:   enums.PendingPaymentInitiated,
		Snapshot: fullSnapshot(),
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewaySquare,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if result.Outcome != metrics.OutcomeRecovered {
		t.Fatalf("outcome = %s, want recovered", result.Outcome)
	}
	if fx.orders.rebuilds != 1 {
		t.Fatalf("rebuilds = %d, want 1", fx.orders.rebuilds)
	}
	if len(fx.events.byType(enums.EventOrderRecovered)) != 1 {
		t.Fatal("order_recovered event should be queued")
	}
	if fx.ledger.inventory.calls != 1 {
		t.Fatal("rebuilt order must feed the same ledger")
	}
}

// staleReadOrders serves a fixed number of stale pending payment reads
// before falling through to the live fake, modeling two stateless
// handlers that both loaded the row before either one linked it.
type staleReadOrders struct {
	*fakeOrders
	staleReads int
}

func (s *staleReadOrders) FindPendingPaymentByReference(ctx context.Context, gw enums.Gateway, reference string) (*models.PendingPayment, error) {
	pending, err := s.fakeOrders.FindPendingPaymentByReference(ctx, gw, reference)
	if err != nil {
		return nil, err
	}
	if s.staleReads > 0 {
		s.staleReads--
		stale := *pending
		stale.OrderID = nil
		stale.Status = enums.PendingPaymentInitiated
		return &stale, nil
	}
	return pending, nil
}

func TestHandleReturnConcurrentRebuildSettlesOnce(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewaySquare, signal: &gateway.CallbackSignal{
		Gateway:   enums.GatewaySquare,
		Succeeded: true,
		Reference: "pay_dup",
		Metadata:  &types.PaymentMetadata{Gateway: enums.GatewaySquare},
	}}

	fakes := newLedgerFakes()
	orch := newOrchestrator(t, fakes)
	ord := newFakeOrders()
	// Two reads before the race is visible: one per concurrent handler.
	stale := &staleReadOrders{fakeOrders: ord, staleReads: 2}
	events := &fakeEvents{}

	svc, err := NewService(Deps{
		Registry:     gateway.NewRegistry(normalizer),
		Orders:       stale,
		Orchestrator: orch,
		Tx:           &fakeTx{},
		Events:       events,
		Marker:       &fakeMarker{},
		Metrics:      metrics.NewSettlementMetrics(prometheus.NewRegistry()),
		Logger:       testLogger(t),
		Config: config.SettlementConfig{
			SuccessURL:        "/checkout/confirmation",
			FailureURL:        "/checkout/error",
			CallbackMarkerTTL: time.Hour,
			LowStockThreshold: 3,
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	storeID := uuid.New()
	ord.pending["square:pay_dup"] = &models.PendingPayment{
		ID:       uuid.New(),
		StoreID:  storeID,
		Gateway:  enums.GatewaySquare,
		Status:   enums.PendingPaymentInitiated,
		Snapshot: fullSnapshot(),
	}

	input := HandleReturnInput{StoreID: storeID, Gateway: enums.GatewaySquare, Params: url.Values{}}

	first, err := svc.HandleReturn(context.Background(), input)
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}
	second, err := svc.HandleReturn(context.Background(), input)
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}

	if first.Outcome != metrics.OutcomeRecovered {
		t.Fatalf("first outcome = %s, want recovered", first.Outcome)
	}
	if second.Outcome != metrics.OutcomeDuplicate {
		t.Fatalf("second outcome = %s, want duplicate", second.Outcome)
	}
	if second.OrderID == nil || *second.OrderID != *first.OrderID {
		t.Fatalf("both callbacks must settle the same order: %v vs %v", first.OrderID, second.OrderID)
	}
	if fakes.inventory.calls != 1 {
		t.Fatalf("inventory ledger ran %d times for one settlement event, want 1", fakes.inventory.calls)
	}
	if got := len(events.byType(enums.EventOrderSettled)); got != 1 {
		t.Fatalf("order_settled events = %d, want 1", got)
	}
	if ord.markPaid != 1 {
		t.Fatalf("transition guard hit %d times, want 1", ord.markPaid)
	}
}

func TestHandleReturnResolvedAttemptCannotRebuild(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewaySquare, signal: &gateway.CallbackSignal{
		Gateway:   enums.GatewaySquare,
		Succeeded: true,
		Reference: "pay_done",
		Metadata:  &types.PaymentMetadata{Gateway: enums.GatewaySquare},
	}}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	fx.orders.pending["square:pay_done"] = &models.PendingPayment{
		ID:       uuid.New(),
		StoreID:  storeID,
		Gateway:  enums.GatewaySquare,
		Status:   enums.PendingPaymentFailed,
		Snapshot: fullSnapshot(),
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewaySquare,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if !strings.Contains(result.RedirectURL, "reason=order_not_found") {
		t.Fatalf("redirect = %s", result.RedirectURL)
	}
	if fx.orders.rebuilds != 0 {
		t.Fatalf("rebuilds = %d, want 0 (failed attempt must not seed a rebuild)", fx.orders.rebuilds)
	}
}

func TestHandleReturnUnresolvableRedirectsOrderNotFound(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewayStripe, signal: successSignal("pi_unknown")}
	fx := newFixture(t, normalizer)

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: uuid.New(),
		Gateway: enums.GatewayStripe,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if !strings.Contains(result.RedirectURL, "reason=order_not_found") {
		t.Fatalf("redirect = %s", result.RedirectURL)
	}
	if fx.orders.markPaid != 0 {
		t.Fatal("nothing should be written for an unresolvable signal")
	}
}

func TestHandleReturnMissingSnapshotSettlesDegraded(t *testing.T) {
	normalizer := &stubNormalizer{gw: enums.GatewayStripe, signal: successSignal("pi_3")}
	fx := newFixture(t, normalizer)

	storeID := uuid.New()
	orderID := uuid.New()
	fx.orders.orders[orderID] = &models.Order{
		ID:              orderID,
		StoreID:         storeID,
		FinancialStatus: enums.FinancialStatusPending,
	}
	fx.orders.pending["stripe:pi_3"] = &models.PendingPayment{
		ID:      uuid.New(),
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		OrderID: &orderID,
	}

	result, err := fx.svc.HandleReturn(context.Background(), HandleReturnInput{
		StoreID: storeID,
		Gateway: enums.GatewayStripe,
		Params:  url.Values{},
	})
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}

	if result.Outcome != metrics.OutcomeSettled {
		t.Fatalf("outcome = %s, want settled", result.Outcome)
	}
	if fx.orders.orders[orderID].FinancialStatus != enums.FinancialStatusPaid {
		t.Fatal("order should still be marked paid")
	}
	if fx.ledger.inventory.calls != 0 {
		t.Fatal("ledger must not run without a snapshot")
	}
	if len(fx.events.byType(enums.EventSettlementDegrade)) != 1 {
		t.Fatal("settlement_degraded event should be queued")
	}
}

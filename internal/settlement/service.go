package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/internal/gateway"
	"github.com/craftora/storefront-backend/internal/orders"
	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/metrics"
	"github.com/craftora/storefront-backend/pkg/outbox"
	"github.com/craftora/storefront-backend/pkg/outbox/payloads"
)

// CallbackMarker is the advisory duplicate-callback fast path backed by
// Redis. The conditional UPDATE on the order row stays authoritative.
type CallbackMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CallbackMarkerKey(gateway, reference string) string
}

// HandleReturnInput is one gateway callback to settle.
type HandleReturnInput struct {
	StoreID uuid.UUID
	Gateway enums.Gateway
	Params  url.Values
}

// Result tells the HTTP layer where to send the customer.
type Result struct {
	RedirectURL string
	Outcome     string
	OrderID     *uuid.UUID
	OrderNumber int
}

// Service drives a gateway callback through normalization, resolution,
// the transition guard, and the ledger orchestrator.
type Service interface {
	HandleReturn(ctx context.Context, input HandleReturnInput) (*Result, error)
}

// Deps carries the service's collaborators.
type Deps struct {
	Registry     *gateway.Registry
	Orders       orders.Service
	Orchestrator *Orchestrator
	Tx           Transactor
	Events       EventEmitter
	Marker       CallbackMarker
	Metrics      *metrics.SettlementMetrics
	Logger       *logger.Logger
	Config       config.SettlementConfig
}

type service struct {
	registry     *gateway.Registry
	orders       orders.Service
	orchestrator *Orchestrator
	tx           Transactor
	events       EventEmitter
	marker       CallbackMarker
	metrics      *metrics.SettlementMetrics
	logg         *logger.Logger
	cfg          config.SettlementConfig
}

// NewService validates dependencies and builds the settlement service.
func NewService(deps Deps) (Service, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("ledger orchestrator required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transactor required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		registry:     deps.Registry,
		orders:       deps.Orders,
		orchestrator: deps.Orchestrator,
		tx:           deps.Tx,
		events:       deps.Events,
		marker:       deps.Marker,
		metrics:      deps.Metrics,
		logg:         deps.Logger,
		cfg:          deps.Config,
	}, nil
}

func (s *service) HandleReturn(ctx context.Context, input HandleReturnInput) (*Result, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration(input.Gateway.String(), time.Since(started))
	}()

	ctx = s.logg.WithGateway(ctx, input.Gateway.String())
	ctx = s.logg.WithStoreID(ctx, input.StoreID.String())

	normalizer, ok := s.registry.Resolve(input.Gateway)
	if !ok {
		s.logg.Error(ctx, "no normalizer registered for gateway", nil)
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return s.failure(enums.FailureReasonPaymentFailed), nil
	}

	signal, err := normalizer.Normalize(ctx, input.Params)
	if err != nil {
		s.logg.Error(ctx, "callback normalization failed", err)
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return s.failure(enums.FailureReasonPaymentFailed), nil
	}

	if !signal.Succeeded {
		return s.recordFailure(ctx, input.StoreID, signal)
	}

	s.markCallback(ctx, signal)

	order, pending, recovered, result := s.resolve(ctx, input.StoreID, signal)
	if result != nil {
		return result, nil
	}

	if order.FinancialStatus == enums.FinancialStatusPaid {
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(ctx, "duplicate callback for settled order")
		s.metrics.IncOutcome(metrics.OutcomeDuplicate)
		return s.success(order, metrics.OutcomeDuplicate), nil
	}

	snapshot := order.Snapshot
	if snapshot == nil && pending != nil {
		snapshot = pending.Snapshot
	}
	degraded := snapshot == nil

	won, err := s.transition(ctx, order, pending, signal, degraded, recovered)
	if err != nil {
		return nil, err
	}
	if !won {
		s.metrics.IncOutcome(metrics.OutcomeDuplicate)
		return s.success(order, metrics.OutcomeDuplicate), nil
	}

	if degraded {
		s.settleDegraded(ctx, order)
	} else if err := s.orchestrator.Run(ctx, order, snapshot); err != nil {
		// The transition is durable; step failures were already
		// logged and counted individually.
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "settlement completed with ledger gaps")
	}

	outcome := metrics.OutcomeSettled
	if recovered {
		outcome = metrics.OutcomeRecovered
	}
	s.metrics.IncOutcome(outcome)
	return s.success(order, outcome), nil
}

// resolve locates the order to settle, rebuilding it from the pending
// payment snapshot when no order was pre-created. A non-nil Result
// means the signal was unresolvable and the caller should return it.
func (s *service) resolve(ctx context.Context, storeID uuid.UUID, signal *gateway.CallbackSignal) (*models.Order, *models.PendingPayment, bool, *Result) {
	var order *models.Order

	if ref, err := uuid.Parse(signal.OrderRef); err == nil {
		found, err := s.orders.FindByID(ctx, ref)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "order lookup failed", err)
		}
		if found != nil && found.StoreID == storeID {
			order = found
		}
	}

	var pending *models.PendingPayment
	if signal.Reference != "" {
		found, err := s.orders.FindPendingPaymentByReference(ctx, signal.Gateway, signal.Reference)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "pending payment lookup failed", err)
		}
		if found != nil && found.StoreID == storeID {
			pending = found
		}
	}

	if order == nil && pending != nil && pending.OrderID != nil {
		found, err := s.orders.FindByID(ctx, *pending.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "linked order lookup failed", err)
		}
		order = found
	}

	if order != nil {
		return order, pending, false, nil
	}

	if pending == nil {
		s.logg.Warn(ctx, "callback matched neither order nor pending payment")
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return nil, nil, false, s.failure(enums.FailureReasonOrderNotFound)
	}

	// Only an open attempt may seed a rebuild. A failed or abandoned
	// attempt replayed with a success signal has nothing to settle.
	if pending.Status != enums.PendingPaymentInitiated {
		s.logg.Warn(s.logg.WithField(ctx, "pending_status", pending.Status.String()),
			"resolved attempt cannot drive a rebuild")
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return nil, nil, false, s.failure(enums.FailureReasonOrderNotFound)
	}

	rebuilt, err := s.rebuild(ctx, pending)
	if errors.Is(err, errClaimLost) {
		// A concurrent duplicate claimed the pending payment while we
		// were rebuilding. Settle against the winner's order.
		return s.resolveClaimWinner(ctx, storeID, signal)
	}
	if err != nil {
		s.logg.Error(ctx, "order rebuild from snapshot failed", err)
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return nil, nil, false, s.failure(enums.FailureReasonOrderNotFound)
	}
	return rebuilt, pending, true, nil
}

// resolveClaimWinner re-reads the pending payment after a lost rebuild
// race and hands back the order the winning caller linked.
func (s *service) resolveClaimWinner(ctx context.Context, storeID uuid.UUID, signal *gateway.CallbackSignal) (*models.Order, *models.PendingPayment, bool, *Result) {
	pending, err := s.orders.FindPendingPaymentByReference(ctx, signal.Gateway, signal.Reference)
	if err != nil || pending == nil || pending.StoreID != storeID || pending.OrderID == nil {
		s.logg.Error(ctx, "pending payment vanished after lost rebuild race", err)
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return nil, nil, false, s.failure(enums.FailureReasonOrderNotFound)
	}
	order, err := s.orders.FindByID(ctx, *pending.OrderID)
	if err != nil || order == nil {
		s.logg.Error(ctx, "winner's order missing after lost rebuild race", err)
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		return nil, nil, false, s.failure(enums.FailureReasonOrderNotFound)
	}
	return order, pending, false, nil
}

// errClaimLost marks a rebuild abandoned because a concurrent caller
// claimed the pending payment first. The transaction rolls back the
// loser's order.
var errClaimLost = errors.New("pending payment claimed by concurrent settlement")

// rebuild constructs the missing order, claims the pending payment with
// a conditional UPDATE, and records the recovery event, all in one
// transaction. The claim is what keeps two concurrent duplicates from
// each building an order off the same pending payment.
func (s *service) rebuild(ctx context.Context, pending *models.PendingPayment) (*models.Order, error) {
	var rebuilt *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.RebuildFromSnapshot(ctx, tx, pending)
		if err != nil {
			return err
		}
		rebuilt = order
		claimed, err := s.orders.ClaimPendingPayment(ctx, tx, pending.ID, order.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return errClaimLost
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRecovered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			StoreID:       order.StoreID,
			Data: payloads.OrderRecoveredEvent{
				OrderID:          order.ID,
				StoreID:          order.StoreID,
				PendingPaymentID: pending.ID,
				Gateway:          pending.Gateway,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}

// transition runs the guard: a single conditional UPDATE decides which
// concurrent caller settles the order. The order_settled event and the
// pending payment resolution commit atomically with the flip.
func (s *service) transition(ctx context.Context, order *models.Order, pending *models.PendingPayment, signal *gateway.CallbackSignal, degraded, recovered bool) (bool, error) {
	var won bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		settled, err := s.orders.MarkPaidIfPending(ctx, tx, order.ID, signal.Metadata)
		if err != nil {
			return err
		}
		won = settled
		if !settled {
			return nil
		}

		if pending != nil {
			orderID := order.ID
			if err := s.orders.ResolvePendingPayment(ctx, tx, pending.ID, enums.PendingPaymentCaptured, &orderID, nil); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			StoreID:       order.StoreID,
			Data: payloads.OrderSettledEvent{
				OrderID:     order.ID,
				StoreID:     order.StoreID,
				OrderNumber: order.OrderNumber,
				Gateway:     signal.Gateway,
				Email:       order.Email,
				TotalCents:  order.TotalCents,
				Currency:    order.Currency,
				SettledAt:   now,
				Degraded:    degraded,
				Recovered:   recovered,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if won {
		order.FinancialStatus = enums.FinancialStatusPaid
		order.PaymentMetadata = signal.Metadata
	}
	return won, nil
}

// recordFailure resolves the pending payment as failed and queues the
// payment_failed event. Failures here are logged, never surfaced.
func (s *service) recordFailure(ctx context.Context, storeID uuid.UUID, signal *gateway.CallbackSignal) (*Result, error) {
	reason := enums.CheckoutFailureReason(signal.FailureCode)
	if !reason.IsValid() {
		reason = enums.FailureReasonPaymentFailed
	}
	if reason == enums.FailureReasonPayPalCaptureFailed {
		s.metrics.IncCaptureFailure(signal.Gateway.String())
	}

	var pending *models.PendingPayment
	if signal.Reference != "" {
		found, err := s.orders.FindPendingPaymentByReference(ctx, signal.Gateway, signal.Reference)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "pending payment lookup failed", err)
		}
		if found != nil && found.StoreID == storeID {
			pending = found
		}
	}

	if pending != nil {
		failureCode := reason.String()
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.ResolvePendingPayment(ctx, tx, pending.ID, enums.PendingPaymentFailed, nil, &failureCode); err != nil {
				return err
			}
			return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   pending.ID,
				StoreID:       storeID,
				Data: payloads.PaymentFailedEvent{
					OrderID:     pending.OrderID,
					StoreID:     storeID,
					Gateway:     signal.Gateway,
					Reason:      reason,
					FailureCode: signal.FailureCode,
				},
			})
		})
		if err != nil {
			s.logg.Error(ctx, "recording payment failure", err)
		}
	}

	s.logg.Warn(s.logg.WithField(ctx, "reason", reason.String()), "payment callback resolved to failure")
	s.metrics.IncOutcome(metrics.OutcomeFailed)
	return s.failure(reason), nil
}

// settleDegraded records that the order was marked paid without ledger
// execution because no snapshot survived.
func (s *service) settleDegraded(ctx context.Context, order *models.Order) {
	s.metrics.IncDegraded()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementDegrade,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			StoreID:       order.StoreID,
			Data: payloads.SettlementDegradedEvent{
				OrderID: order.ID,
				StoreID: order.StoreID,
				Reason:  "missing cart snapshot",
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "recording degraded settlement", err)
	}
	s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()),
		"order settled without ledger execution, snapshot missing")
}

// markCallback records the advisory duplicate-detection marker.
func (s *service) markCallback(ctx context.Context, signal *gateway.CallbackSignal) {
	if s.marker == nil || signal.Reference == "" {
		return
	}
	key := s.marker.CallbackMarkerKey(signal.Gateway.String(), signal.Reference)
	fresh, err := s.marker.SetNX(ctx, key, "1", s.cfg.CallbackMarkerTTL)
	if err != nil {
		s.logg.Warn(ctx, "callback marker write failed")
		return
	}
	if !fresh {
		s.logg.Info(s.logg.WithField(ctx, "reference", signal.Reference),
			"duplicate callback suspected, continuing to guard")
	}
}

func (s *service) success(order *models.Order, outcome string) *Result {
	params := url.Values{}
	params.Set("order_id", order.ID.String())
	orderID := order.ID
	return &Result{
		RedirectURL: appendQuery(s.cfg.SuccessURL, params),
		Outcome:     outcome,
		OrderID:     &orderID,
		OrderNumber: order.OrderNumber,
	}
}

func (s *service) failure(reason enums.CheckoutFailureReason) *Result {
	params := url.Values{}
	params.Set("reason", reason.String())
	return &Result{
		RedirectURL: appendQuery(s.cfg.FailureURL, params),
		Outcome:     metrics.OutcomeFailed,
	}
}

func appendQuery(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/internal/affiliates"
	"github.com/craftora/storefront-backend/internal/customers"
	"github.com/craftora/storefront-backend/internal/discounts"
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

// Ledger step labels used in logs and metrics.
const (
	stepInventory     = "inventory"
	stepDiscounts     = "discounts"
	stepGiftCards     = "gift_cards"
	stepStoreCredit   = "store_credit"
	stepAffiliate     = "affiliate"
	stepCustomerStats = "customer_stats"
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Orchestrator runs the post-transition ledger steps. Each step commits
// in its own transaction so one failing sub-ledger never rolls back the
// others or the paid transition itself.
type Orchestrator struct {
	tx         Transactor
	inventory  inventory.Service
	giftCards  giftcards.Service
	customers  customers.Service
	discounts  discounts.Service
	affiliates affiliates.Service
	events     EventEmitter
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger

	lowStockThreshold int
}

// OrchestratorDeps carries everything the orchestrator needs.
type OrchestratorDeps struct {
	Tx                Transactor
	Inventory         inventory.Service
	GiftCards         giftcards.Service
	Customers         customers.Service
	Discounts         discounts.Service
	Affiliates        affiliates.Service
	Events            EventEmitter
	Metrics           *metrics.SettlementMetrics
	Logger            *logger.Logger
	LowStockThreshold int
}

// NewOrchestrator validates dependencies and builds the ledger runner.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("transactor required")
	}
	if deps.Inventory == nil || deps.GiftCards == nil || deps.Customers == nil ||
		deps.Discounts == nil || deps.Affiliates == nil {
		return nil, fmt.Errorf("all ledger services are required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Orchestrator{
		tx:                deps.Tx,
		inventory:         deps.Inventory,
		giftCards:         deps.GiftCards,
		customers:         deps.Customers,
		discounts:         deps.Discounts,
		affiliates:        deps.Affiliates,
		events:            deps.Events,
		metrics:           deps.Metrics,
		logg:              deps.Logger,
		lowStockThreshold: deps.LowStockThreshold,
	}, nil
}

// Run executes every ledger step for a freshly settled order. It only
// runs for the caller that won the paid transition. The returned error
// aggregates step failures for logging; the settlement itself is
// already durable regardless.
func (o *Orchestrator) Run(ctx context.Context, order *models.Order, snapshot *types.OrderSnapshot) error {
	if order == nil || snapshot == nil {
		return fmt.Errorf("order and snapshot required")
	}

	var errs error

	errs = multierr.Append(errs, o.step(ctx, order, stepInventory, func(tx *gorm.DB) error {
		result, err := o.inventory.DeductForOrder(ctx, tx, inventory.DeductInput{
			StoreID:   order.StoreID,
			OrderID:   order.ID,
			LineItems: snapshot.LineItems,
			Threshold: o.lowStockThreshold,
		})
		if err != nil {
			return err
		}
		for _, low := range result.LowStock {
			// The aggregate id is derived from the order and variant
			// pair so each order that drives a variant low gets its own
			// alert, while a retried inventory step stays deduplicated.
			event := outbox.DomainEvent{
				EventType:     enums.EventLowStockDetected,
				AggregateType: enums.AggregateInventory,
				AggregateID:   uuid.NewSHA1(low.VariantID, order.ID[:]),
				StoreID:       order.StoreID,
				Data: payloads.LowStockDetectedEvent{
					StoreID:   order.StoreID,
					VariantID: low.VariantID,
					ProductID: low.ProductID,
					Title:     low.Title,
					Quantity:  low.Quantity,
					Threshold: o.lowStockThreshold,
				},
			}
			if err := o.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	}))

	errs = multierr.Append(errs, o.step(ctx, order, stepDiscounts, func(tx *gorm.DB) error {
		return o.discounts.RecordUsageForOrder(ctx, tx, order.ID, snapshot.Discounts)
	}))

	errs = multierr.Append(errs, o.step(ctx, order, stepGiftCards, func(tx *gorm.DB) error {
		if len(snapshot.GiftCards) == 0 {
			return nil
		}
		result, err := o.giftCards.RedeemForOrder(ctx, tx, giftcards.RedeemInput{
			StoreID:   order.StoreID,
			OrderID:   order.ID,
			GiftCards: snapshot.GiftCards,
		})
		if err != nil {
			return err
		}
		for _, giftCardID := range result.DepletedIDs {
			event := outbox.DomainEvent{
				EventType:     enums.EventGiftCardDepleted,
				AggregateType: enums.AggregateGiftCard,
				AggregateID:   giftCardID,
				StoreID:       order.StoreID,
				Data: payloads.GiftCardDepletedEvent{
					GiftCardID: giftCardID,
					StoreID:    order.StoreID,
					OrderID:    order.ID,
				},
			}
			if err := o.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	}))

	errs = multierr.Append(errs, o.step(ctx, order, stepStoreCredit, func(tx *gorm.DB) error {
		if snapshot.StoreCreditCents <= 0 || snapshot.CustomerID == nil {
			return nil
		}
		_, err := o.customers.SpendCreditForOrder(ctx, tx, customers.SpendInput{
			StoreID:     order.StoreID,
			OrderID:     order.ID,
			CustomerID:  *snapshot.CustomerID,
			AmountCents: snapshot.StoreCreditCents,
		})
		return err
	}))

	errs = multierr.Append(errs, o.step(ctx, order, stepAffiliate, func(tx *gorm.DB) error {
		if snapshot.Affiliate == nil {
			return nil
		}
		_, err := o.affiliates.RecordCommission(ctx, tx, affiliates.CommissionInput{
			StoreID:         order.StoreID,
			OrderID:         order.ID,
			InfluencerID:    snapshot.Affiliate.InfluencerID,
			OrderTotalCents: order.TotalCents,
		})
		return err
	}))

	errs = multierr.Append(errs, o.step(ctx, order, stepCustomerStats, func(tx *gorm.DB) error {
		if snapshot.CustomerID == nil {
			return nil
		}
		return o.customers.RecordOrderActivity(ctx, tx, *snapshot.CustomerID, order.TotalCents)
	}))

	return errs
}

// step runs one ledger step in its own transaction, recording but not
// propagating a failure as fatal.
func (o *Orchestrator) step(ctx context.Context, order *models.Order, name string, fn func(tx *gorm.DB) error) error {
	err := o.tx.WithTx(ctx, fn)
	if err == nil {
		return nil
	}
	o.metrics.IncLedgerStepFailure(name)
	logCtx := o.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"step":     name,
	})
	o.logg.Error(logCtx, "ledger step failed after settlement", err)
	return fmt.Errorf("%s: %w", name, err)
}

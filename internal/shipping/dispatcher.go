package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/db"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/outbox"
	"github.com/craftora/storefront-backend/pkg/outbox/payloads"
)

// Store setting that opts a merchant into carrier auto-dispatch.
const autoDispatchSetting = "auto_dispatch_shipments"

const retryBaseDelay = 500 * time.Millisecond

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reacts to settled orders by creating shipments and pushing
// them to the carrier. Dispatch is best effort: a carrier failure is
// recorded on the shipment row, never bounced back to the event stream
// for endless redelivery.
type Service interface {
	RequestForOrder(ctx context.Context, event *payloads.OrderSettledEvent) error
	HandleShipmentRequested(ctx context.Context, event *payloads.ShipmentRequestedEvent) error
}

type service struct {
	repo    Repository
	carrier Carrier
	tx      Transactor
	events  EventEmitter
	logg    *logger.Logger
	cfg     config.ShippingConfig
}

// Deps carries everything the dispatcher needs.
type Deps struct {
	Repo    Repository
	Carrier Carrier
	Tx      Transactor
	Events  EventEmitter
	Logger  *logger.Logger
	Config  config.ShippingConfig
}

// NewService validates dependencies and builds the shipment dispatcher.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	if deps.Carrier == nil {
		return nil, fmt.Errorf("carrier client required")
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
	if deps.Config.MaxAttempts < 1 {
		deps.Config.MaxAttempts = 1
	}
	return &service{
		repo:    deps.Repo,
		carrier: deps.Carrier,
		tx:      deps.Tx,
		events:  deps.Events,
		logg:    deps.Logger,
		cfg:     deps.Config,
	}, nil
}

// RequestForOrder creates the order's shipment row and queues the
// dispatch event. Stores that have not enabled auto-dispatch, and
// orders without a shipping address, are skipped.
func (s *service) RequestForOrder(ctx context.Context, event *payloads.OrderSettledEvent) error {
	if event == nil {
		return fmt.Errorf("event required")
	}
	ctx = s.logg.WithOrderID(s.logg.WithStoreID(ctx, event.StoreID.String()), event.OrderID.String())

	store, err := s.repo.FindStore(ctx, event.StoreID)
	if err != nil {
		return err
	}
	if !autoDispatchEnabled(store) {
		return nil
	}

	order, err := s.repo.FindOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}
	if order.ShippingAddress == nil {
		s.logg.Info(ctx, "order has no shipping address, auto-dispatch skipped")
		return nil
	}

	if _, err := s.repo.FindByOrderID(ctx, order.ID); err == nil {
		// Replayed event; the shipment already exists.
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	shipment := models.Shipment{
		StoreID:         order.StoreID,
		OrderID:         order.ID,
		Status:          enums.ShipmentStatusPending,
		ShippingAddress: order.ShippingAddress,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &shipment); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentRequested,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			StoreID:       order.StoreID,
			Data: payloads.ShipmentRequestedEvent{
				ShipmentID: shipment.ID,
				OrderID:    order.ID,
				StoreID:    order.StoreID,
			},
		})
	})
	if db.IsUniqueViolation(err, "ux_shipments_order") {
		// Lost the race to a concurrent consumer; its shipment stands.
		return nil
	}
	return err
}

// HandleShipmentRequested pushes a pending shipment to the carrier with
// bounded retries. Terminal failures are written to the shipment row
// and the event is considered handled.
func (s *service) HandleShipmentRequested(ctx context.Context, event *payloads.ShipmentRequestedEvent) error {
	if event == nil {
		return fmt.Errorf("event required")
	}
	ctx = s.logg.WithOrderID(s.logg.WithStoreID(ctx, event.StoreID.String()), event.OrderID.String())
	ctx = s.logg.WithField(ctx, "shipment_id", event.ShipmentID.String())

	shipment, err := s.repo.FindByID(ctx, event.ShipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "shipment missing for dispatch event")
			return nil
		}
		return err
	}
	if shipment.Status != enums.ShipmentStatusPending {
		return nil
	}

	order, err := s.repo.FindOrder(ctx, shipment.OrderID)
	if err != nil {
		return err
	}

	req := DispatchRequest{
		Reference: fmt.Sprintf("%s%d", s.orderPrefix(ctx, order.StoreID), order.OrderNumber),
		Recipient: shipment.ShippingAddress,
	}
	if order.ShippingLine != nil {
		req.Service = order.ShippingLine.Code
	}

	resp, err := s.dispatchWithRetry(ctx, req)
	if err != nil {
		s.logg.Error(ctx, "carrier dispatch failed, shipment marked failed", err)
		return s.repo.MarkFailed(ctx, shipment.ID, err.Error())
	}

	if err := s.repo.MarkDispatched(ctx, shipment.ID, resp.CarrierCode, resp.TrackingNumber, resp.TrackingURL); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "tracking_number", resp.TrackingNumber), "shipment dispatched")
	return nil
}

// dispatchWithRetry retries gateway-class carrier errors with
// exponential backoff up to the configured attempt budget. Validation
// rejections fail immediately.
func (s *service) dispatchWithRetry(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), retry.NewExponential(retryBaseDelay))

	var resp *DispatchResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, err := s.carrier.Dispatch(ctx, req)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
				return retry.RetryableError(err)
			}
			return err
		}
		resp = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *service) orderPrefix(ctx context.Context, storeID uuid.UUID) string {
	store, err := s.repo.FindStore(ctx, storeID)
	if err != nil || store.OrderPrefix == "" {
		return "#"
	}
	return store.OrderPrefix
}

func autoDispatchEnabled(store *models.Store) bool {
	if store == nil || store.Settings == nil {
		return false
	}
	enabled, _ := (*store.Settings)[autoDispatchSetting].(bool)
	return enabled
}

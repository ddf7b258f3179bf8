package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/mailer"
	"github.com/craftora/storefront-backend/pkg/outbox/payloads"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Service turns settled-order domain events into emails and
// notification rows. Every handler is best effort: a delivery failure
// is recorded and logged, never propagated as a processing error that
// would redeliver the event forever.
type Service interface {
	HandleOrderSettled(ctx context.Context, event *payloads.OrderSettledEvent) error
	HandlePaymentFailed(ctx context.Context, event *payloads.PaymentFailedEvent) error
	HandleLowStock(ctx context.Context, event *payloads.LowStockDetectedEvent) error
}

type service struct {
	repo   Repository
	sender mailer.Sender
	logg   *logger.Logger
}

// NewService wires the notification dispatcher.
func NewService(repo Repository, sender mailer.Sender, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, sender: sender, logg: logg}, nil
}

// HandleOrderSettled sends the customer their confirmation email with
// itemized totals.
func (s *service) HandleOrderSettled(ctx context.Context, event *payloads.OrderSettledEvent) error {
	if event == nil {
		return fmt.Errorf("event required")
	}
	ctx = s.logg.WithOrderID(ctx, event.OrderID.String())

	order, err := s.repo.FindOrder(ctx, event.OrderID)
	if err != nil {
		// Render from the event alone rather than dropping the email.
		s.logg.Warn(ctx, "order lookup failed, sending summary confirmation")
		order = nil
	}

	subject := fmt.Sprintf("Order confirmation #%d", event.OrderNumber)
	orderID := event.OrderID
	row := models.Notification{
		StoreID:   event.StoreID,
		Type:      enums.NotificationOrderConfirmation,
		Recipient: event.Email,
		Subject:   &subject,
		OrderID:   &orderID,
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return err
	}

	message := mailer.Message{
		To:       event.Email,
		Subject:  subject,
		TextBody: confirmationText(event, order),
		HTMLBody: confirmationHTML(event, order),
	}
	if err := s.sender.Send(ctx, message); err != nil {
		s.logg.Error(ctx, "confirmation email failed", err)
		return s.repo.MarkFailed(ctx, row.ID, err.Error())
	}
	return s.repo.MarkSent(ctx, row.ID)
}

// HandlePaymentFailed records the failure for the merchant dashboard.
// No customer email is sent; the customer already saw the error page.
func (s *service) HandlePaymentFailed(ctx context.Context, event *payloads.PaymentFailedEvent) error {
	if event == nil {
		return fmt.Errorf("event required")
	}

	store, err := s.repo.FindStore(ctx, event.StoreID)
	if err != nil {
		return err
	}
	recipient := ""
	if store.Email != nil {
		recipient = *store.Email
	}

	subject := fmt.Sprintf("Payment failed via %s", event.Gateway)
	row := models.Notification{
		StoreID:   event.StoreID,
		Type:      enums.NotificationPaymentFailed,
		Recipient: recipient,
		Subject:   &subject,
		OrderID:   event.OrderID,
		Payload: &types.JSONMap{
			"gateway":      event.Gateway.String(),
			"reason":       event.Reason.String(),
			"failure_code": event.FailureCode,
		},
	}
	if recipient == "" {
		row.Status = enums.NotificationStatusSkipped
	}
	return s.repo.Create(ctx, &row)
}

// HandleLowStock alerts the merchant that a variant crossed the low
// stock threshold.
func (s *service) HandleLowStock(ctx context.Context, event *payloads.LowStockDetectedEvent) error {
	if event == nil {
		return fmt.Errorf("event required")
	}

	store, err := s.repo.FindStore(ctx, event.StoreID)
	if err != nil {
		return err
	}
	if store.Email == nil || strings.TrimSpace(*store.Email) == "" {
		s.logg.Warn(s.logg.WithStoreID(ctx, event.StoreID.String()),
			"store has no contact email, low stock alert skipped")
		variantID := event.VariantID
		return s.repo.Create(ctx, &models.Notification{
			StoreID:   event.StoreID,
			Type:      enums.NotificationLowStock,
			Status:    enums.NotificationStatusSkipped,
			Recipient: "",
			VariantID: &variantID,
		})
	}

	waiting, err := s.repo.CountWaitlisted(ctx, event.VariantID)
	if err != nil {
		s.logg.Warn(ctx, "waitlist count lookup failed")
		waiting = 0
	}

	subject := fmt.Sprintf("Low stock: %s (%d left)", event.Title, event.Quantity)
	variantID := event.VariantID
	row := models.Notification{
		StoreID:   event.StoreID,
		Type:      enums.NotificationLowStock,
		Recipient: *store.Email,
		Subject:   &subject,
		VariantID: &variantID,
		Payload: &types.JSONMap{
			"product_id": event.ProductID.String(),
			"quantity":   event.Quantity,
			"threshold":  event.Threshold,
			"waitlisted": waiting,
		},
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return err
	}

	body := fmt.Sprintf("%s is down to %d units (threshold %d). Restock soon to avoid oversells.",
		event.Title, event.Quantity, event.Threshold)
	if waiting > 0 {
		body += fmt.Sprintf(" %d customers are on the restock waitlist.", waiting)
	}
	message := mailer.Message{
		To:       *store.Email,
		Subject:  subject,
		TextBody: body,
	}
	if err := s.sender.Send(ctx, message); err != nil {
		s.logg.Error(ctx, "low stock email failed", err)
		return s.repo.MarkFailed(ctx, row.ID, err.Error())
	}
	return s.repo.MarkSent(ctx, row.ID)
}

func confirmationText(event *payloads.OrderSettledEvent, order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order #%d!\n\n", event.OrderNumber)
	if order != nil {
		for _, line := range order.LineItems {
			fmt.Fprintf(&b, "%d x %s - %s\n", line.Quantity, line.Title, formatCents(line.LineTotalCents, event.Currency))
		}
		if order.DiscountCents > 0 {
			fmt.Fprintf(&b, "Discounts: -%s\n", formatCents(order.DiscountCents, event.Currency))
		}
		if order.ShippingCents > 0 {
			fmt.Fprintf(&b, "Shipping: %s\n", formatCents(order.ShippingCents, event.Currency))
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatCents(event.TotalCents, event.Currency))
	return b.String()
}

func confirmationHTML(event *payloads.OrderSettledEvent, order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Thanks for your order #%d!</h1>", event.OrderNumber)
	if order != nil {
		b.WriteString("<ul>")
		for _, line := range order.LineItems {
			fmt.Fprintf(&b, "<li>%d x %s - %s</li>", line.Quantity, line.Title, formatCents(line.LineTotalCents, event.Currency))
		}
		b.WriteString("</ul>")
	}
	fmt.Fprintf(&b, "<p><strong>Total: %s</strong></p>", formatCents(event.TotalCents, event.Currency))
	return b.String()
}

func formatCents(cents int, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

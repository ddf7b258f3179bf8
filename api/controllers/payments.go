package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/api/middleware"
	"github.com/craftora/storefront-backend/api/responses"
	"github.com/craftora/storefront-backend/api/validators"
	"github.com/craftora/storefront-backend/internal/settlement"
	"github.com/craftora/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/logger"
)

// PaymentReturn handles the customer-facing gateway redirect. Whatever
// the settlement outcome, the customer ends up on a storefront page;
// failures become reason-coded error redirects, never 5xx bodies.
func PaymentReturn(settlementService settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		gateway, err := enums.ParseGateway(chi.URLParam(r, "gateway"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment gateway"))
			return
		}

		storeID := middleware.StoreIDFromContext(ctx)
		if storeID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
			return
		}

		result, err := settlementService.HandleReturn(ctx, settlement.HandleReturnInput{
			StoreID: storeID,
			Gateway: gateway,
			Params:  r.URL.Query(),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
	}
}

type callbackRequest struct {
	Params map[string]string `json:"params" validate:"required,min=1"`
}

type callbackResponse struct {
	Outcome     string     `json:"outcome"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	OrderNumber int        `json:"order_number,omitempty"`
	RedirectURL string     `json:"redirect_url"`
}

// PaymentCallback handles server-to-server gateway notifications. Same
// settlement pipeline as the redirect flow, JSON result instead of a
// redirect.
func PaymentCallback(settlementService settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		gateway, err := enums.ParseGateway(chi.URLParam(r, "gateway"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment gateway"))
			return
		}

		storeID := middleware.StoreIDFromContext(ctx)
		if storeID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
			return
		}

		var req callbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := url.Values{}
		for key, value := range req.Params {
			params.Set(key, value)
		}

		result, err := settlementService.HandleReturn(ctx, settlement.HandleReturnInput{
			StoreID: storeID,
			Gateway: gateway,
			Params:  params,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, callbackResponse{
			Outcome:     result.Outcome,
			OrderID:     result.OrderID,
			OrderNumber: result.OrderNumber,
			RedirectURL: result.RedirectURL,
		})
	}
}

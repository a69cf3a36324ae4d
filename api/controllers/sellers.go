package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/api/responses"
	"github.com/angelmondragon/posledger/api/validators"
	"github.com/angelmondragon/posledger/internal/payables"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

type createPayableRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"required,max=500"`
}

type createSellerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Contact string `json:"contact,omitempty" validate:"max=100"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Notes   string `json:"notes,omitempty" validate:"max=500"`
}

type sellerPaymentRequest struct {
	Amount      decimal.Decimal   `json:"amount" validate:"gt=0"`
	PaymentMode enums.PaymentMode `json:"payment_mode" validate:"required,enum"`
	PayableID   *uuid.UUID        `json:"payable_id,omitempty"`
	Remark      string            `json:"remark,omitempty" validate:"max=500"`
}

// SellerList returns sellers with what is still owed to each, so a manager
// can pick one before recording a payable or a payment.
func SellerList(svc payables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payables service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListSellers(r.Context(), payables.SellerFilter{
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 100),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SellerCreate registers a supplier the business buys from on account.
func SellerCreate(svc payables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payables service unavailable"))
			return
		}
		var body createSellerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		seller, err := svc.CreateSeller(r.Context(), payables.SellerInput{
			Name:    validators.SanitizeString(body.Name, 200),
			Contact: validators.SanitizeString(body.Contact, 100),
			Email:   body.Email,
			Notes:   validators.SanitizeString(body.Notes, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, seller)
	}
}

func SellerSummary(svc payables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payables service unavailable"))
			return
		}
		sellerID, err := parseUUIDParam(r, "sellerId", "seller id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.SellerSummary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// SellerCreatePayable records a new amount owed to the seller.
func SellerCreatePayable(svc payables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payables service unavailable"))
			return
		}
		actor, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := parseUUIDParam(r, "sellerId", "seller id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPayableRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payable, err := svc.CreatePayable(r.Context(), payables.CreateInput{
			SellerID:    sellerID,
			Amount:      body.Amount,
			Description: validators.SanitizeString(body.Description, 500),
			StaffID:     actor.ID,
			StaffRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payable)
	}
}

// SellerPay applies a payment to one payable or, without payable_id, oldest first.
func SellerPay(svc payables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payables service unavailable"))
			return
		}
		actor, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := parseUUIDParam(r, "sellerId", "seller id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sellerPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PaySellerPayable(r.Context(), payables.PayInput{
			SellerID:  sellerID,
			Amount:    body.Amount,
			Mode:      body.PaymentMode,
			PayableID: body.PayableID,
			Remark:    validators.SanitizeString(body.Remark, 500),
			StaffID:   actor.ID,
			StaffRole: actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

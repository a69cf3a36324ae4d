package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/api/responses"
	"github.com/angelmondragon/posledger/api/validators"
	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

type creditAdjustRequest struct {
	Action enums.CreditAction `json:"action" validate:"required,enum"`
	Amount decimal.Decimal    `json:"amount" validate:"gt=0"`
	Note   string             `json:"note,omitempty" validate:"max=500"`
}

type creditHistoryResponse struct {
	Balance      decimal.Decimal            `json:"balance"`
	Transactions []models.CreditTransaction `json:"transactions"`
}

type loyaltyAdjustRequest struct {
	Points      int64  `json:"points"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type loyaltyHistoryResponse struct {
	Points       int64                       `json:"points"`
	Transactions []models.LoyaltyTransaction `json:"transactions"`
}

// CustomerCreditHistory returns the balance and ledger rows, optionally
// bounded by from/to dates.
func CustomerCreditHistory(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		customerID, err := parseUUIDParam(r, "customerId", "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := credit.HistoryFilter{}
		if filter.From, err = parseTimeQuery(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = parseTimeQuery(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.LedgerMaxLimit, 1, pagination.LedgerMaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account := credit.Customer(customerID)
		balance, err := svc.Balance(r.Context(), account)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), account, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, creditHistoryResponse{Balance: balance, Transactions: rows})
	}
}

// CustomerCreditAdjust posts a manual credit addition or deduction.
func CustomerCreditAdjust(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		actor, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := parseUUIDParam(r, "customerId", "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body creditAdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Adjust(r.Context(), credit.AdjustInput{
			Account:   credit.Customer(customerID),
			Amount:    body.Amount,
			Action:    body.Action,
			Note:      validators.SanitizeString(body.Note, 500),
			StaffID:   actor.ID,
			StaffRole: actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func CustomerLoyaltyHistory(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}
		customerID, err := parseUUIDParam(r, "customerId", "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.OrderDefaultLimit, 1, pagination.LedgerMaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Reconcile(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loyaltyHistoryResponse{Points: summary.Points, Transactions: rows})
	}
}

// CustomerLoyaltyAdjust posts a signed manual points correction.
func CustomerLoyaltyAdjust(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}
		actor, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := parseUUIDParam(r, "customerId", "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loyaltyAdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Adjust(r.Context(), loyalty.AdjustInput{
			CustomerID:  customerID,
			Points:      body.Points,
			Description: validators.SanitizeString(body.Description, 500),
			StaffID:     actor.ID,
			StaffRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

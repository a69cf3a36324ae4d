package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/api/responses"
	"github.com/angelmondragon/posledger/api/validators"
	"github.com/angelmondragon/posledger/internal/inventory"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

type setStockRequest struct {
	Action            enums.StockAction   `json:"action" validate:"required,enum"`
	Quantity          int                 `json:"quantity" validate:"min=0"`
	LowStockThreshold *int                `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
	Availability      *enums.Availability `json:"availability,omitempty"`
	Price             *decimal.Decimal    `json:"price,omitempty" validate:"omitempty,gte=0"`
	PurchasePrice     *decimal.Decimal    `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
}

// InventoryLowStock lists items at or under their low-stock threshold.
func InventoryLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListLowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]inventory.MenuItemDTO, 0, len(items))
		for _, item := range items {
			out = append(out, inventory.FromModel(item))
		}
		responses.WriteSuccess(w, out)
	}
}

// InventorySetStock applies a stock correction to one menu item.
func InventorySetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actor, err := staffFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId", "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetStock(r.Context(), inventory.SetStockInput{
			ItemID:            itemID,
			Action:            body.Action,
			Quantity:          body.Quantity,
			LowStockThreshold: body.LowStockThreshold,
			Availability:      body.Availability,
			Price:             body.Price,
			PurchasePrice:     body.PurchasePrice,
			StaffID:           actor.ID,
			StaffRole:         actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventory.FromModel(*item))
	}
}

package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerGate interface {
	RequireOpen(ctx context.Context) (*models.Register, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockRecorder interface {
	StockRejected(itemID string)
}

// Ledger is the transactional stock surface other services call inside
// their own transactions.
type Ledger interface {
	ReduceStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error)
	IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error)
}

// Service exposes the inventory ledger plus its manager-facing operations.
type Service interface {
	Ledger
	SetStock(ctx context.Context, input SetStockInput) (*models.MenuItem, error)
	Get(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error)
	ListLowStock(ctx context.Context, limit int) ([]models.MenuItem, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	register registerGate
	outbox   outboxPublisher
	metrics  stockRecorder
	logg     *logger.Logger
}

// ServiceParams wires the inventory service.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Register   registerGate
	Outbox     outboxPublisher
	Metrics    stockRecorder
	Logger     *logger.Logger
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Register == nil {
		return nil, fmt.Errorf("register gate required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.DB,
		register: params.Register,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) ReduceStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reduction")
	}
	if qty <= 0 {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be greater than zero")
	}
	repo := s.repo.WithTx(tx)
	item, err := lockItem(ctx, repo, itemID)
	if err != nil {
		return nil, err
	}
	if qty > item.StockQuantity {
		if s.metrics != nil {
			s.metrics.StockRejected(itemID.String())
		}
		return nil, pkgerrors.Insufficient(
			pkgerrors.ReasonInsufficientStock,
			fmt.Sprintf("insufficient stock for %s: requested %d, only %d in stock", item.Name, qty, item.StockQuantity),
		).WithDetails(map[string]any{
			"menu_item_id": itemID.String(),
			"requested":    qty,
			"available":    item.StockQuantity,
		})
	}

	next := item.StockQuantity - qty
	updates := map[string]any{"stock_quantity": next}
	if next == 0 {
		updates["availability"] = enums.AvailabilityOutOfStock
		item.Availability = enums.AvailabilityOutOfStock
	}
	if err := repo.Update(ctx, itemID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reduce stock")
	}
	item.StockQuantity = next
	return item, nil
}

func (s *service) IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock increase")
	}
	if qty <= 0 {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be greater than zero")
	}
	repo := s.repo.WithTx(tx)
	item, err := lockItem(ctx, repo, itemID)
	if err != nil {
		return nil, err
	}

	next := item.StockQuantity + qty
	updates := map[string]any{"stock_quantity": next}
	if item.Availability == enums.AvailabilityOutOfStock {
		updates["availability"] = enums.AvailabilityAvailable
		item.Availability = enums.AvailabilityAvailable
	}
	if err := repo.Update(ctx, itemID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increase stock")
	}
	item.StockQuantity = next
	return item, nil
}

func (s *service) SetStock(ctx context.Context, input SetStockInput) (*models.MenuItem, error) {
	if err := validateSetStock(input); err != nil {
		return nil, err
	}
	if _, err := s.register.RequireOpen(ctx); err != nil {
		return nil, err
	}

	var result *models.MenuItem
	var previous int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := lockItem(ctx, repo, input.ItemID)
		if err != nil {
			return err
		}
		previous = item.StockQuantity

		next := item.StockQuantity
		switch input.Action {
		case enums.StockActionSet:
			next = input.Quantity
		case enums.StockActionAdd:
			next += input.Quantity
		case enums.StockActionDecrease:
			if input.Quantity > item.StockQuantity {
				return pkgerrors.Insufficient(
					pkgerrors.ReasonInsufficientStock,
					fmt.Sprintf("cannot decrease %s by %d, only %d in stock", item.Name, input.Quantity, item.StockQuantity),
				)
			}
			next -= input.Quantity
		}

		availability := nextAvailability(item.Availability, next)
		if input.Availability != nil {
			availability = *input.Availability
			if availability == enums.AvailabilityAvailable && next == 0 {
				availability = enums.AvailabilityOutOfStock
			}
		}

		updates := map[string]any{
			"stock_quantity": next,
			"availability":   availability,
		}
		if input.LowStockThreshold != nil {
			updates["low_stock_threshold"] = *input.LowStockThreshold
			item.LowStockThreshold = *input.LowStockThreshold
		}
		if input.Price != nil {
			updates["price"] = input.Price.Round(2)
			item.Price = input.Price.Round(2)
		}
		if input.PurchasePrice != nil {
			updates["purchase_price"] = input.PurchasePrice.Round(2)
			item.PurchasePrice = input.PurchasePrice.Round(2)
		}
		if err := repo.Update(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		item.StockQuantity = next
		item.Availability = availability

		event := outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateMenuItem,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         outbox.StaffActor(input.StaffID, input.StaffRole),
			Data: payloads.StockAdjustedEvent{
				MenuItemID:    item.ID,
				Action:        input.Action,
				PreviousStock: previous,
				NewStock:      next,
				Availability:  availability,
				AdjustedBy:    input.StaffID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock adjusted event")
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"menu_item_id":   result.ID.String(),
		"action":         input.Action,
		"previous_stock": previous,
		"new_stock":      result.StockQuantity,
		"staff_id":       input.StaffID.String(),
	})
	s.logg.Info(logCtx, "stock adjusted")
	return result, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

func (s *service) ListLowStock(ctx context.Context, limit int) ([]models.MenuItem, error) {
	items, err := s.repo.ListLowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock items")
	}
	return items, nil
}

func lockItem(ctx context.Context, repo Repository, itemID uuid.UUID) (*models.MenuItem, error) {
	item, err := repo.LockByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock menu item")
	}
	return item, nil
}

// nextAvailability applies the automatic stock flips. Seasonal items are
// never touched.
func nextAvailability(current enums.Availability, stock int) enums.Availability {
	switch {
	case current == enums.AvailabilitySeasonal:
		return current
	case stock == 0:
		return enums.AvailabilityOutOfStock
	case current == enums.AvailabilityOutOfStock:
		return enums.AvailabilityAvailable
	default:
		return current
	}
}

func validateSetStock(input SetStockInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	if !input.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "action must be one of set, add, decrease")
	}
	if input.Quantity < 0 {
		return pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be non-negative")
	}
	if input.Action != enums.StockActionSet && input.Quantity == 0 {
		return pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, fmt.Sprintf("quantity to %s must be greater than zero", input.Action))
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "low stock threshold must be non-negative")
	}
	if input.Availability != nil && !input.Availability.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid availability value")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "price must be non-negative")
	}
	if input.PurchasePrice != nil && input.PurchasePrice.IsNegative() {
		return pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "purchase price must be non-negative")
	}
	return nil
}

package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

const orderNumberRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type registerBook interface {
	RequireOpen(ctx context.Context) (*models.Register, error)
	AddToTotal(ctx context.Context, tx *gorm.DB, method enums.PaymentMethod, amount decimal.Decimal) (*models.Register, error)
}

type stockLedger interface {
	ReduceStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error)
	IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (*models.MenuItem, error)
}

type creditLedger interface {
	AddCredit(ctx context.Context, tx *gorm.DB, entry credit.Entry) (*models.CreditTransaction, error)
}

type loyaltyLedger interface {
	Earn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderID *uuid.UUID, points int64, description string) (*models.LoyaltyTransaction, error)
}

type completionRecorder interface {
	OrderCompleted(method string)
}

// Service drives the order lifecycle from ticket creation to settlement.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.Order, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor Actor) (*models.Order, error)
	CompletePayment(ctx context.Context, input CompletePaymentInput) (*CompletePaymentResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	register     registerBook
	inventory    stockLedger
	credit       creditLedger
	loyalty      loyaltyLedger
	outbox       outboxPublisher
	metrics      completionRecorder
	logg         *logger.Logger
	deliveryFee  decimal.Decimal
	earnDivisor  int64
	numberPrefix string
	now          func() time.Time
}

// ServiceParams wires the order service. Metrics and Now are optional.
type ServiceParams struct {
	Repository         Repository
	DB                 txRunner
	Register           registerBook
	Inventory          stockLedger
	Credit             creditLedger
	Loyalty            loyaltyLedger
	Outbox             outboxPublisher
	Metrics            completionRecorder
	Logger             *logger.Logger
	DeliveryFee        decimal.Decimal
	LoyaltyEarnDivisor int64
	OrderNumberPrefix  string
	Now                func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Register == nil {
		return nil, fmt.Errorf("register required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Credit == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.LoyaltyEarnDivisor <= 0 {
		return nil, fmt.Errorf("loyalty earn divisor must be positive")
	}
	prefix := params.OrderNumberPrefix
	if prefix == "" {
		prefix = "ZRP"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repository,
		tx:           params.DB,
		register:     params.Register,
		inventory:    params.Inventory,
		credit:       params.Credit,
		loyalty:      params.Loyalty,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		deliveryFee:  params.DeliveryFee,
		earnDivisor:  params.LoyaltyEarnDivisor,
		numberPrefix: prefix,
		now:          now,
	}, nil
}

func orderClosed(order *models.Order) *pkgerrors.Error {
	return pkgerrors.Precondition(pkgerrors.ReasonOrderClosed, fmt.Sprintf("order %s is %s", order.OrderNumber, order.Status))
}

func alreadyCompleted(order *models.Order) *pkgerrors.Error {
	return pkgerrors.Precondition(pkgerrors.ReasonAlreadyCompleted, fmt.Sprintf("order %s is already completed", order.OrderNumber))
}

func mapOrderLookup(err error) error {
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if input.OrderType == "" {
		input.OrderType = enums.OrderTypeDineIn
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order type %q", input.OrderType))
	}
	discount := input.Discount.Round(2)
	if discount.IsNegative() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "discount must not be negative")
	}
	lines, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}
	if _, err := s.register.RequireOpen(ctx); err != nil {
		return nil, err
	}

	result := &CreateOrderResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		result.StockWarnings = nil

		if input.CustomerID != nil {
			if _, err := repo.FindCustomer(ctx, *input.CustomerID); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
			}
		}

		order := &models.Order{
			CustomerID:    input.CustomerID,
			StaffID:       input.Actor.UserID,
			OrderType:     input.OrderType,
			Status:        enums.OrderStatusPending,
			Discount:      discount,
			PaymentStatus: enums.PaymentStatusPending,
			Notes:         input.Notes,
		}
		if err := s.insertWithNumber(ctx, tx, order); err != nil {
			return err
		}

		for _, line := range lines {
			menu, err := s.menuItem(ctx, repo, line.MenuItemID)
			if err != nil {
				return err
			}
			item := &models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: menu.ID,
				ItemName:   menu.Name,
				ItemPrice:  menu.Price,
				Quantity:   line.Quantity,
				Subtotal:   LineSubtotal(menu.Price, line.Quantity),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
			}

			// a shortfall keeps the line and leaves stock untouched
			stockErr := tx.Transaction(func(inner *gorm.DB) error {
				_, err := s.inventory.ReduceStock(ctx, inner, menu.ID, line.Quantity)
				return err
			})
			if stockErr != nil {
				result.StockWarnings = append(result.StockWarnings, StockWarning{
					MenuItemID: menu.ID,
					Quantity:   line.Quantity,
					Message:    stockErr.Error(),
				})
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_number": order.OrderNumber,
					"menu_item_id": menu.ID.String(),
					"quantity":     line.Quantity,
					"reason":       stockErr.Error(),
				})
				s.logg.Warn(logCtx, "stock not reduced for new order line")
			}
		}

		if err := s.recompute(ctx, repo, order); err != nil {
			return err
		}

		issues := make([]string, 0, len(result.StockWarnings))
		for _, w := range result.StockWarnings {
			issues = append(issues, w.Message)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         outbox.StaffActor(input.Actor.UserID, input.Actor.Role),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				StaffID:     order.StaffID,
				OrderType:   order.OrderType,
				Total:       order.Total,
				ItemCount:   len(order.Items),
				StockIssues: issues,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
		}
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, result.Order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": result.Order.OrderNumber,
		"order_type":   result.Order.OrderType,
		"total":        result.Order.Total.StringFixed(2),
		"items":        len(result.Order.Items),
		"staff_id":     input.Actor.UserID.String(),
	})
	s.logg.Info(logCtx, "order created")
	return result, nil
}

// insertWithNumber inserts the order under a fresh number, retrying inside a
// savepoint when the number collides.
func (s *service) insertWithNumber(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		order.OrderNumber = GenerateOrderNumber(s.numberPrefix, s.now().UTC())
		lastErr = tx.Transaction(func(inner *gorm.DB) error {
			return s.repo.WithTx(inner).Create(ctx, order)
		})
		if lastErr == nil {
			return nil
		}
		if !db.IsUniqueViolation(lastErr, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create order")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique order number")
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.Order, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be at least 1")
	}
	if input.MenuItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	if _, err := s.register.RequireOpen(ctx); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		if order.Status.IsTerminal() {
			return orderClosed(order)
		}
		menu, err := s.menuItem(ctx, repo, input.MenuItemID)
		if err != nil {
			return err
		}

		if _, err := s.inventory.ReduceStock(ctx, tx, menu.ID, input.Quantity); err != nil {
			return err
		}

		existing, err := repo.FindItemByMenuItem(ctx, order.ID, menu.ID)
		switch {
		case err == nil:
			qty := existing.Quantity + input.Quantity
			if err := repo.UpdateItem(ctx, existing.ID, map[string]any{
				"quantity": qty,
				"subtotal": LineSubtotal(existing.ItemPrice, qty),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
			}
		case err == gorm.ErrRecordNotFound:
			item := &models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: menu.ID,
				ItemName:   menu.Name,
				ItemPrice:  menu.Price,
				Quantity:   input.Quantity,
				Subtotal:   LineSubtotal(menu.Price, input.Quantity),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		return s.recompute(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"menu_item_id": input.MenuItemID.String(),
		"quantity":     input.Quantity,
		"total":        order.Total.StringFixed(2),
	})
	s.logg.Info(logCtx, "order item added")
	return order, nil
}

func (s *service) RemoveItem(ctx context.Context, input RemoveItemInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		if order.Status.IsTerminal() {
			return orderClosed(order)
		}
		item, err := repo.FindItem(ctx, order.ID, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}

		removeQty := item.Quantity
		if input.Quantity != nil {
			if *input.Quantity < 1 {
				return pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be at least 1")
			}
			if *input.Quantity < item.Quantity {
				removeQty = *input.Quantity
			}
		}

		if _, err := s.inventory.IncreaseStock(ctx, tx, item.MenuItemID, removeQty); err != nil {
			return err
		}

		if removeQty == item.Quantity {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
			}
		} else {
			qty := item.Quantity - removeQty
			if err := repo.UpdateItem(ctx, item.ID, map[string]any{
				"quantity": qty,
				"subtotal": LineSubtotal(item.ItemPrice, qty),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
			}
		}
		return s.recompute(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_item_id": input.ItemID.String(),
		"total":         order.Total.StringFixed(2),
	})
	s.logg.Info(logCtx, "order item removed")
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor Actor) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	if status == enums.OrderStatusCompleted {
		return nil, pkgerrors.Precondition(pkgerrors.ReasonInvalidTransition, "orders are completed through payment")
	}
	if status == enums.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID, actor)
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockByID(ctx, orderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		if order.Status.IsTerminal() {
			return orderClosed(order)
		}
		if !order.Status.CanTransitionTo(status) {
			return pkgerrors.Precondition(pkgerrors.ReasonInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "status", status)
	s.logg.Info(logCtx, "order status updated")
	return order, nil
}

func (s *service) CompletePayment(ctx context.Context, input CompletePaymentInput) (*CompletePaymentResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	switch input.Method {
	case enums.PaymentMethodCash, enums.PaymentMethodQR, enums.PaymentMethodCredit:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if _, err := s.register.RequireOpen(ctx); err != nil {
		return nil, err
	}

	var result *CompletePaymentResult
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		result = nil
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		switch order.Status {
		case enums.OrderStatusCompleted:
			return alreadyCompleted(order)
		case enums.OrderStatusCancelled:
			return orderClosed(order)
		}
		if input.Method == enums.PaymentMethodCredit && order.CustomerID == nil {
			return pkgerrors.Precondition(pkgerrors.ReasonCustomerRequired, "customer required for credit payment")
		}
		if err := s.recompute(ctx, repo, order); err != nil {
			return err
		}

		completedAt := s.now().UTC()
		method := input.Method
		var points int64
		if order.CustomerID != nil {
			points = EarnedPoints(method, order.Total, s.earnDivisor)
		}
		order.Status = enums.OrderStatusCompleted
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.PaymentMethod = &method
		order.PaidAmount = order.Total
		order.CompletedAt = &completedAt
		order.LoyaltyPointsEarned = points
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":                order.Status,
			"payment_status":        order.PaymentStatus,
			"payment_method":        method,
			"paid_amount":           order.PaidAmount,
			"completed_at":          completedAt,
			"loyalty_points_earned": points,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}

		res := &CompletePaymentResult{Order: order, PointsEarned: points}
		if order.CustomerID != nil {
			if order.Total.IsPositive() {
				if err := repo.AddTotalSpent(ctx, *order.CustomerID, order.Total); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer total spent")
				}
			}
			if points > 0 {
				description := fmt.Sprintf("Order #%s paid via %s", order.OrderNumber, method)
				if _, err := s.loyalty.Earn(ctx, tx, *order.CustomerID, &order.ID, points, description); err != nil {
					return err
				}
			}
			if method == enums.PaymentMethodCredit {
				if order.Total.IsPositive() {
					row, err := s.credit.AddCredit(ctx, tx, creditEntryFor(order, input.Actor.UserID))
					if err != nil {
						return err
					}
					res.CreditTransaction = row
				} else {
					s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "credit settlement skipped for non-positive total")
				}
			}
		}

		reg, err := s.register.AddToTotal(ctx, tx, method, order.PaidAmount)
		if err != nil {
			return err
		}
		res.RegisterID = reg.ID

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         outbox.StaffActor(input.Actor.UserID, input.Actor.Role),
			Data: payloads.OrderCompletedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				RegisterID:    reg.ID,
				PaymentMethod: method,
				PaidAmount:    order.PaidAmount,
				PointsEarned:  points,
				CompletedAt:   completedAt,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed event")
		}
		result = res
		return nil
	})
	if err != nil {
		if db.IsTransient(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order is being settled concurrently").
				WithReason(pkgerrors.ReasonConcurrentModification)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderCompleted(string(input.Method))
	}
	logCtx := s.logg.WithOrderID(ctx, result.Order.ID.String())
	logCtx = s.logg.WithRegisterID(logCtx, result.RegisterID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number":   result.Order.OrderNumber,
		"payment_method": input.Method,
		"paid_amount":    result.Order.PaidAmount.StringFixed(2),
		"points_earned":  result.PointsEarned,
	})
	s.logg.Info(logCtx, "order payment completed")
	return result, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockByID(ctx, orderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		switch order.Status {
		case enums.OrderStatusCompleted:
			return alreadyCompleted(order)
		case enums.OrderStatusCancelled:
			return orderClosed(order)
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCancelled
		return s.emitClosed(ctx, tx, enums.EventOrderCancelled, order, actor)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "order cancelled")
	return order, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	var number string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		if order.Status == enums.OrderStatusCompleted {
			return pkgerrors.Precondition(pkgerrors.ReasonCannotDeleteCompleted, "cannot delete completed order")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		number = order.OrderNumber
		return s.emitClosed(ctx, tx, enums.EventOrderDeleted, order, actor)
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithField(logCtx, "order_number", number)
	s.logg.Info(logCtx, "order deleted")
	return nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *filter.Status))
	}
	filter.Limit = pagination.Clamp(filter.Limit, pagination.OrderDefaultLimit, pagination.LedgerMaxLimit)
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// recompute reloads the lines and rewrites the derived money columns.
func (s *service) recompute(ctx context.Context, repo Repository, order *models.Order) error {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	CalculateTotals(order, items, s.deliveryFee)
	order.Items = items
	if err := repo.Update(ctx, order.ID, map[string]any{
		"subtotal":              order.Subtotal,
		"delivery_fee":          order.DeliveryFee,
		"total":                 order.Total,
		"loyalty_points_earned": order.LoyaltyPointsEarned,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}
	if order.Total.IsNegative() {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"subtotal": order.Subtotal.StringFixed(2),
			"discount": order.Discount.StringFixed(2),
			"total":    order.Total.StringFixed(2),
		})
		s.logg.Warn(logCtx, "order total is negative")
	}
	return nil
}

func (s *service) menuItem(ctx context.Context, repo Repository, id uuid.UUID) (*models.MenuItem, error) {
	menu, err := repo.FindMenuItem(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("menu item %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	if !menu.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not on the menu", menu.Name))
	}
	return menu, nil
}

func (s *service) emitClosed(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor Actor) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         outbox.StaffActor(actor.UserID, actor.Role),
		Data: payloads.OrderClosedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			ClosedAt:    s.now().UTC(),
		},
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order closed event")
	}
	return nil
}

// mergeLines validates requested lines and folds repeated menu items together.
func mergeLines(items []ItemInput) ([]ItemInput, error) {
	merged := make([]ItemInput, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.MenuItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidQuantity, "quantity must be at least 1")
		}
		if i, ok := index[item.MenuItemID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.MenuItemID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

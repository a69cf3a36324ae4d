package registers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

const singleOpenIndex = "ux_registers_single_open"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gate answers whether money may move right now. Every ledger mutation asks
// it before taking locks.
type Gate interface {
	RequireOpen(ctx context.Context) (*models.Register, error)
}

// Totaler credits the open register inside a caller's transaction.
type Totaler interface {
	AddToTotal(ctx context.Context, tx *gorm.DB, method enums.PaymentMethod, amount decimal.Decimal) (*models.Register, error)
}

// OpenInput starts a drawer session.
type OpenInput struct {
	OpenedBy       uuid.UUID
	OpenedByRole   enums.UserRole
	OpeningBalance decimal.Decimal
}

// CloseInput ends the current session.
type CloseInput struct {
	ClosedBy     uuid.UUID
	ClosedByRole enums.UserRole
}

// Detail is a register with the orders and credit movements of its window.
type Detail struct {
	Register           models.Register            `json:"register"`
	ExpectedBalance    decimal.Decimal            `json:"expected_balance"`
	Orders             []models.Order             `json:"orders"`
	CreditTransactions []models.CreditTransaction `json:"credit_transactions"`
	SellerPayouts      Payouts                    `json:"seller_payouts"`
}

// Payouts sums seller payments made during a session. They are reported
// beside the drawer totals and never folded into them.
type Payouts struct {
	Cash decimal.Decimal `json:"cash"`
	QR   decimal.Decimal `json:"qr"`
}

// Service manages register sessions.
type Service interface {
	Gate
	Totaler
	Open(ctx context.Context, input OpenInput) (*models.Register, error)
	Close(ctx context.Context, input CloseInput) (*models.Register, error)
	RecalculateTotals(ctx context.Context, registerID uuid.UUID) (*models.Register, error)
	Current(ctx context.Context) (*models.Register, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Register, error)
	List(ctx context.Context, limit int) ([]models.Register, error)
	Detail(ctx context.Context, id uuid.UUID) (*Detail, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// ServiceParams wires the register service. Now is optional.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewService builds the register service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("register repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repository,
		tx:     params.DB,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func noOpenRegister() *pkgerrors.Error {
	return pkgerrors.Precondition(pkgerrors.ReasonNoOpenRegister, "no open register")
}

func alreadyOpen() *pkgerrors.Error {
	return pkgerrors.Precondition(pkgerrors.ReasonRegisterAlreadyOpen, "a register is already open")
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Register, error) {
	if input.OpenedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opened_by required")
	}
	opening := input.OpeningBalance.Round(2)
	if opening.IsNegative() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidBalance, "opening balance must not be negative")
	}

	reg := &models.Register{
		OpenedBy:       input.OpenedBy,
		OpenedAt:       s.now().UTC(),
		OpeningBalance: opening,
		CashTotal:      decimal.Zero,
		CreditTotal:    decimal.Zero,
		QRTotal:        decimal.Zero,
		IsOpen:         true,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockOpen(ctx); err == nil {
			return alreadyOpen()
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open register")
		}
		if err := repo.Create(ctx, reg); err != nil {
			if db.IsUniqueViolation(err, "") {
				return alreadyOpen()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create register")
		}
		return s.emit(ctx, tx, enums.EventRegisterOpened, reg, outbox.StaffActor(input.OpenedBy, input.OpenedByRole))
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithRegisterID(ctx, reg.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"opened_by":       input.OpenedBy.String(),
		"opening_balance": opening.StringFixed(2),
	})
	s.logg.Info(logCtx, "register opened")
	return reg, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (*models.Register, error) {
	if input.ClosedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closed_by required")
	}

	var closed *models.Register
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reg, err := repo.LockOpen(ctx)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return noOpenRegister()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock open register")
		}

		closedAt := s.now().UTC()
		if err := s.project(ctx, repo, reg, closedAt); err != nil {
			return err
		}
		closing := reg.ExpectedBalance()
		closedBy := input.ClosedBy
		reg.ClosedBy = &closedBy
		reg.ClosedAt = &closedAt
		reg.ClosingBalance = &closing
		reg.IsOpen = false

		if err := repo.Update(ctx, reg.ID, map[string]any{
			"cash_total":      reg.CashTotal,
			"credit_total":    reg.CreditTotal,
			"qr_total":        reg.QRTotal,
			"closed_by":       closedBy,
			"closed_at":       closedAt,
			"closing_balance": closing,
			"is_open":         false,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close register")
		}
		closed = reg
		return s.emit(ctx, tx, enums.EventRegisterClosed, reg, outbox.StaffActor(input.ClosedBy, input.ClosedByRole))
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithRegisterID(ctx, closed.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"closed_by":       input.ClosedBy.String(),
		"cash_total":      closed.CashTotal.StringFixed(2),
		"credit_total":    closed.CreditTotal.StringFixed(2),
		"qr_total":        closed.QRTotal.StringFixed(2),
		"closing_balance": closed.ClosingBalance.StringFixed(2),
	})
	s.logg.Info(logCtx, "register closed")
	return closed, nil
}

func (s *service) RecalculateTotals(ctx context.Context, registerID uuid.UUID) (*models.Register, error) {
	var out *models.Register
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reg, err := repo.LockByID(ctx, registerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "register not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock register")
		}
		if !reg.IsOpen {
			// closed sessions keep the totals stamped at close
			out = reg
			return nil
		}
		if err := s.project(ctx, repo, reg, s.now().UTC()); err != nil {
			return err
		}
		if err := repo.Update(ctx, reg.ID, map[string]any{
			"cash_total":   reg.CashTotal,
			"credit_total": reg.CreditTotal,
			"qr_total":     reg.QRTotal,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update register totals")
		}
		out = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// project rebuilds the per-method totals from completed orders whose
// completion falls between opened_at and until.
func (s *service) project(ctx context.Context, repo Repository, reg *models.Register, until time.Time) error {
	orders, err := repo.CompletedOrderAmounts(ctx, reg.OpenedAt, until)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum completed orders")
	}
	totals := Totals{}
	for _, row := range orders {
		totals.Add(row.Method, row.Amount)
	}
	reg.CashTotal = totals.Cash.Round(2)
	reg.CreditTotal = totals.Credit.Round(2)
	reg.QRTotal = totals.QR.Round(2)
	return nil
}

func (s *service) AddToTotal(ctx context.Context, tx *gorm.DB, method enums.PaymentMethod, amount decimal.Decimal) (*models.Register, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for register update")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	repo := s.repo.WithTx(tx)
	reg, err := repo.LockOpen(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, noOpenRegister()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock open register")
	}

	column := ColumnFor(method)
	totals := Totals{Cash: reg.CashTotal, Credit: reg.CreditTotal, QR: reg.QRTotal}
	totals.Add(method, amount)
	reg.CashTotal = totals.Cash.Round(2)
	reg.CreditTotal = totals.Credit.Round(2)
	reg.QRTotal = totals.QR.Round(2)

	var next decimal.Decimal
	switch column {
	case "credit_total":
		next = reg.CreditTotal
	case "qr_total":
		next = reg.QRTotal
	default:
		next = reg.CashTotal
	}
	if err := repo.Update(ctx, reg.ID, map[string]any{column: next}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update register total")
	}
	return reg, nil
}

func (s *service) RequireOpen(ctx context.Context) (*models.Register, error) {
	reg, err := s.repo.FindOpen(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, noOpenRegister()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open register")
	}
	return reg, nil
}

// Current returns the open register or nil when the drawer is closed.
func (s *service) Current(ctx context.Context) (*models.Register, error) {
	reg, err := s.repo.FindOpen(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open register")
	}
	return reg, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Register, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "register not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load register")
	}
	return reg, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.Register, error) {
	limit = pagination.NormalizeLimit(limit)
	regs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list registers")
	}
	return regs, nil
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	until := s.now().UTC()
	if reg.ClosedAt != nil {
		until = *reg.ClosedAt
	}
	orders, err := s.repo.OrdersBetween(ctx, reg.OpenedAt, until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list register orders")
	}
	credits, err := s.repo.CreditTransactionsBetween(ctx, reg.OpenedAt, until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list register credit transactions")
	}
	payments, err := s.repo.PayablePaymentAmounts(ctx, reg.OpenedAt, until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum register seller payouts")
	}
	payouts := Payouts{Cash: decimal.Zero, QR: decimal.Zero}
	for _, row := range payments {
		if row.Method == enums.PaymentMethodQR {
			payouts.QR = payouts.QR.Add(row.Amount)
			continue
		}
		payouts.Cash = payouts.Cash.Add(row.Amount)
	}
	return &Detail{
		Register:           *reg,
		ExpectedBalance:    reg.ExpectedBalance(),
		Orders:             orders,
		CreditTransactions: credits,
		SellerPayouts:      Payouts{Cash: payouts.Cash.Round(2), QR: payouts.QR.Round(2)},
	}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, reg *models.Register, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRegister,
		AggregateID:   reg.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.RegisterEvent{
			RegisterID:     reg.ID,
			OpenedBy:       reg.OpenedBy,
			OpeningBalance: reg.OpeningBalance,
			ClosedBy:       reg.ClosedBy,
			CashTotal:      reg.CashTotal,
			CreditTotal:    reg.CreditTotal,
			QRTotal:        reg.QRTotal,
			ClosingBalance: reg.ClosingBalance,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit register event")
	}
	return nil
}

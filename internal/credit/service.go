package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
	"github.com/angelmondragon/posledger/pkg/pagination"
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

// Entry describes one balance movement. Action defaults to credit_added for
// AddCredit and deduct for DeductCredit.
type Entry struct {
	Account   Account
	Amount    decimal.Decimal
	Action    enums.CreditAction
	OrderID   *uuid.UUID
	PayableID *uuid.UUID
	Note      string
	StaffID   *uuid.UUID
}

// AdjustInput is a manual balance correction made at the counter.
type AdjustInput struct {
	Account   Account
	Amount    decimal.Decimal
	Action    enums.CreditAction
	Note      string
	StaffID   uuid.UUID
	StaffRole enums.UserRole
}

// Reconciliation compares the stored balance with the sum of ledger deltas.
type Reconciliation struct {
	Account      Account         `json:"-"`
	OwnerKind    string          `json:"owner_kind"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Balance      decimal.Decimal `json:"balance"`
	LedgerSum    decimal.Decimal `json:"ledger_sum"`
	Drift        decimal.Decimal `json:"drift"`
	Transactions int             `json:"transactions"`
	Consistent   bool            `json:"consistent"`
}

// Ledger is the transactional surface used inside other services' transactions.
type Ledger interface {
	AddCredit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CreditTransaction, error)
	DeductCredit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CreditTransaction, error)
}

// Service is the credit ledger shared by customers and sellers.
type Service interface {
	Ledger
	Adjust(ctx context.Context, input AdjustInput) (*models.CreditTransaction, error)
	Balance(ctx context.Context, account Account) (decimal.Decimal, error)
	History(ctx context.Context, account Account, filter HistoryFilter) ([]models.CreditTransaction, error)
	Reconcile(ctx context.Context, account Account) (*Reconciliation, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	register registerGate
	outbox   outboxPublisher
	logg     *logger.Logger
}

// ServiceParams wires the credit service.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Register   registerGate
	Outbox     outboxPublisher
	Logger     *logger.Logger
}

// NewService builds the credit ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("credit repository required")
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
		logg:     params.Logger,
	}, nil
}

func (s *service) AddCredit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CreditTransaction, error) {
	if entry.Action == "" {
		entry.Action = enums.CreditActionAdded
	}
	if !entry.Action.Increases() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("action %s does not add credit", entry.Action))
	}
	return s.post(ctx, tx, entry)
}

func (s *service) DeductCredit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CreditTransaction, error) {
	if entry.Action == "" {
		entry.Action = enums.CreditActionDeduct
	}
	if entry.Action.Increases() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("action %s does not deduct credit", entry.Action))
	}
	return s.post(ctx, tx, entry)
}

// post locks the owner's balance row, applies the signed delta and appends
// the ledger row carrying the resulting balance.
func (s *service) post(ctx context.Context, tx *gorm.DB, entry Entry) (*models.CreditTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for credit posting")
	}
	if err := entry.Account.validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	amount := entry.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "amount must be greater than zero")
	}

	repo := s.repo.WithTx(tx)
	balance, err := repo.LockBalance(ctx, entry.Account)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", entry.Account.Kind))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock credit balance")
	}

	delta := amount
	if !entry.Action.Increases() {
		if amount.GreaterThan(balance) {
			return nil, pkgerrors.Insufficient(
				pkgerrors.ReasonInsufficientBalance,
				fmt.Sprintf("insufficient credit balance: requested %s, balance %s", amount.StringFixed(2), balance.StringFixed(2)),
			).WithDetails(map[string]any{
				"requested": amount.StringFixed(2),
				"balance":   balance.StringFixed(2),
			})
		}
		delta = amount.Neg()
	}
	next := balance.Add(delta).Round(2)

	if err := repo.SetBalance(ctx, entry.Account, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update credit balance")
	}

	row := &models.CreditTransaction{
		OwnerKind:    entry.Account.Kind,
		OwnerID:      entry.Account.ID,
		OrderID:      entry.OrderID,
		PayableID:    entry.PayableID,
		Amount:       delta,
		Action:       entry.Action,
		BalanceAfter: next,
		StaffID:      entry.StaffID,
	}
	if entry.Note != "" {
		note := entry.Note
		row.Note = &note
	}
	if err := repo.CreateTransaction(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append credit transaction")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventCreditPosted,
		AggregateType: aggregateFor(entry.Account),
		AggregateID:   entry.Account.ID,
		Version:       1,
		Data: payloads.CreditPostedEvent{
			TransactionID: row.ID,
			OwnerKind:     row.OwnerKind,
			OwnerID:       row.OwnerID,
			Action:        row.Action,
			Amount:        row.Amount,
			BalanceAfter:  row.BalanceAfter,
			OrderID:       row.OrderID,
			PayableID:     row.PayableID,
		},
	}
	if entry.StaffID != nil {
		event.Actor = &outbox.ActorRef{UserID: *entry.StaffID}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit credit posted event")
	}
	return row, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.CreditTransaction, error) {
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be one of credit_added, deduct, payment")
	}
	if !input.Amount.Round(2).IsPositive() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "amount must be greater than zero")
	}
	if _, err := s.register.RequireOpen(ctx); err != nil {
		return nil, err
	}

	note := input.Note
	if note == "" {
		note = "Manual adjustment"
		if !input.Action.Increases() {
			note = "Manual deduction"
		}
	}
	staff := input.StaffID
	entry := Entry{
		Account: input.Account,
		Amount:  input.Amount,
		Action:  input.Action,
		Note:    note,
		StaffID: &staff,
	}

	var row *models.CreditTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if input.Action.Increases() {
			row, err = s.AddCredit(ctx, tx, entry)
		} else {
			row, err = s.DeductCredit(ctx, tx, entry)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"owner":         input.Account.String(),
		"action":        input.Action,
		"amount":        row.Amount.StringFixed(2),
		"balance_after": row.BalanceAfter.StringFixed(2),
		"staff_id":      input.StaffID.String(),
	})
	s.logg.Info(logCtx, "credit adjusted")
	return row, nil
}

func (s *service) Balance(ctx context.Context, account Account) (decimal.Decimal, error) {
	if err := account.validate(); err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	balance, err := s.repo.Balance(ctx, account)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", account.Kind))
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, account Account, filter HistoryFilter) ([]models.CreditTransaction, error) {
	if err := account.validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	filter.Limit = pagination.Clamp(filter.Limit, pagination.LedgerMaxLimit, pagination.LedgerMaxLimit)
	rows, err := s.repo.ListTransactions(ctx, account, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit history")
	}
	return rows, nil
}

func (s *service) Reconcile(ctx context.Context, account Account) (*Reconciliation, error) {
	balance, err := s.Balance(ctx, account)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAllTransactions(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit ledger")
	}
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.Amount)
	}
	sum = sum.Round(2)
	report := &Reconciliation{
		Account:      account,
		OwnerKind:    string(account.Kind),
		OwnerID:      account.ID,
		Balance:      balance.Round(2),
		LedgerSum:    sum,
		Drift:        balance.Sub(sum).Round(2),
		Transactions: len(rows),
	}
	report.Consistent = report.Drift.IsZero()
	if !report.Consistent {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"owner":      account.String(),
			"balance":    report.Balance.StringFixed(2),
			"ledger_sum": report.LedgerSum.StringFixed(2),
			"checked_at": time.Now().UTC(),
		})
		s.logg.Warn(logCtx, "credit balance drifted from ledger")
	}
	return report, nil
}

func aggregateFor(account Account) enums.OutboxAggregateType {
	if account.Kind == enums.CreditOwnerSeller {
		return enums.AggregateSeller
	}
	return enums.AggregateCustomer
}

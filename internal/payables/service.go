package payables

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

const recentPaymentsLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type registerSync interface {
	RequireOpen(ctx context.Context) (*models.Register, error)
	RecalculateTotals(ctx context.Context, registerID uuid.UUID) (*models.Register, error)
}

type sellerLedger interface {
	AddCredit(ctx context.Context, tx *gorm.DB, entry credit.Entry) (*models.CreditTransaction, error)
	DeductCredit(ctx context.Context, tx *gorm.DB, entry credit.Entry) (*models.CreditTransaction, error)
}

type settlementRecorder interface {
	PayableSettled(mode string)
}

// Service records what the business owes its sellers and applies payments.
type Service interface {
	CreatePayable(ctx context.Context, input CreateInput) (*models.Payable, error)
	PaySellerPayable(ctx context.Context, input PayInput) (*PayResult, error)
	SellerSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error)
	ListSellers(ctx context.Context, filter SellerFilter) ([]SellerOverview, error)
	CreateSeller(ctx context.Context, input SellerInput) (*models.Seller, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	register registerSync
	credit   sellerLedger
	outbox   outboxPublisher
	metrics  settlementRecorder
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams wires the payables service. Metrics and Now are optional.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Register   registerSync
	Credit     sellerLedger
	Outbox     outboxPublisher
	Metrics    settlementRecorder
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewService builds the payables service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payables repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Register == nil {
		return nil, fmt.Errorf("register required")
	}
	if params.Credit == nil {
		return nil, fmt.Errorf("credit ledger required")
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
		repo:     params.Repository,
		tx:       params.DB,
		register: params.Register,
		credit:   params.Credit,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func mapSellerLookup(err error) error {
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
}

func (s *service) CreatePayable(ctx context.Context, input CreateInput) (*models.Payable, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "amount must be greater than zero")
	}

	var payable *models.Payable
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindSeller(ctx, input.SellerID); err != nil {
			return mapSellerLookup(err)
		}

		payable = &models.Payable{
			SellerID:        input.SellerID,
			Amount:          amount,
			RemainingAmount: amount,
			Status:          enums.PayableStatusPending,
			CreatedAt:       s.now().UTC(),
		}
		if input.Description != "" {
			description := input.Description
			payable.Description = &description
		}
		if err := repo.Create(ctx, payable); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payable")
		}

		entry := credit.Entry{
			Account:   credit.Seller(input.SellerID),
			Amount:    amount,
			PayableID: &payable.ID,
			Note:      "Payable recorded",
		}
		if input.Description != "" {
			entry.Note = input.Description
		}
		if input.StaffID != uuid.Nil {
			staff := input.StaffID
			entry.StaffID = &staff
		}
		if _, err := s.credit.AddCredit(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPayableRecorded,
			AggregateType: enums.AggregatePayable,
			AggregateID:   payable.ID,
			Version:       1,
			Actor:         outbox.StaffActor(input.StaffID, input.StaffRole),
			Data: payloads.PayableRecordedEvent{
				PayableID: payable.ID,
				SellerID:  payable.SellerID,
				Amount:    payable.Amount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payable recorded event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"seller_id":  payable.SellerID.String(),
		"payable_id": payable.ID.String(),
		"amount":     payable.Amount.StringFixed(2),
	})
	s.logg.Info(logCtx, "payable recorded")
	return payable, nil
}

func (s *service) PaySellerPayable(ctx context.Context, input PayInput) (*PayResult, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "amount must be greater than zero")
	}
	if input.Mode == "" {
		input.Mode = enums.PaymentModeCash
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment mode %q", input.Mode))
	}

	result := &PayResult{SellerID: input.SellerID, Mode: input.Mode}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result.Applications = nil
		result.Applied = decimal.Zero
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindSeller(ctx, input.SellerID); err != nil {
			return mapSellerLookup(err)
		}

		pending, err := repo.LockPending(ctx, input.SellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock pending payables")
		}
		outstanding := totalRemaining(pending)
		if amount.GreaterThan(outstanding) {
			return pkgerrors.Insufficient(
				pkgerrors.ReasonExceedsPayable,
				fmt.Sprintf("amount %s exceeds total payable %s", amount.StringFixed(2), outstanding.StringFixed(2)),
			).WithDetails(map[string]any{
				"requested":     amount.StringFixed(2),
				"total_payable": outstanding.StringFixed(2),
			})
		}

		targets := pending
		if input.PayableID != nil {
			target, err := repo.LockPendingByID(ctx, input.SellerID, *input.PayableID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "payable not found or already settled")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payable")
			}
			targets = []models.Payable{*target}
		}

		left := amount
		for i := range targets {
			if !left.IsPositive() {
				break
			}
			applied, err := s.apply(ctx, tx, &targets[i], left, input)
			if err != nil {
				return err
			}
			if applied == nil {
				continue
			}
			result.Applications = append(result.Applications, *applied)
			result.Applied = result.Applied.Add(applied.Applied)
			left = left.Sub(applied.Applied)
		}
		if !result.Applied.IsPositive() {
			return pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "nothing to apply")
		}
		result.TotalPayable = outstanding.Sub(result.Applied)

		event := outbox.DomainEvent{
			EventType:     enums.EventPayableSettled,
			AggregateType: enums.AggregateSeller,
			AggregateID:   input.SellerID,
			Version:       1,
			Actor:         outbox.StaffActor(input.StaffID, input.StaffRole),
			Data:          settledEvent(input.SellerID, input.Mode, result),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payable settled event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PayableSettled(string(input.Mode))
	}
	s.syncRegister(ctx, input.Mode, result)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"seller_id":        input.SellerID.String(),
		"mode":             input.Mode,
		"applied":          result.Applied.StringFixed(2),
		"payables":         len(result.Applications),
		"total_payable":    result.TotalPayable.StringFixed(2),
		"register_updated": result.RegisterUpdated,
	})
	s.logg.Info(logCtx, "seller payment applied")
	return result, nil
}

// apply moves up to limit onto one locked payable and writes the history row
// and the matching seller ledger entry.
func (s *service) apply(ctx context.Context, tx *gorm.DB, payable *models.Payable, limit decimal.Decimal, input PayInput) (*Application, error) {
	share := decimal.Min(payable.RemainingAmount, limit).Round(2)
	if !share.IsPositive() {
		return nil, nil
	}
	repo := s.repo.WithTx(tx)

	remaining := payable.RemainingAmount.Sub(share).Round(2)
	updates := map[string]any{"remaining_amount": remaining}
	settled := !remaining.IsPositive()
	if settled {
		remaining = decimal.Zero
		paidAt := s.now().UTC()
		updates["remaining_amount"] = remaining
		updates["status"] = enums.PayableStatusSettled
		updates["paid_at"] = paidAt
		payable.Status = enums.PayableStatusSettled
		payable.PaidAt = &paidAt
	}
	if err := repo.Update(ctx, payable.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payable")
	}
	payable.RemainingAmount = remaining

	payment := &models.PayablePayment{
		SellerID:    payable.SellerID,
		PayableID:   payable.ID,
		Amount:      share,
		PaymentMode: input.Mode,
		CreatedAt:   s.now().UTC(),
	}
	if input.Remark != "" {
		remark := input.Remark
		payment.Remark = &remark
	}
	var staff *uuid.UUID
	if input.StaffID != uuid.Nil {
		id := input.StaffID
		staff = &id
		payment.StaffID = staff
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payable payment")
	}

	if _, err := s.credit.DeductCredit(ctx, tx, credit.Entry{
		Account:   credit.Seller(payable.SellerID),
		Amount:    share,
		Action:    enums.CreditActionPayment,
		PayableID: &payable.ID,
		Note:      fmt.Sprintf("Paid via %s", input.Mode),
		StaffID:   staff,
	}); err != nil {
		return nil, err
	}

	return &Application{
		PayableID: payable.ID,
		Applied:   share,
		Remaining: remaining,
		Settled:   settled,
	}, nil
}

// syncRegister refreshes the open register's projection after a seller
// payment. Payouts are not drawer takings, so the totals only move if orders
// completed meanwhile. Failure leaves the payment in place and is logged.
func (s *service) syncRegister(ctx context.Context, mode enums.PaymentMode, result *PayResult) {
	reg, err := s.register.RequireOpen(ctx)
	if err == nil {
		reg, err = s.register.RecalculateTotals(ctx, reg.ID)
	}
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id": result.SellerID.String(),
			"mode":      mode,
			"applied":   result.Applied.StringFixed(2),
			"reason":    err.Error(),
		})
		s.logg.Warn(logCtx, "register not refreshed after seller payment")
		return
	}
	result.RegisterUpdated = true
	result.RegisterID = &reg.ID
}

func (s *service) SellerSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error) {
	seller, err := s.repo.FindSeller(ctx, sellerID)
	if err != nil {
		return nil, mapSellerLookup(err)
	}
	payables, err := s.repo.ListPayables(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payables")
	}
	payments, err := s.repo.ListPayments(ctx, sellerID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payable payments")
	}

	summary := &Summary{
		Seller:    seller,
		Payables:  payables,
		Pending:   make([]models.Payable, 0, len(payables)),
		TotalPaid: decimal.Zero,
	}
	for _, p := range payables {
		if p.Status == enums.PayableStatusPending {
			summary.Pending = append(summary.Pending, p)
		}
	}
	summary.TotalPayable = totalRemaining(summary.Pending)
	for _, p := range payments {
		summary.TotalPaid = summary.TotalPaid.Add(p.Amount)
	}
	summary.TotalPaid = summary.TotalPaid.Round(2)
	if len(payments) > recentPaymentsLimit {
		payments = payments[:recentPaymentsLimit]
	}
	summary.RecentPayments = payments
	return summary, nil
}

func (s *service) CreateSeller(ctx context.Context, input SellerInput) (*models.Seller, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name required")
	}

	var seller *models.Seller
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		taken, err := repo.SellerNameTaken(ctx, name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller name")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("seller %q already exists", name))
		}
		now := s.now().UTC()
		seller = &models.Seller{
			Name:          name,
			Contact:       optionalText(input.Contact),
			Email:         optionalText(input.Email),
			Notes:         optionalText(input.Notes),
			CreditBalance: decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateSeller(ctx, seller); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"seller_id": seller.ID.String(), "name": seller.Name})
	s.logg.Info(logCtx, "seller created")
	return seller, nil
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *service) ListSellers(ctx context.Context, filter SellerFilter) ([]SellerOverview, error) {
	sellers, err := s.repo.ListSellers(ctx, strings.TrimSpace(filter.Search), pagination.NormalizeLimit(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
	}
	ids := make([]uuid.UUID, 0, len(sellers))
	for _, seller := range sellers {
		ids = append(ids, seller.ID)
	}
	pending, err := s.repo.PendingForSellers(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payables")
	}

	bySeller := make(map[uuid.UUID][]models.Payable, len(sellers))
	for _, p := range pending {
		bySeller[p.SellerID] = append(bySeller[p.SellerID], p)
	}
	out := make([]SellerOverview, 0, len(sellers))
	for _, seller := range sellers {
		rows := bySeller[seller.ID]
		out = append(out, SellerOverview{
			Seller:       seller,
			TotalPayable: totalRemaining(rows),
			PendingCount: len(rows),
		})
	}
	return out, nil
}

func totalRemaining(rows []models.Payable) decimal.Decimal {
	total := decimal.Zero
	for _, p := range rows {
		total = total.Add(p.RemainingAmount)
	}
	return total.Round(2)
}

func settledEvent(sellerID uuid.UUID, mode enums.PaymentMode, result *PayResult) payloads.PayableSettledEvent {
	event := payloads.PayableSettledEvent{
		SellerID:   sellerID,
		Amount:     result.Applied,
		Mode:       mode,
		PayableIDs: make([]uuid.UUID, 0, len(result.Applications)),
	}
	for _, a := range result.Applications {
		event.PayableIDs = append(event.PayableIDs, a.PayableID)
		if a.Settled {
			event.SettledIDs = append(event.SettledIDs, a.PayableID)
		}
	}
	return event
}

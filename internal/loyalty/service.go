package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
	"github.com/angelmondragon/posledger/pkg/pagination"
)

const (
	defaultDecayWindowHours = 24
	defaultDecayPercent     = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type decayRecorder interface {
	DecayApplied(customers int, points int64)
}

// AdjustInput is a manager correction of a customer's points.
type AdjustInput struct {
	CustomerID  uuid.UUID
	Points      int64
	Description string
	StaffID     uuid.UUID
	StaffRole   enums.UserRole
}

// Reconciliation compares stored points with the sum of the loyalty log.
type Reconciliation struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	Points       int64     `json:"points"`
	LedgerSum    int64     `json:"ledger_sum"`
	Drift        int64     `json:"drift"`
	Transactions int       `json:"transactions"`
	Consistent   bool      `json:"consistent"`
}

// Ledger is the transactional surface used by order settlement.
type Ledger interface {
	Earn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderID *uuid.UUID, points int64, description string) (*models.LoyaltyTransaction, error)
}

// Service manages customer loyalty points.
type Service interface {
	Ledger
	Adjust(ctx context.Context, input AdjustInput) (*models.LoyaltyTransaction, error)
	ApplyInactivityDeductions(ctx context.Context, input DecayInput) (*DecayReport, error)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error)
	Reconcile(ctx context.Context, customerID uuid.UUID) (*Reconciliation, error)
}

type service struct {
	repo             Repository
	tx               txRunner
	outbox           outboxPublisher
	metrics          decayRecorder
	logg             *logger.Logger
	decayWindowHours int
	decayPercent     int64
	now              func() time.Time
}

// ServiceParams wires the loyalty service. Metrics and Now are optional.
type ServiceParams struct {
	Repository       Repository
	DB               txRunner
	Outbox           outboxPublisher
	Metrics          decayRecorder
	Logger           *logger.Logger
	DecayWindowHours int
	DecayPercent     int64
	Now              func() time.Time
}

// NewService builds the loyalty ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("loyalty repository required")
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
	window := params.DecayWindowHours
	if window <= 0 {
		window = defaultDecayWindowHours
	}
	percent := params.DecayPercent
	if percent <= 0 {
		percent = defaultDecayPercent
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:             params.Repository,
		tx:               params.DB,
		outbox:           params.Outbox,
		metrics:          params.Metrics,
		logg:             params.Logger,
		decayWindowHours: window,
		decayPercent:     percent,
		now:              now,
	}, nil
}

type posting struct {
	txType      enums.LoyaltyTransactionType
	points      int64
	orderID     *uuid.UUID
	description string
	actor       *outbox.ActorRef
}

func (s *service) Earn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderID *uuid.UUID, points int64, description string) (*models.LoyaltyTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for loyalty posting")
	}
	if points <= 0 {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "earned points must be positive")
	}
	customer, err := s.lockCustomer(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, tx, customer, posting{
		txType:      enums.LoyaltyEarned,
		points:      points,
		orderID:     orderID,
		description: description,
	})
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.LoyaltyTransaction, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if input.Points == 0 {
		return nil, pkgerrors.Invalid(pkgerrors.ReasonInvalidAmount, "points must not be zero")
	}
	description := input.Description
	if description == "" {
		description = "Manual adjustment"
	}

	var row *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.lockCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		if customer.LoyaltyPoints+input.Points < 0 {
			return pkgerrors.Insufficient(
				pkgerrors.ReasonInsufficientBalance,
				fmt.Sprintf("insufficient loyalty points: requested %d, balance %d", -input.Points, customer.LoyaltyPoints),
			).WithDetails(map[string]any{
				"requested": -input.Points,
				"balance":   customer.LoyaltyPoints,
			})
		}
		row, err = s.record(ctx, tx, customer, posting{
			txType:      enums.LoyaltyAdjusted,
			points:      input.Points,
			description: description,
			actor:       outbox.StaffActor(input.StaffID, input.StaffRole),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"customer_id": input.CustomerID.String(),
		"points":      input.Points,
		"staff_id":    input.StaffID.String(),
	})
	s.logg.Info(logCtx, "loyalty points adjusted")
	return row, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	limit = pagination.Clamp(limit, pagination.LedgerMaxLimit, pagination.LedgerMaxLimit)
	rows, err := s.repo.ListTransactions(ctx, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loyalty history")
	}
	return rows, nil
}

func (s *service) Reconcile(ctx context.Context, customerID uuid.UUID) (*Reconciliation, error) {
	customer, err := s.repo.FindCustomer(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	sum, count, err := s.repo.SumPoints(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum loyalty ledger")
	}
	report := &Reconciliation{
		CustomerID:   customerID,
		Points:       customer.LoyaltyPoints,
		LedgerSum:    sum,
		Drift:        customer.LoyaltyPoints - sum,
		Transactions: count,
	}
	report.Consistent = report.Drift == 0
	if !report.Consistent {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id": customerID.String(),
			"points":      report.Points,
			"ledger_sum":  report.LedgerSum,
		})
		s.logg.Warn(logCtx, "loyalty points drifted from ledger")
	}
	return report, nil
}

func (s *service) lockCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.User, error) {
	customer, err := s.repo.WithTx(tx).LockCustomer(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock customer")
	}
	if customer.Role != enums.UserRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loyalty points only apply to customers")
	}
	return customer, nil
}

// record applies a signed point delta to a locked customer and appends the
// matching log row.
func (s *service) record(ctx context.Context, tx *gorm.DB, customer *models.User, p posting) (*models.LoyaltyTransaction, error) {
	repo := s.repo.WithTx(tx)
	next := customer.LoyaltyPoints + p.points
	updates := map[string]any{"loyalty_points": next}
	switch p.txType {
	case enums.LoyaltyEarned:
		updates["total_points_earned"] = customer.TotalPointsEarned + p.points
	case enums.LoyaltyExpired, enums.LoyaltyRedeemed:
		updates["total_points_redeemed"] = customer.TotalPointsRedeemed - p.points
	}
	if err := repo.UpdateCustomer(ctx, customer.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loyalty points")
	}

	row := &models.LoyaltyTransaction{
		CustomerID:  customer.ID,
		Type:        p.txType,
		Points:      p.points,
		OrderID:     p.orderID,
		Description: p.description,
	}
	if err := repo.CreateTransaction(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append loyalty transaction")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventLoyaltyPosted,
		AggregateType: enums.AggregateCustomer,
		AggregateID:   customer.ID,
		Version:       1,
		Actor:         p.actor,
		Data: payloads.LoyaltyPostedEvent{
			TransactionID: row.ID,
			CustomerID:    customer.ID,
			Type:          row.Type,
			Points:        row.Points,
			Balance:       next,
			OrderID:       row.OrderID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit loyalty posted event")
	}
	customer.LoyaltyPoints = next
	return row, nil
}

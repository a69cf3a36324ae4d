package registers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/repo"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// MethodAmount is one settled amount attributed to a payment method.
type MethodAmount struct {
	Method enums.PaymentMethod
	Amount decimal.Decimal
}

// Repository persists register sessions and reads the rows inside a window.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reg *models.Register) error
	FindOpen(ctx context.Context) (*models.Register, error)
	LockOpen(ctx context.Context) (*models.Register, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Register, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Register, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, limit int) ([]models.Register, error)
	CompletedOrderAmounts(ctx context.Context, from, to time.Time) ([]MethodAmount, error)
	PayablePaymentAmounts(ctx context.Context, from, to time.Time) ([]MethodAmount, error)
	OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	CreditTransactionsBetween(ctx context.Context, from, to time.Time) ([]models.CreditTransaction, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a register repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, reg *models.Register) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	return r.DB(ctx).Create(reg).Error
}

func (r *repository) FindOpen(ctx context.Context) (*models.Register, error) {
	var reg models.Register
	if err := r.DB(ctx).Where("is_open = ?", true).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) LockOpen(ctx context.Context) (*models.Register, error) {
	var reg models.Register
	if err := r.ForUpdate(ctx).Where("is_open = ?", true).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Register, error) {
	var reg models.Register
	if err := r.DB(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Register, error) {
	var reg models.Register
	if err := r.ForUpdate(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Register{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) List(ctx context.Context, limit int) ([]models.Register, error) {
	var regs []models.Register
	err := r.DB(ctx).Order("opened_at DESC").Limit(limit).Find(&regs).Error
	return regs, err
}

func (r *repository) CompletedOrderAmounts(ctx context.Context, from, to time.Time) ([]MethodAmount, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Select("payment_method", "paid_amount").
		Where("status = ? AND payment_method IS NOT NULL", enums.OrderStatusCompleted).
		Where("completed_at >= ? AND completed_at <= ?", from.UTC(), to.UTC()).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	out := make([]MethodAmount, 0, len(orders))
	for _, o := range orders {
		out = append(out, MethodAmount{Method: *o.PaymentMethod, Amount: o.PaidAmount})
	}
	return out, nil
}

func (r *repository) PayablePaymentAmounts(ctx context.Context, from, to time.Time) ([]MethodAmount, error) {
	var payments []models.PayablePayment
	err := r.DB(ctx).
		Select("payment_mode", "amount").
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	out := make([]MethodAmount, 0, len(payments))
	for _, p := range payments {
		out = append(out, MethodAmount{Method: p.PaymentMode.PaymentMethod(), Amount: p.Amount})
	}
	return out, nil
}

func (r *repository) OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) CreditTransactionsBetween(ctx context.Context, from, to time.Time) ([]models.CreditTransaction, error) {
	var rows []models.CreditTransaction
	err := r.DB(ctx).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

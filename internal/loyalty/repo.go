package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// Repository persists point balances and the loyalty log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockCustomer(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateTransaction(ctx context.Context, row *models.LoyaltyTransaction) error
	ListCustomersWithPoints(ctx context.Context) ([]models.User, error)
	HasTransactionSince(ctx context.Context, customerID uuid.UUID, txType enums.LoyaltyTransactionType, since time.Time) (bool, error)
	HasCompletedOrderSince(ctx context.Context, customerID uuid.UUID, since time.Time) (bool, error)
	ListTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error)
	SumPoints(ctx context.Context, customerID uuid.UUID) (int64, int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loyalty repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) LockCustomer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateTransaction(ctx context.Context, row *models.LoyaltyTransaction) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListCustomersWithPoints(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND loyalty_points > 0", enums.UserRoleCustomer).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *repository) HasTransactionSince(ctx context.Context, customerID uuid.UUID, txType enums.LoyaltyTransactionType, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("customer_id = ? AND type = ? AND created_at >= ?", customerID, txType, since.UTC()).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasCompletedOrderSince(ctx context.Context, customerID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ? AND status = ? AND completed_at >= ?", customerID, enums.OrderStatusCompleted, since.UTC()).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	var rows []models.LoyaltyTransaction
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SumPoints(ctx context.Context, customerID uuid.UUID) (int64, int, error) {
	var rows []models.LoyaltyTransaction
	err := r.db.WithContext(ctx).
		Select("points").
		Where("customer_id = ?", customerID).
		Find(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	var sum int64
	for _, row := range rows {
		sum += row.Points
	}
	return sum, len(rows), nil
}

package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/posledger/pkg/db/models"
)

// HistoryFilter narrows a ledger listing.
type HistoryFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// Repository persists balances and the append-only credit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Balance(ctx context.Context, account Account) (decimal.Decimal, error)
	LockBalance(ctx context.Context, account Account) (decimal.Decimal, error)
	SetBalance(ctx context.Context, account Account, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, entry *models.CreditTransaction) error
	ListTransactions(ctx context.Context, account Account, filter HistoryFilter) ([]models.CreditTransaction, error)
	ListAllTransactions(ctx context.Context, account Account) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

type balanceRow struct {
	CreditBalance decimal.Decimal `gorm:"column:credit_balance"`
}

// NewRepository builds a credit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Balance(ctx context.Context, account Account) (decimal.Decimal, error) {
	var row balanceRow
	err := r.db.WithContext(ctx).
		Table(account.table()).
		Select("credit_balance").
		Where("id = ?", account.ID).
		Take(&row).Error
	return row.CreditBalance, err
}

func (r *repository) LockBalance(ctx context.Context, account Account) (decimal.Decimal, error) {
	var row balanceRow
	err := r.db.WithContext(ctx).
		Table(account.table()).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("credit_balance").
		Where("id = ?", account.ID).
		Take(&row).Error
	return row.CreditBalance, err
}

func (r *repository) SetBalance(ctx context.Context, account Account, balance decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Table(account.table()).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"credit_balance": balance,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.CreditTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, account Account, filter HistoryFilter) ([]models.CreditTransaction, error) {
	q := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", account.Kind, account.ID)
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}
	var rows []models.CreditTransaction
	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListAllTransactions(ctx context.Context, account Account) ([]models.CreditTransaction, error) {
	var rows []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", account.Kind, account.ID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

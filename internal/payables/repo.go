package payables

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/repo"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// Repository persists payables and the payments applied to them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	ListSellers(ctx context.Context, search string, limit int) ([]models.Seller, error)
	SellerNameTaken(ctx context.Context, name string) (bool, error)
	CreateSeller(ctx context.Context, seller *models.Seller) error
	PendingForSellers(ctx context.Context, sellerIDs []uuid.UUID) ([]models.Payable, error)
	Create(ctx context.Context, payable *models.Payable) error
	LockPending(ctx context.Context, sellerID uuid.UUID) ([]models.Payable, error)
	LockPendingByID(ctx context.Context, sellerID, payableID uuid.UUID) (*models.Payable, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.PayablePayment) error
	ListPayables(ctx context.Context, sellerID uuid.UUID) ([]models.Payable, error)
	ListPayments(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayablePayment, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a payables repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.DB(ctx).Where("id = ?", sellerID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// ListSellers returns sellers by name, optionally filtered by a
// case-insensitive name fragment.
func (r *repository) ListSellers(ctx context.Context, search string, limit int) ([]models.Seller, error) {
	var rows []models.Seller
	q := r.DB(ctx).Order("name ASC").Order("id ASC")
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) SellerNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Seller{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateSeller(ctx context.Context, seller *models.Seller) error {
	if seller.ID == uuid.Nil {
		seller.ID = uuid.New()
	}
	return r.DB(ctx).Create(seller).Error
}

func (r *repository) PendingForSellers(ctx context.Context, sellerIDs []uuid.UUID) ([]models.Payable, error) {
	if len(sellerIDs) == 0 {
		return nil, nil
	}
	var rows []models.Payable
	err := r.DB(ctx).
		Select("seller_id", "remaining_amount").
		Where("seller_id IN ? AND status = ?", sellerIDs, enums.PayableStatusPending).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, payable *models.Payable) error {
	if payable.ID == uuid.Nil {
		payable.ID = uuid.New()
	}
	return r.DB(ctx).Create(payable).Error
}

// LockPending locks every pending payable of the seller, oldest first.
func (r *repository) LockPending(ctx context.Context, sellerID uuid.UUID) ([]models.Payable, error) {
	var rows []models.Payable
	err := r.ForUpdate(ctx).
		Where("seller_id = ? AND status = ?", sellerID, enums.PayableStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) LockPendingByID(ctx context.Context, sellerID, payableID uuid.UUID) (*models.Payable, error) {
	var payable models.Payable
	err := r.ForUpdate(ctx).
		Where("id = ? AND seller_id = ? AND status = ?", payableID, sellerID, enums.PayableStatusPending).
		First(&payable).Error
	if err != nil {
		return nil, err
	}
	return &payable, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Payable{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.PayablePayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) ListPayables(ctx context.Context, sellerID uuid.UUID) ([]models.Payable, error) {
	var rows []models.Payable
	err := r.DB(ctx).
		Where("seller_id = ?", sellerID).
		Order("status ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPayments(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayablePayment, error) {
	var rows []models.PayablePayment
	q := r.DB(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/config"
	dbpkg "github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/security"
)

const minPasswordLength = 8

type staffRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service provisions staff accounts for the terminal.
type Service struct {
	repo     staffRepository
	password config.PasswordConfig
}

func NewService(repo staffRepository, password config.PasswordConfig) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &Service{repo: repo, password: password}, nil
}

// CreateStaff hashes the password and stores a new staff, manager or admin.
func (s *Service) CreateStaff(ctx context.Context, input CreateStaffInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(input.Email))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email")
	}
	email := strings.ToLower(addr.Address)
	if !input.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be staff, manager or admin").
			WithDetails(map[string]any{"role": input.Role})
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:         &email,
		Name:          name,
		Phone:         input.Phone,
		PasswordHash:  &hash,
		Role:          input.Role,
		CreditBalance: decimal.Zero,
		TotalSpent:    decimal.Zero,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/internal/testdb"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/security"
)

var fastArgon = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	repo := NewRepository(testdb.Open(t))
	svc, err := NewService(repo, fastArgon)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateStaffHashesPassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateStaff(ctx, CreateStaffInput{
		Name:     " Ravi ",
		Email:    "Ravi@Example.com",
		Password: "correct-horse",
		Role:     enums.UserRoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", user.Name)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ravi@example.com", *user.Email)

	stored, err := repo.FindByEmail(ctx, "RAVI@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Equal(t, enums.UserRoleManager, stored.Role)
	require.NotNil(t, stored.PasswordHash)
	ok, err := security.VerifyPassword("correct-horse", *stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	dto := FromModel(stored)
	assert.Equal(t, "Ravi", dto.Name)
	assert.True(t, dto.IsActive)
}

func TestCreateStaffRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	input := CreateStaffInput{Name: "Asha", Email: "asha@example.com", Password: "password1", Role: enums.UserRoleStaff}

	_, err := svc.CreateStaff(ctx, input)
	require.NoError(t, err)

	input.Email = "ASHA@example.com"
	_, err = svc.CreateStaff(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCreateStaffValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	valid := CreateStaffInput{Name: "Asha", Email: "asha@example.com", Password: "password1", Role: enums.UserRoleStaff}

	cases := map[string]func(in *CreateStaffInput){
		"missing name":   func(in *CreateStaffInput) { in.Name = "  " },
		"bad email":      func(in *CreateStaffInput) { in.Email = "not-an-email" },
		"customer role":  func(in *CreateStaffInput) { in.Role = enums.UserRoleCustomer },
		"unknown role":   func(in *CreateStaffInput) { in.Role = "owner" },
		"short password": func(in *CreateStaffInput) { in.Password = "short" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.CreateStaff(ctx, in)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

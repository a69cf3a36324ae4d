package credit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// Account identifies the owner of a credit balance. Customers live in the
// users table and sellers in the sellers table; the ledger treats both alike.
type Account struct {
	Kind enums.CreditOwnerKind
	ID   uuid.UUID
}

// Customer returns the account of a customer user.
func Customer(id uuid.UUID) Account {
	return Account{Kind: enums.CreditOwnerCustomer, ID: id}
}

// Seller returns the account of a seller.
func Seller(id uuid.UUID) Account {
	return Account{Kind: enums.CreditOwnerSeller, ID: id}
}

func (a Account) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

func (a Account) validate() error {
	if !a.Kind.IsValid() {
		return fmt.Errorf("invalid credit owner kind %q", a.Kind)
	}
	if a.ID == uuid.Nil {
		return fmt.Errorf("credit owner id required")
	}
	return nil
}

func (a Account) table() string {
	if a.Kind == enums.CreditOwnerSeller {
		return "sellers"
	}
	return "users"
}

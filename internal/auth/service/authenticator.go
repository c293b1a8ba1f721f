package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/store"
	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
)

// AccountAuthenticator checks username or email plus password against the
// accounts table.
type AccountAuthenticator struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// Authenticate treats identifiers containing "@" as emails.
func (a *AccountAuthenticator) Authenticate(ctx context.Context, identifier, password string) (domain.Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.Principal{}, ErrInvalidCredentials
	}

	var (
		acct domain.Account
		err  error
	)
	if strings.Contains(identifier, "@") {
		acct, err = a.Store.Accounts().GetAccountByEmail(ctx, domain.NormalizeEmail(identifier))
	} else {
		acct, err = a.Store.Accounts().GetAccountByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing time as a real check so response
			// times do not reveal which accounts exist.
			_ = a.Hasher.Verify(password, a.dummy())
			return domain.Principal{}, ErrInvalidCredentials
		}
		return domain.Principal{}, err
	}

	if err := a.Hasher.Verify(password, acct.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.Principal{}, ErrInvalidCredentials
		}
		return domain.Principal{}, err
	}

	return domain.Principal{Subject: acct.Username, Role: acct.Role}, nil
}

func (a *AccountAuthenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.Hasher.Hash("roomstay-dummy-password")
	})
	return a.dummyHash
}

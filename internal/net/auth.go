package net

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/crawld/server/internal/world"
)

// ErrBadCredentials rejects a hello whose secret does not match the account.
var ErrBadCredentials = errors.New("bad credentials")

// Authenticator resolves a hello frame to a stable player identity, creating
// the account on first use. Implementations run in session goroutines and
// must be safe for concurrent use. Disconnect is advisory bookkeeping and
// must not block.
type Authenticator interface {
	Authenticate(ctx context.Context, name, secret string) (world.Identity, error)
	Disconnect(identity world.Identity)
}

type memAccount struct {
	identity world.Identity
	hash     []byte
}

// MemoryAuth mints identities for database-less runs. Accounts live for the
// process lifetime only.
type MemoryAuth struct {
	mu       sync.Mutex
	next     uint64
	accounts map[string]*memAccount
}

func NewMemoryAuth() *MemoryAuth {
	return &MemoryAuth{accounts: make(map[string]*memAccount)}
}

func (a *MemoryAuth) Authenticate(_ context.Context, name, secret string) (world.Identity, error) {
	key := world.CanonicalName(name)
	if key == "" || secret == "" {
		return 0, ErrBadCredentials
	}

	a.mu.Lock()
	acct := a.accounts[key]
	a.mu.Unlock()

	if acct != nil {
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(secret)) != nil {
			return 0, ErrBadCredentials
		}
		return acct.identity, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if acct := a.accounts[key]; acct != nil {
		// Lost the race against a concurrent first hello for the same name.
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(secret)) != nil {
			return 0, ErrBadCredentials
		}
		return acct.identity, nil
	}
	a.next++
	acct = &memAccount{identity: world.Identity(a.next), hash: hash}
	a.accounts[key] = acct
	return acct.identity, nil
}

func (a *MemoryAuth) Disconnect(world.Identity) {}

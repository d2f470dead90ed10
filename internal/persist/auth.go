package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/world"
)

var (
	errBadCredentials = errors.New("bad credentials")
	errBanned         = errors.New("account banned")
)

// AccountAuth resolves gateway credentials against the accounts table,
// creating the account on first use. Account names are stored in canonical
// form so names differing only by case or width share one account. Safe for
// concurrent use from session goroutines.
type AccountAuth struct {
	repo *AccountRepo
	log  *zap.Logger

	mu     sync.Mutex
	online map[world.Identity]string
}

func NewAccountAuth(repo *AccountRepo, log *zap.Logger) *AccountAuth {
	return &AccountAuth{
		repo:   repo,
		log:    log,
		online: make(map[world.Identity]string),
	}
}

func (a *AccountAuth) Authenticate(ctx context.Context, name, secret string) (world.Identity, error) {
	key := world.CanonicalName(name)
	if key == "" || secret == "" {
		return 0, errBadCredentials
	}

	row, err := a.repo.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	if row == nil {
		row, err = a.repo.Create(ctx, key, secret)
		if err != nil {
			return 0, err
		}
		a.log.Info("account created",
			zap.String("account", key), zap.Uint64("identity", uint64(row.Identity)))
	} else {
		if row.Banned {
			return 0, errBanned
		}
		if !a.repo.ValidatePassword(row.PasswordHash, secret) {
			return 0, errBadCredentials
		}
		if err := a.repo.UpdateLastActive(ctx, key); err != nil {
			a.log.Warn("last_active update failed", zap.String("account", key), zap.Error(err))
		}
	}

	a.mu.Lock()
	a.online[row.Identity] = key
	a.mu.Unlock()
	if err := a.repo.SetOnline(ctx, key, true); err != nil {
		a.log.Warn("online flag update failed", zap.String("account", key), zap.Error(err))
	}

	return row.Identity, nil
}

// Disconnect clears the online flag. Called from the game loop, so the
// database write runs in its own goroutine.
func (a *AccountAuth) Disconnect(id world.Identity) {
	a.mu.Lock()
	key, ok := a.online[id]
	if ok {
		delete(a.online, id)
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.repo.SetOnline(ctx, key, false); err != nil {
			a.log.Warn("online flag update failed", zap.String("account", key), zap.Error(err))
		}
	}()
}

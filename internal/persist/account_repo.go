package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/crawld/server/internal/world"
)

// AccountRow is the auth record. The identity column mints the stable
// player id every world table keys on; account rows themselves never
// enter the world state.
type AccountRow struct {
	Identity     world.Identity
	Name         string
	PasswordHash string
	Banned       bool
	Online       bool
	CreatedAt    time.Time
	LastActive   *time.Time
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT identity, name, password_hash, banned, online, created_at, last_active
		 FROM accounts WHERE name = $1`, name,
	).Scan(&id, &row.Name, &row.PasswordHash, &row.Banned, &row.Online, &row.CreatedAt, &row.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Identity = world.Identity(id)
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, name, rawPassword string) (*AccountRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	row := &AccountRow{
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastActive:   &now,
	}
	var id int64
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO accounts (name, password_hash, last_active)
		 VALUES ($1, $2, $3) RETURNING identity`,
		row.Name, row.PasswordHash, row.LastActive,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	row.Identity = world.Identity(id)
	return row, nil
}

func (r *AccountRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

func (r *AccountRepo) UpdateLastActive(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET last_active = NOW() WHERE name = $1`, name)
	return err
}

func (r *AccountRepo) SetOnline(ctx context.Context, name string, online bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET online = $2 WHERE name = $1`, name, online)
	return err
}

// ClearOnline resets the online flag for every account, for boot after an
// unclean shutdown.
func (r *AccountRepo) ClearOnline(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE accounts SET online = FALSE WHERE online`)
	return err
}

package account

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores accounts in Postgres. The linked_account table has
// a unique constraint on (platform, external_id), which is what makes
// "an identity belongs to at most one account" hold under concurrency.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(ctx context.Context, dsn string) (*PGRepository, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PGRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations and health checks.
func (r *PGRepository) Pool() *pgxpool.Pool { return r.pool }

func (r *PGRepository) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

func (r *PGRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	const q = `SELECT id, pronouns, created_at FROM account WHERE id = $1`
	var a Account
	if err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Pronouns, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	links, err := r.linksFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Accounts = links
	return &a, nil
}

func (r *PGRepository) FindByIdentity(ctx context.Context, platform, externalID string) (*Account, error) {
	const q = `
		SELECT a.id, a.pronouns, a.created_at
		FROM account a
		JOIN linked_account l ON l.account_id = a.id
		WHERE l.platform = $1 AND l.external_id = $2`
	var a Account
	if err := r.pool.QueryRow(ctx, q, platform, externalID).Scan(&a.ID, &a.Pronouns, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	links, err := r.linksFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Accounts = links
	return &a, nil
}

func (r *PGRepository) Create(ctx context.Context, a *Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	pronouns := a.Pronouns
	if pronouns == "" {
		pronouns = DefaultPronouns
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO account (id, pronouns, created_at) VALUES ($1, $2, $3)`,
		a.ID, pronouns, createdAt,
	); err != nil {
		return mapPGErr(err)
	}
	for _, l := range a.Accounts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO linked_account (account_id, platform, external_id, name) VALUES ($1, $2, $3, $4)`,
			a.ID, l.Platform, l.ID, l.Name,
		); err != nil {
			return mapPGErr(err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) AddIdentity(ctx context.Context, accountID string, l Linked) error {
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO linked_account (account_id, platform, external_id, name)
		 SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM account WHERE id = $1)`,
		accountID, l.Platform, l.ID, l.Name,
	)
	if err != nil {
		return mapPGErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) RemoveIdentity(ctx context.Context, accountID, platform, externalID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var n int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM linked_account WHERE account_id = $1`, accountID,
	).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if n == 1 {
		// still need to know the one link targeted exists
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM linked_account WHERE account_id = $1 AND platform = $2 AND external_id = $3)`,
			accountID, platform, externalID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrLastLink
	}
	ct, err := tx.Exec(ctx,
		`DELETE FROM linked_account WHERE account_id = $1 AND platform = $2 AND external_id = $3`,
		accountID, platform, externalID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) SetPronouns(ctx context.Context, accountID, pronouns string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE account SET pronouns = $2 WHERE id = $1`,
		accountID, pronouns,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) linksFor(ctx context.Context, accountID string) ([]Linked, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT platform, external_id, name FROM linked_account WHERE account_id = $1 ORDER BY linked_at`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Linked
	for rows.Next() {
		var l Linked
		if err := rows.Scan(&l.Platform, &l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func mapPGErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/geocoder89/pricetracker/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `external_id, email, username, password_hash, role, status, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ExternalID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// maps pgx errors onto the user package sentinels
func mapUserErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}

	if IsUniqueViolation(err) {
		switch violatedConstraint(err) {
		case constraintUsersEmail:
			return user.ErrEmailTaken
		case constraintUsersUsername:
			return user.ErrUsernameTaken
		}
	}

	return err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.prom.ObserveDB("users.create", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (external_id, email, username, password_hash, role, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING `+userColumns,
			u.ExternalID, u.Email, u.Username, u.PasswordHash, u.Role, u.Status, u.CreatedAt, u.UpdatedAt,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserErr(err)
	}

	return out, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE email = $1`,
			email,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserErr(err)
	}

	return u, nil
}

// Ids that are not UUIDs cannot match a row; they are reported as not found
// instead of letting Postgres reject the cast.
func (r *UsersRepo) GetByExternalID(ctx context.Context, externalID string) (user.User, error) {
	if !utils.IsUUID(externalID) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.prom.ObserveDB("users.get_by_external_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE external_id = $1`,
			externalID,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserErr(err)
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, externalID, email, username string) (user.User, error) {
	if !utils.IsUUID(externalID) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.prom.ObserveDB("users.update_profile", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET email = $2,
				username = $3,
				updated_at = NOW()
			WHERE external_id = $1
			RETURNING `+userColumns,
			externalID, email, username,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserErr(err)
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, externalID, passwordHash string) error {
	if !utils.IsUUID(externalID) {
		return user.ErrNotFound
	}

	return r.prom.ObserveDB("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			SET password_hash = $2,
				updated_at = NOW()
			WHERE external_id = $1`,
			externalID, passwordHash,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) SetStatus(ctx context.Context, externalID string, status user.Status) (user.User, error) {
	if !utils.IsUUID(externalID) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.prom.ObserveDB("users.set_status", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET status = $2,
				updated_at = NOW()
			WHERE external_id = $1
			RETURNING `+userColumns,
			externalID, status,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserErr(err)
	}

	return u, nil
}

// List pages by (created_at, external_id) ascending; the caller passes the
// last row of the previous page.
func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, error) {
	out := make([]user.User, 0, filter.Limit)

	err := r.prom.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE (created_at, external_id) > ($1, $2)
			ORDER BY created_at ASC, external_id ASC
			LIMIT $3`,
			filter.AfterCreatedAt, filter.AfterID, filter.Limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

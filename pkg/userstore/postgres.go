package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/pg"
)

const (
	constraintEmail  = "users_email_key"
	constraintSocial = "user_social_accounts_provider_external_id_key"
)

const userColumns = `id, email, name, avatar_url, password_hash, is_verified, email_verified_at,
	role, status, last_login_at, last_login_ip, remember_token, created_at, updated_at`

// Postgres is a UserDirectory over database/sql. Open db with pg.OpenDB so
// queries run through the pgx driver.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres returns a directory using db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (p *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return p.findOne(ctx, p.db, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return p.findOne(ctx, p.db, `SELECT `+userColumns+` FROM users WHERE email = $1`, auth.NormalizeEmail(email))
}

func (p *Postgres) FindByProviderID(ctx context.Context, provider, externalID string) (*auth.User, error) {
	return p.findOne(ctx, p.db,
		`SELECT `+userColumns+` FROM users WHERE id = (
			SELECT user_id FROM user_social_accounts WHERE provider = $1 AND external_id = $2
		)`, provider, externalID)
}

func (p *Postgres) Create(ctx context.Context, u auth.User) (*auth.User, error) {
	rec := u.Clone()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Email = auth.NormalizeEmail(rec.Email)
	if rec.Role == "" {
		rec.Role = auth.RoleEmployee
	}
	if rec.Status == "" {
		rec.Status = auth.StatusActive
	}
	now := p.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	err := p.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			rec.ID, rec.Email, rec.Name, rec.AvatarURL, rec.PasswordHash, rec.IsVerified,
			nullTime(rec.EmailVerifiedAt), string(rec.Role), string(rec.Status),
			nullTime(rec.LastLoginAt), rec.LastLoginIP, rec.RememberToken, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return linkProviders(ctx, tx, rec.ID, rec.SocialIDs)
	})
	if err != nil {
		return nil, mapError("create user", err)
	}
	return rec, nil
}

func (p *Postgres) Update(ctx context.Context, id uuid.UUID, fields auth.UserFields) (*auth.User, error) {
	var next *auth.User
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := p.findOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		next = cur.Clone()
		fields.Apply(next)
		if err := fields.Guard(cur, next); err != nil {
			return err
		}
		if fields.IsZero() {
			return nil
		}
		next.UpdatedAt = p.now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET email = $2, name = $3, avatar_url = $4, password_hash = $5, is_verified = $6,
				email_verified_at = $7, role = $8, status = $9, last_login_at = $10, last_login_ip = $11,
				remember_token = $12, updated_at = $13
			WHERE id = $1`,
			id, next.Email, next.Name, next.AvatarURL, next.PasswordHash, next.IsVerified,
			nullTime(next.EmailVerifiedAt), string(next.Role), string(next.Status),
			nullTime(next.LastLoginAt), next.LastLoginIP, next.RememberToken, next.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if err := linkProviders(ctx, tx, id, fields.LinkProviders); err != nil {
			return err
		}
		for _, provider := range fields.UnlinkProviders {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM user_social_accounts WHERE user_id = $1 AND provider = $2`, id, provider); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapError("update user", err)
	}
	return next, nil
}

func (p *Postgres) findOne(ctx context.Context, q queryer, query string, args ...any) (*auth.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if pg.IsNotFoundError(err) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT provider, external_id FROM user_social_accounts WHERE user_id = $1 ORDER BY provider`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("find user social accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var provider, externalID string
		if err := rows.Scan(&provider, &externalID); err != nil {
			return nil, fmt.Errorf("scan user social account: %w", err)
		}
		if u.SocialIDs == nil {
			u.SocialIDs = make(map[string]string)
		}
		u.SocialIDs[provider] = externalID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find user social accounts: %w", err)
	}
	return u, nil
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func linkProviders(ctx context.Context, tx *sql.Tx, userID uuid.UUID, links map[string]string) error {
	providers := make([]string, 0, len(links))
	for provider, externalID := range links {
		if externalID != "" {
			providers = append(providers, provider)
		}
	}
	slices.Sort(providers)
	for _, provider := range providers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_social_accounts (user_id, provider, external_id) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, provider) DO UPDATE SET external_id = EXCLUDED.external_id`,
			userID, provider, links[provider])
		if err != nil {
			return err
		}
	}
	return nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		u                     auth.User
		role, status          string
		verifiedAt, lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.PasswordHash, &u.IsVerified, &verifiedAt,
		&role, &status, &lastLogin, &u.LastLoginIP, &u.RememberToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role, u.Status = auth.Role(role), auth.Status(status)
	if verifiedAt.Valid {
		u.EmailVerifiedAt = &verifiedAt.Time
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func mapError(op string, err error) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return err
	case pg.IsDuplicateKeyError(err):
		switch pg.ConstraintName(err) {
		case constraintSocial:
			return fmt.Errorf("%s: %w", op, auth.ErrProviderLinked)
		case constraintEmail:
			return fmt.Errorf("%s: %w", op, auth.ErrEmailAlreadyExists)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ auth.UserDirectory = (*Postgres)(nil)

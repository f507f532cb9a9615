package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/ids"
)

const identityColumns = `id, email, display_name, password_hash, role, status, created_at`

func (r *Repository) GetIdentityByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	identity := &domain.Identity{}
	if err := r.db.GetContext(ctx, identity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}

	return identity, nil
}

func (r *Repository) GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	identity := &domain.Identity{}
	if err := r.db.GetContext(ctx, identity, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}

	return identity, nil
}

// ListIdentities 按注册时间倒序返回所有用户
func (r *Repository) ListIdentities(ctx context.Context) ([]*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at DESC, id DESC`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	identities := make([]*domain.Identity, 0)
	if err := r.db.SelectContext(ctx, &identities, query); err != nil {
		return nil, err
	}

	return identities, nil
}

// UpdateIdentityStatus 直接覆盖状态字段，并发修改时以最后一次写入为准
func (r *Repository) UpdateIdentityStatus(ctx context.Context, id string, status domain.Status) (*domain.Identity, error) {
	query := `
		UPDATE identities
		SET status = $1
		WHERE id = $2
		RETURNING ` + identityColumns

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	identity := &domain.Identity{}
	if err := r.db.QueryRowxContext(ctx, query, status, id).StructScan(identity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}

	return identity, nil
}

// CreateIdentity 在同一个事务中抢占 bootstrap 记录并插入用户。
// bootstrap 表只允许存在一行，抢占成功的事务即为第一个用户，因此并发注册时也只会产生一个管理员。
// 调用方只需填写 Email、DisplayName 和 PasswordHash，其余字段由本方法填充。
func (r *Repository) CreateIdentity(ctx context.Context, identity *domain.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO bootstrap (claimed) VALUES (TRUE) ON CONFLICT DO NOTHING`)
	if err != nil {
		return err
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if identity.ID == "" {
		identity.ID = ids.New()
	}
	identity.Role, identity.Status = domain.InitialRoleAndStatus(claimed == 1)

	query := `
		INSERT INTO identities (id, email, display_name, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	args := []any{identity.ID, identity.Email, identity.DisplayName, identity.PasswordHash, identity.Role, identity.Status}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&identity.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "identities_email_key" {
			return domain.ErrEmailTaken
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

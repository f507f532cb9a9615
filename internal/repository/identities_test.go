package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/config"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

var identityRowColumns = []string{"id", "email", "display_name", "password_hash", "role", "status", "created_at"}

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5

	return NewRepository(cfg, db), mock
}

func TestCreateIdentityFirstUserBecomesAdmin(t *testing.T) {
	repo, mock := newTestRepository(t)
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bootstrap").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO identities").
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg(), "hash", "ADMIN", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectCommit()

	identity := &domain.Identity{Email: "a@x.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateIdentity(context.Background(), identity))

	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, domain.RoleElevated, identity.Role)
	assert.Equal(t, domain.StatusApproved, identity.Status)
	assert.Equal(t, createdAt, identity.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIdentityLaterUserIsPending(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bootstrap").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO identities").
		WithArgs(sqlmock.AnyArg(), "b@x.com", sqlmock.AnyArg(), "hash", "USER", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	identity := &domain.Identity{Email: "b@x.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateIdentity(context.Background(), identity))

	assert.Equal(t, domain.RoleStandard, identity.Role)
	assert.Equal(t, domain.StatusPending, identity.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIdentityDuplicateEmailRollsBack(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bootstrap").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO identities").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})
	mock.ExpectRollback()

	err := repo.CreateIdentity(context.Background(), &domain.Identity{Email: "a@x.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIdentityByEmailNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("FROM identities WHERE email").
		WithArgs("ghost@x.com").
		WillReturnRows(sqlmock.NewRows(identityRowColumns))

	_, err := repo.GetIdentityByEmail(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIdentityByID(t *testing.T) {
	repo, mock := newTestRepository(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery("FROM identities WHERE id").
		WithArgs("01ABC").
		WillReturnRows(sqlmock.NewRows(identityRowColumns).
			AddRow("01ABC", "a@x.com", "Alice", "hash", "ADMIN", "APPROVED", createdAt))

	identity, err := repo.GetIdentityByID(context.Background(), "01ABC")
	require.NoError(t, err)
	require.NotNil(t, identity.DisplayName)
	assert.Equal(t, "Alice", *identity.DisplayName)
	assert.True(t, identity.IsElevated())
	assert.True(t, identity.IsApproved())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListIdentitiesNewestFirst(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at DESC, id DESC").
		WillReturnRows(sqlmock.NewRows(identityRowColumns).
			AddRow("02", "b@x.com", nil, "hash", "USER", "PENDING", now).
			AddRow("01", "a@x.com", "Alice", "hash", "ADMIN", "APPROVED", now.Add(-time.Hour)))

	identities, err := repo.ListIdentities(context.Background())
	require.NoError(t, err)
	require.Len(t, identities, 2)
	assert.Equal(t, "02", identities[0].ID)
	assert.Nil(t, identities[0].DisplayName)
	assert.Equal(t, domain.StatusPending, identities[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIdentityStatus(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("UPDATE identities").
		WithArgs("APPROVED", "02").
		WillReturnRows(sqlmock.NewRows(identityRowColumns).
			AddRow("02", "b@x.com", nil, "hash", "USER", "APPROVED", time.Now()))

	identity, err := repo.UpdateIdentityStatus(context.Background(), "02", domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, identity.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIdentityStatusUnknownID(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("UPDATE identities").
		WithArgs("REJECTED", "missing").
		WillReturnRows(sqlmock.NewRows(identityRowColumns))

	_, err := repo.UpdateIdentityStatus(context.Background(), "missing", domain.StatusRejected)
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

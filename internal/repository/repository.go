package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/config"
)

type Repository struct {
	cfg *config.Config
	db  *sqlx.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg: cfg,
		db:  sqlx.NewDb(dbpool, "pgx"),
	}
}

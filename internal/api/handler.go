package api

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth/loginlimit"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/cache"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/config"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/notify"
)

// Handler carries the shared dependencies of every endpoint. Pool serves the
// pgx repositories; DB serves the gorm-backed financial and settings repos
// over the same database.
type Handler struct {
	Pool     *pgxpool.Pool
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    *cache.TTL
	Limiter  loginlimit.Store
	WhatsApp *notify.Client
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/api"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth/loginlimit"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/cache"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/config"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/middleware"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/migrate"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/notify"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var pool *pgxpool.Pool
	var gdb *gorm.DB
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("config postgres")
		}
		if cfg.DBMaxConns > 0 {
			poolConfig.MaxConns = int32(cfg.DBMaxConns)
		}
		if cfg.DBMinConns > 0 {
			poolConfig.MinConns = int32(cfg.DBMinConns)
		}
		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("conexão postgres")
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ping postgres")
		}
		if err := migrate.Run(context.Background(), pool); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}
		if err := seed.Run(context.Background(), pool); err != nil {
			log.Warn().Err(err).Msg("seed (ignored if already applied)")
		}

		// O repositório financeiro e de settings usa gorm sobre a mesma base.
		gdb, err = gorm.Open(gormpg.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexão gorm")
		}
	}

	// Limite de tentativas de login: só em produção; Redis quando disponível.
	var limiter loginlimit.Store = loginlimit.Disabled{}
	if cfg.IsProduction() {
		if cfg.RedisAddr != "" {
			limiter = loginlimit.NewRedis(goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr}))
		} else {
			limiter = loginlimit.NewMemory()
		}
	}

	h := &api.Handler{
		Pool:    pool,
		DB:      gdb,
		Cfg:     cfg,
		Cache:   cache.New(30 * time.Second),
		Limiter: limiter,
		WhatsApp: notify.NewClient(notify.Config{
			AccountSid: cfg.TwilioAccountSid,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioWhatsAppFrom,
		}),
	}

	r := mux.NewRouter()
	// Dentro do router para o template da rota aparecer nas métricas.
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no database"}`))
			return
		}
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Rotas públicas.
	public := r.PathPrefix("/api").Subrouter()
	public.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	public.HandleFunc("/public/leads/{slug}", h.PublicLeadIntake).Methods(http.MethodPost)
	public.HandleFunc("/prescriptions/verify/{token}", h.VerifyPrescription).Methods(http.MethodGet)
	public.HandleFunc("/prescriptions/verify/{token}/pdf", h.PrescriptionPDF).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	protected.HandleFunc("/calendar/appointments", h.ListCalendar).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.ListCalendar).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}", h.GetCalendarItem).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.UpdateCalendarItem).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{id}", h.DeleteCalendarItem).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{id}/finalize", h.FinalizeAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}/records", h.ListMedicalRecords).Methods(http.MethodGet)
	protected.HandleFunc("/dashboard/metrics", h.Dashboard).Methods(http.MethodGet)

	protected.HandleFunc("/clinic/info", h.ClinicInfo).Methods(http.MethodGet)
	protected.Handle("/clinic/settings", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleSuperAdmin)(http.HandlerFunc(h.GetSettings))).Methods(http.MethodGet)
	protected.Handle("/clinic/settings", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleSuperAdmin)(http.HandlerFunc(h.PutSettings))).Methods(http.MethodPut)
	protected.Handle("/clinic/upgrade-request", middleware.RequireRole(auth.RoleClinicAdmin)(http.HandlerFunc(h.RequestUpgrade))).Methods(http.MethodPost)

	protected.Handle("/financial/transactions", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleStaff)(http.HandlerFunc(h.ListTransactions))).Methods(http.MethodGet)
	protected.Handle("/financial/transactions", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleStaff)(http.HandlerFunc(h.CreateTransaction))).Methods(http.MethodPost)
	protected.Handle("/financial/transactions/{id}", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleStaff)(http.HandlerFunc(h.UpdateTransaction))).Methods(http.MethodPatch)
	protected.Handle("/financial/transactions/{id}", middleware.RequireRole(auth.RoleClinicAdmin)(http.HandlerFunc(h.DeleteTransaction))).Methods(http.MethodDelete)
	protected.Handle("/financial/report", middleware.RequireRole(auth.RoleClinicAdmin)(http.HandlerFunc(h.FinancialReport))).Methods(http.MethodGet)
	protected.Handle("/financial/dashboard", middleware.RequireRole(auth.RoleClinicAdmin, auth.RoleStaff)(http.HandlerFunc(h.FinancialDashboard))).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/saas").Subrouter()
	admin.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(auth.RoleSuperAdmin))
	admin.HandleFunc("/clinics", h.ListClinics).Methods(http.MethodGet)
	admin.HandleFunc("/clinics", h.CreateClinic).Methods(http.MethodPost)
	admin.HandleFunc("/clinics/{id}", h.GetClinic).Methods(http.MethodGet)
	admin.HandleFunc("/clinics/{id}", h.UpdateClinic).Methods(http.MethodPatch)
	admin.HandleFunc("/clinics/{id}", h.DeleteClinic).Methods(http.MethodDelete)
	admin.HandleFunc("/upgrade-requests", h.ListUpgradeRequests).Methods(http.MethodGet)
	admin.HandleFunc("/upgrade-requests/{id}", h.ResolveUpgradeRequest).Methods(http.MethodPatch)
	admin.HandleFunc("/analytics", h.PlatformAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/export", h.ExportAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs", h.ListAuditLogs).Methods(http.MethodGet)

	chain := middleware.Recover(middleware.RequestID(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("backend stopped")
}

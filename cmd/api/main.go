package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"pricedrop/internal/adapters/auth"
	"pricedrop/internal/adapters/gemini"
	server "pricedrop/internal/adapters/http_server"
	"pricedrop/internal/adapters/observability"
	redisad "pricedrop/internal/adapters/redis"
	"pricedrop/internal/app"
	"pricedrop/internal/domain"
	"pricedrop/internal/shared"
	mysqlrepo "pricedrop/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	llm, err := gemini.New(cfg.GeminiBase, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Gemini client")
	}
	var verifier domain.IdentityVerifier
	if cfg.JWTSecret != "" {
		v, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize token verifier")
		}
		verifier = v
	}
	quota := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer quota.Close()
	if err := quota.Ping(context.Background()); err != nil {
		// quota checks fail open, so a missing redis only costs us the limit
		log.Warn().Err(err).Msg("redis ping failed")
	}

	rnd := app.DefaultRand()
	partners := domain.DefaultPartners()
	acq := app.NewAcquisitionService(llm, partners, rnd, cfg.SearchTimeout)
	cmp := app.NewCompareService(acq, app.NewSanitizer(rnd), app.NewLinkComposer(partners))
	trk := app.NewTrackingService(mysqlrepo.New(db), cmp)
	ext := app.NewExtractionService(llm, cfg.AnalysisTimeout)

	// http; both searches run in parallel, so a minute covers the slower of the two
	srv := server.New(cfg.SearchTimeout+cfg.SearchTimeout/3, cfg.TrustProxy)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Compare:      cmp,
		Extract:      ext,
		Tracking:     trk,
		Verifier:     verifier,
		Quota:        quota,
		QuotaPerHour: cfg.QuotaPerHour,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"pricedrop/internal/adapters/gemini"
	"pricedrop/internal/adapters/observability"
	"pricedrop/internal/app"
	"pricedrop/internal/domain"
	"pricedrop/internal/shared"
	mysqlrepo "pricedrop/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, "recheck", cfg.LogLevel)

	log.Info().
		Str("model", cfg.GeminiModel).
		Int("workers", cfg.RecheckWorkers).
		Int("batch", cfg.RecheckBatch).
		Msg("recheck starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	llm, err := gemini.New(cfg.GeminiBase, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Gemini client")
	}
	rnd := app.DefaultRand()
	partners := domain.DefaultPartners()
	acq := app.NewAcquisitionService(llm, partners, rnd, cfg.SearchTimeout)
	cmp := app.NewCompareService(acq, app.NewSanitizer(rnd), app.NewLinkComposer(partners))
	trk := app.NewTrackingService(mysqlrepo.New(db), cmp)

	recs, err := trk.ActiveBatch(ctx, cfg.RecheckBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("list active trackings failed")
	}

	sem := semaphore.NewWeighted(int64(max(cfg.RecheckWorkers, 1)))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, rec := range recs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(rec domain.TrackingRecord) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := trk.Recheck(ctx, rec)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("id", rec.ID).Err(err).Msg("recheck failed")
				return
			}
			log.Info().
				Str("id", rec.ID).
				Str("status", string(res.Status)).
				Float64("best_price", res.BestPrice).
				Msg("recheck ok")
		}(rec)
	}

	wg.Wait()
	log.Info().Int("total", len(recs)).Int64("failed", failed.Load()).Msg("recheck completed")
}

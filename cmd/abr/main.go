package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver
	"github.com/joho/godotenv"

	"github.com/vbonduro/AudioBookRequest/internal/audible"
	"github.com/vbonduro/AudioBookRequest/internal/config"
	"github.com/vbonduro/AudioBookRequest/internal/httpapi"
	"github.com/vbonduro/AudioBookRequest/internal/indexers"
	"github.com/vbonduro/AudioBookRequest/internal/janitor"
	"github.com/vbonduro/AudioBookRequest/internal/middleware"
	"github.com/vbonduro/AudioBookRequest/internal/prowlarr"
	"github.com/vbonduro/AudioBookRequest/internal/query"
	"github.com/vbonduro/AudioBookRequest/internal/ranking"
	"github.com/vbonduro/AudioBookRequest/internal/requests"
	"github.com/vbonduro/AudioBookRequest/internal/settings"
)

func mustOpenDB() *sql.DB {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		log.Fatal("PG_DSN missing")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal(err)
	}
	if err := migrate(db); err != nil {
		log.Fatal(err)
	}
	log.Println("[db] connected")
	return db
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS book_request (
			id         UUID PRIMARY KEY,
			asin       TEXT NOT NULL,
			username   TEXT NOT NULL,
			title      TEXT NOT NULL,
			downloaded BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (asin, username)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	_ = godotenv.Load(".env")

	config.Load()
	config.SetupLogging()

	db := mustOpenDB()
	store := settings.NewStore(db)

	httpc := &http.Client{Timeout: config.HTTPTimeout()}

	prowlarrCfg := prowlarr.Config{Settings: store}
	prowlarrCli := prowlarr.NewClient(prowlarrCfg, httpc)
	audibleCli := audible.NewClient(httpc)
	requestRepo := &requests.Repo{DB: db}

	orch := &query.Orchestrator{
		Prowlarr: prowlarrCli,
		Ranker: &ranking.Ranker{
			Extractor: ranking.NewExtractor(httpc, prowlarrCfg, config.InspectTorrents()),
			Config:    ranking.Config{Settings: store},
		},
		Registry:    indexers.DefaultRegistry(),
		Env:         &indexers.Env{Settings: store, HTTP: httpc},
		TaskTimeout: config.EnrichTimeout(),
	}

	mux := http.NewServeMux()
	httpapi.NewHandlers(httpapi.Deps{
		Audible:      audibleCli,
		Orchestrator: orch,
		Requests:     requestRepo,
		Prowlarr:     prowlarrCli,
	}).Register(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.EnableCORS(w)
			return
		}
		http.NotFound(w, r)
	})

	addr := config.ListenAddr()
	log.Printf("[boot] abr listening on %s inspect=%t", addr, config.InspectTorrents())

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// drop long-expired search caches in the background
	go janitor.Run(rootCtx, config.JanitorInterval(),
		func() { prowlarrCli.PurgeCaches(7 * 24 * time.Hour) },
		func() { indexers.PurgeMamCache(7 * 24 * time.Hour) },
		func() { audibleCli.PurgeCaches(30 * 24 * time.Hour) },
	)

	srv := &http.Server{
		Addr:     addr,
		Handler:  middleware.Recover(mux),
		ErrorLog: log.New(log.Writer(), "[http] ", 0),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-rootCtx.Done()
	log.Printf("[boot] shutdown requested")

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)

	_ = db.Close()
	log.Printf("[boot] shutdown complete")
}

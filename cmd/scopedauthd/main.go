package main

import (
	"log"
	"os"
	"strings"

	"github.com/coursebook/scopedauth/migrate"
	"github.com/coursebook/scopedauth/scope"
	"github.com/coursebook/scopedauth/seed"
	"github.com/coursebook/scopedauth/server"
	"github.com/coursebook/scopedauth/store"
)

func main() {
	logger := log.New(os.Stdout, "[scopedauthd] ", log.LstdFlags)

	if err := migrate.RunFromEnv(logger); err != nil {
		logger.Fatalf("migrate failed: %v", err)
	}
	if err := seed.RunFromEnv(); err != nil {
		logger.Fatalf("seed failed: %v", err)
	}

	cfg := server.GetConfig()
	db, err := store.Open(cfg.DBDSN())
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}

	reg := scope.NewRegistry()
	types := strings.TrimSpace(os.Getenv("SCOPE_TYPES"))
	if types == "" {
		types = "course"
	}
	for _, t := range strings.Split(types, ",") {
		reg.Register(strings.TrimSpace(t))
	}

	srv := server.NewServer(cfg, db, reg)
	defer srv.Close()

	logger.Printf("listening on %s (env %s, scopes %s)", cfg.Listen, cfg.Env, types)
	if err := srv.Router().Run(cfg.Listen); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

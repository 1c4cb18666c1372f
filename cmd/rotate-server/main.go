package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/caasmo/restinpieces"
	"github.com/pelletier/go-toml/v2"

	"github.com/caasmo/restinpieces-certrotate"
	"github.com/caasmo/restinpieces-certrotate/tencent"
)

const JobTypeCertRotation = "certificate_rotation"

func main() {
	dbPath := flag.String("db", "", "Path to the SQLite DB used by the framework")
	ageKeyPath := flag.String("age-key", "", "Path to the age identity (private key) file (required)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <db-path> -age-key <id-path>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Start the restinpieces application server with CDN certificate rotation jobs.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *dbPath == "" || *ageKeyPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	dbPool, err := restinpieces.NewZombiezenPool(*dbPath)
	if err != nil {
		slog.Error("failed to create database pool", "path", *dbPath, "error", err)
		os.Exit(1)
	}

	defer func() {
		slog.Info("Closing database pool...")
		if err := dbPool.Close(); err != nil {
			slog.Error("Error closing database pool", "error", err)
		}
	}()

	app, srv, err := restinpieces.New(
		restinpieces.WithZombiezenPool(dbPool),
		restinpieces.WithAgeKeyPath(*ageKeyPath),
	)
	if err != nil {
		slog.Error("failed to initialize restinpieces application", "error", err)
		os.Exit(1)
	}
	logger := app.Logger()

	// The rotation config lives encrypted in the secure store, never in env.
	logger.Info("Loading rotation configuration from database", "scope", certrotate.ConfigScope)
	tomlData, _, err := app.ConfigStore().Get(certrotate.ConfigScope, 0)
	if err != nil {
		logger.Error("failed to load rotation config from DB", "scope", certrotate.ConfigScope, "error", err)
		os.Exit(1)
	}
	if len(tomlData) == 0 {
		logger.Error("rotation config data loaded from DB is empty", "scope", certrotate.ConfigScope)
		os.Exit(1)
	}

	var cfg certrotate.Config
	if err := toml.Unmarshal(tomlData, &cfg); err != nil {
		logger.Error("failed to unmarshal rotation TOML config", "scope", certrotate.ConfigScope, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid rotation config", "scope", certrotate.ConfigScope, "error", err)
		os.Exit(1)
	}

	opts := tencent.Options{
		SecretID:    cfg.SecretID,
		SecretKey:   cfg.SecretKey,
		Region:      cfg.Region,
		SSLEndpoint: cfg.SSLEndpoint,
		CDNEndpoint: cfg.CDNEndpoint,
	}

	// Each job rotates the certificate last saved by the ACME renewal job.
	rotator := certrotate.NewRotator(
		tencent.NewRegistry(opts),
		tencent.NewBinder(opts),
		logger,
		certrotate.WithSource(certrotate.StoreSource{
			Store: app.ConfigStore(),
			Scope: certrotate.CertificateOutputScope,
		}),
	)

	err = srv.AddJobHandler(JobTypeCertRotation, rotator)
	if err != nil {
		logger.Error("Failed to register certificate rotation job handler", "job_type", JobTypeCertRotation, "error", err)
		os.Exit(1)
	}
	logger.Info("Registered certificate rotation job handler", "job_type", JobTypeCertRotation)

	srv.Run()

	slog.Info("Server shut down gracefully.")
}

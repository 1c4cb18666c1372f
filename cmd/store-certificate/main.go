package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caasmo/restinpieces"
	"github.com/caasmo/restinpieces/config"
	dbz "github.com/caasmo/restinpieces/db/zombiezen"
	"github.com/pelletier/go-toml/v2"

	"github.com/caasmo/restinpieces-certrotate"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	dbPathFlag := flag.String("dbpath", "", "Path to the SQLite database file (required)")
	ageIdentityPathFlag := flag.String("age-key", "", "Path to the age identity file (private key 'AGE-SECRET-KEY-1...') (required)")
	certPathFlag := flag.String("cert-path", "", "Directory holding fullchain.cer and privkey.key (required)")
	scopeFlag := flag.String("scope", certrotate.CertificateOutputScope, "Secure config scope to save the certificate into")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -dbpath <db-file> -age-key <identity-file> -cert-path <dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Saves a local certificate bundle into the secure store for the rotation job.\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *dbPathFlag == "" || *ageIdentityPathFlag == "" || *certPathFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	// The bundle is checked before anything is written.
	bundle, err := certrotate.LoadBundle(*certPathFlag)
	if err != nil {
		logger.Error("failed to load certificate bundle", "path", *certPathFlag, "error", err)
		os.Exit(1)
	}
	record, err := certrotate.ParseCertificate(bundle.CertificateChain, time.Now())
	if err != nil {
		logger.Error("refusing to store certificate", "path", *certPathFlag, "error", err)
		os.Exit(1)
	}

	logger.Info("Creating sqlite database pool", "path", *dbPathFlag)
	pool, err := restinpieces.NewZombiezenPool(*dbPathFlag)
	if err != nil {
		logger.Error("failed to create database pool", "db_path", *dbPathFlag, "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("Closing database pool")
		if err := pool.Close(); err != nil {
			logger.Error("error closing database pool", "error", err)
		}
	}()

	dbImpl, err := dbz.New(pool)
	if err != nil {
		logger.Error("failed to instantiate zombiezen db from pool", "error", err)
		os.Exit(1)
	}

	secureStore, err := config.NewSecureStoreAge(dbImpl, *ageIdentityPathFlag)
	if err != nil {
		logger.Error("failed to instantiate secure store (age)", "age_key_path", *ageIdentityPathFlag, "error", err)
		os.Exit(1)
	}

	tomlBytes, err := toml.Marshal(certrotate.CertificateOutput{
		CertificateChain: bundle.CertificateChain,
		PrivateKey:       bundle.PrivateKey,
	})
	if err != nil {
		logger.Error("failed to marshal certificate output to TOML", "error", err)
		os.Exit(1)
	}

	description := fmt.Sprintf("Certificate for %s (fingerprint %s, expires %s)",
		record.PrimaryDomain, record.Fingerprint, record.ExpiresAt.Format(time.RFC3339))
	logger.Info("Saving certificate", "scope", *scopeFlag, "domain", record.PrimaryDomain)
	if err := secureStore.Save(*scopeFlag, tomlBytes, "toml", description); err != nil {
		logger.Error("failed to save certificate via SecureStore", "scope", *scopeFlag, "error", err)
		os.Exit(1)
	}

	logger.Info("Successfully saved certificate", "scope", *scopeFlag, "fingerprint", record.Fingerprint)
}

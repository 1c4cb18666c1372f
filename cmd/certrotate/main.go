package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/caasmo/restinpieces-certrotate"
	"github.com/caasmo/restinpieces-certrotate/tencent"
)

func main() {
	app := &cli.App{
		Name:      "certrotate",
		Usage:     "Rotate a TLS certificate across CDN domains",
		ArgsUsage: "[cert-path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to an optional TOML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment",
				Value: ".env",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall timeout, 0 for none",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Read remote state and report planned changes without applying them",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "certrotate failed:\n%v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	certPath := cfg.CertPath
	if c.Args().Present() {
		certPath, err = filepath.Abs(c.Args().First())
		if err != nil {
			return fmt.Errorf("resolve cert path: %w", err)
		}
	}

	// Missing files abort before any network activity.
	bundle, err := certrotate.LoadBundle(certPath)
	if err != nil {
		return err
	}

	opts := tencent.Options{
		SecretID:    cfg.SecretID,
		SecretKey:   cfg.SecretKey,
		Region:      cfg.Region,
		SSLEndpoint: cfg.SSLEndpoint,
		CDNEndpoint: cfg.CDNEndpoint,
	}
	rotator := certrotate.NewRotator(
		tencent.NewRegistry(opts),
		tencent.NewBinder(opts),
		logger,
		certrotate.WithDryRun(c.Bool("dry-run")),
	)

	ctx := context.Background()
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("Starting certificate rotation", "cert_path", certPath, "dry_run", c.Bool("dry-run"))
	report, err := rotator.Rotate(ctx, bundle)
	if err != nil {
		return err
	}

	printSummary(report)
	return nil
}

// loadConfig layers the .env file, the optional TOML file and the
// environment, then checks the required secrets.
func loadConfig(c *cli.Context) (*certrotate.Config, error) {
	if err := certrotate.LoadEnvFile(c.String("env-file")); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := certrotate.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(report *certrotate.Report) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	planned := color.New(color.FgYellow)

	fmt.Println()
	bold.Printf("Certificate %s", report.Certificate.ID)
	if report.Record != nil {
		fmt.Printf(" (%s, expires %s)", report.Record.PrimaryDomain, report.Record.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	if report.Uploaded {
		fmt.Println("  uploaded as a new certificate")
	}

	for _, d := range report.Degraded {
		planned.Printf("  degraded %s: %v\n", d.Step, d.Err)
	}

	printItems := func(title string, items []certrotate.ItemResult) {
		bold.Printf("%s (%d)\n", title, len(items))
		for _, item := range items {
			switch {
			case item.Planned:
				planned.Printf("  ~ %s\n", item.Target)
			case item.Err != nil:
				fail.Printf("  x %s: %v\n", item.Target, item.Err)
			default:
				ok.Printf("  + %s\n", item.Target)
			}
		}
	}
	printItems("Rebound domains", report.Bindings)
	printItems("Retired certificates", report.Retirements)

	if n := report.Failures(); n > 0 {
		fail.Printf("%d operations failed, see the log above\n", n)
	}
}

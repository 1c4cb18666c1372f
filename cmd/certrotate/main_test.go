package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/caasmo/restinpieces-certrotate"
)

func runLoadConfig(t *testing.T, args ...string) (*certrotate.Config, error) {
	t.Helper()
	var (
		cfg *certrotate.Config
		err error
	)
	app := &cli.App{
		Name: "test-app",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.StringFlag{Name: "env-file", Value: ".env"},
		},
		Action: func(c *cli.Context) error {
			cfg, err = loadConfig(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test-app"}, args...)))
	return cfg, err
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing secrets", func(t *testing.T) {
		t.Setenv(certrotate.EnvSecretID, "")
		t.Setenv(certrotate.EnvSecretKey, "")

		_, err := runLoadConfig(t, "--env-file", filepath.Join(t.TempDir(), ".env"))
		require.ErrorIs(t, err, certrotate.ErrMissingConfig)
		assert.Contains(t, err.Error(), certrotate.EnvSecretID)
		assert.Contains(t, err.Error(), certrotate.EnvSecretKey)
	})

	t.Run("env file", func(t *testing.T) {
		t.Setenv(certrotate.EnvSecretID, "")
		t.Setenv(certrotate.EnvSecretKey, "")
		os.Unsetenv(certrotate.EnvSecretID)
		os.Unsetenv(certrotate.EnvSecretKey)

		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("TENCENT_SECRET_ID=id-from-file\nTENCENT_SECRET_KEY=key-from-file\n"), 0600))

		cfg, err := runLoadConfig(t, "--env-file", envFile)
		require.NoError(t, err)
		assert.Equal(t, "id-from-file", cfg.SecretID)
		assert.Equal(t, "key-from-file", cfg.SecretKey)
	})
}

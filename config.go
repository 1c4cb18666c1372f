package certrotate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// ConfigScope is the secure config scope holding the rotation Config
	// when the rotation runs as a restinpieces job.
	ConfigScope = "certrotate_config"

	EnvSecretID  = "TENCENT_SECRET_ID"
	EnvSecretKey = "TENCENT_SECRET_KEY"
	EnvCertPath  = "CERT_PATH"
	EnvRegion    = "TENCENT_REGION"
)

// Config holds the credentials and defaults of a rotation run.
type Config struct {
	SecretID    string `toml:"secret_id" comment:"Cloud API secret id (set via env TENCENT_SECRET_ID)"`
	SecretKey   string `toml:"secret_key" comment:"Cloud API secret key (set via env TENCENT_SECRET_KEY)"`
	CertPath    string `toml:"cert_path" comment:"Absolute path of the directory holding fullchain.cer and privkey.key"`
	Region      string `toml:"region" comment:"API region, empty for the global endpoints"`
	SSLEndpoint string `toml:"ssl_endpoint" comment:"Override for the SSL certificate API endpoint"`
	CDNEndpoint string `toml:"cdn_endpoint" comment:"Override for the CDN API endpoint"`
}

// LoadConfig reads a TOML config file. An empty path yields an empty Config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays the values found through lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, field := range map[string]*string{
		EnvSecretID:  &c.SecretID,
		EnvSecretKey: &c.SecretKey,
		EnvCertPath:  &c.CertPath,
		EnvRegion:    &c.Region,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
}

// Validate names every missing required item.
func (c *Config) Validate() error {
	var missing []string
	if c.SecretID == "" {
		missing = append(missing, EnvSecretID)
	}
	if c.SecretKey == "" {
		missing = append(missing, EnvSecretKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s, check the environment or the .env file", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

package certrotate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	FullChainFileName  = "fullchain.cer"
	PrivateKeyFileName = "privkey.key"

	// CertificateOutputScope is the secure config scope the restinpieces
	// ACME renewal job saves the obtained certificate and key into.
	CertificateOutputScope = "certificate_output"
)

// CertificateOutput is the TOML document stored under CertificateOutputScope.
type CertificateOutput struct {
	CertificateChain string `toml:"certificate_chain"`
	PrivateKey       string `toml:"private_key"`
}

// DirSource loads fullchain.cer and privkey.key from a directory.
type DirSource struct {
	Path string
}

// Load reads both files. Nothing is parsed here.
func (s DirSource) Load(ctx context.Context) (Bundle, error) {
	return LoadBundle(s.Path)
}

// LoadBundle reads the certificate chain and private key files from dir.
func LoadBundle(dir string) (Bundle, error) {
	if dir == "" {
		return Bundle{}, fmt.Errorf("%w: no path given", ErrPathNotFound)
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Bundle{}, fmt.Errorf("%w: %s", ErrPathNotFound, dir)
		}
		return Bundle{}, fmt.Errorf("%w (path: %s): %v", ErrFileRead, dir, err)
	}

	chain, err := os.ReadFile(filepath.Join(dir, FullChainFileName))
	if err != nil {
		return Bundle{}, fmt.Errorf("%w (path: %s): %v", ErrFileRead, dir, err)
	}
	key, err := os.ReadFile(filepath.Join(dir, PrivateKeyFileName))
	if err != nil {
		return Bundle{}, fmt.Errorf("%w (path: %s): %v", ErrFileRead, dir, err)
	}

	return Bundle{CertificateChain: string(chain), PrivateKey: string(key)}, nil
}

// ConfigReader is the read side of the restinpieces secure store.
// Generation 0 is the latest saved version.
type ConfigReader interface {
	Get(scope string, generation int) ([]byte, string, error)
}

// StoreSource loads the bundle from a secure config store scope holding a
// CertificateOutput TOML document.
type StoreSource struct {
	Store ConfigReader
	Scope string
}

func (s StoreSource) Load(ctx context.Context) (Bundle, error) {
	scope := s.Scope
	if scope == "" {
		scope = CertificateOutputScope
	}

	data, _, err := s.Store.Get(scope, 0)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w (scope: %s): %v", ErrFileRead, scope, err)
	}
	if len(data) == 0 {
		return Bundle{}, fmt.Errorf("%w: scope %s is empty", ErrPathNotFound, scope)
	}

	var out CertificateOutput
	if err := toml.Unmarshal(data, &out); err != nil {
		return Bundle{}, fmt.Errorf("%w (scope: %s): %v", ErrFileRead, scope, err)
	}

	return Bundle{CertificateChain: out.CertificateChain, PrivateKey: out.PrivateKey}, nil
}

package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where bloggy stores its own data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the instance, used for feed links
	InstanceURL string

	// CacheEnabled toggles the query response cache. When false the query
	// engine always executes against the document store.
	CacheEnabled bool
	// CacheTTL is the lifetime of a cached query result.
	CacheTTL time.Duration
	// CacheCapacity bounds the number of cached query results.
	CacheCapacity int
	// CacheRedisAddr, when set, enables cross-process cache invalidation
	// through a shared Redis epoch channel.
	CacheRedisAddr string

	// TokenizerName selects the full-text tokenizer by registry name.
	// Empty means the default unicode tokenizer.
	TokenizerName string
	// TokenizerModulePath is an optional binding hint kept for
	// configuration compatibility. Tokenizers are resolved from the
	// in-process registry, not loaded from disk.
	TokenizerModulePath string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "bloggy")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/bloggy"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("bloggy_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.CacheTTL <= 0 {
		p.CacheTTL = 5 * time.Minute
	}
	if p.CacheCapacity <= 0 {
		p.CacheCapacity = 1000
	}

	return nil
}

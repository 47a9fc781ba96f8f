package model

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	DefaultListen       = ":8009"
	DefaultDatabasePath = "exporter.db"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Version  int               `json:"version" yaml:"version"` // fixed 0 for now
	Server   *Server           `json:"server,omitempty" yaml:"server,omitempty"`
	Database Database          `json:"database" yaml:"database"`
	Cache    *Cache            `json:"cache,omitempty" yaml:"cache,omitempty"`
	Ranks    map[string]string `json:"ranks,omitempty" yaml:"ranks,omitempty"`
	Verbose  *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// HTTP server settings.
type Server struct {
	Listen       *TCPAddr  `json:"listen,omitempty" yaml:"listen,omitempty"`
	ReadTimeout  *Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout *Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// SQLite database holding targets, test groups, mappings and plugin outputs.
type Database struct {
	Path string `json:"path" yaml:"path"`
}

// Redis cache of test groups and mappings, disabled when absent.
type Cache struct {
	Redis URL       `json:"redis" yaml:"redis"`
	TTL   *Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// DefaultConfig is stored when no configuration file exists.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Server: &Server{
			Listen:       mustTCPAddr(DefaultListen),
			ReadTimeout:  &Duration{Duration: DefaultReadTimeout},
			WriteTimeout: &Duration{Duration: DefaultWriteTimeout},
		},
		Database: Database{Path: DefaultDatabasePath},
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("exporter.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	if _, err := out.RankTable(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// RankTable returns configured ranks or DefaultRanks.
func (c Config) RankTable() (Ranks, error) {
	if len(c.Ranks) == 0 {
		return DefaultRanks(), nil
	}
	ranks, err := ParseRanks(c.Ranks)
	if err != nil {
		return nil, fmt.Errorf("parsing ranks: %w", err)
	}
	return ranks, nil
}

func (c Config) IsVerbose() bool {
	return get(c.Verbose)
}

func (c Config) ListenAddr() string {
	if c.Server == nil || c.Server.Listen == nil {
		return DefaultListen
	}
	return c.Server.Listen.String()
}

func (c Config) ReadTimeout() time.Duration {
	if c.Server == nil || c.Server.ReadTimeout == nil {
		return DefaultReadTimeout
	}
	return c.Server.ReadTimeout.Duration
}

func (c Config) WriteTimeout() time.Duration {
	if c.Server == nil || c.Server.WriteTimeout == nil {
		return DefaultWriteTimeout
	}
	return c.Server.WriteTimeout.Duration
}

func (c Config) CacheTTL() time.Duration {
	if c.Cache == nil || c.Cache.TTL == nil {
		return DefaultCacheTTL
	}
	return c.Cache.TTL.Duration
}

func get[T any](pt *T) T {
	var zero T
	if pt == nil {
		return zero
	}
	return *pt
}

func mustTCPAddr(s string) *TCPAddr {
	addr, err := ParseTCPAddr(s)
	if err != nil {
		panic(err)
	}
	return &addr
}

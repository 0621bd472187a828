package store

import (
	"log"
	"os"
	"strconv"
)

// Config carries the environment-derived settings that drive backend
// selection. It is an explicit struct so Select stays a pure function and
// tests never have to mutate the real process environment.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KVRestURL   string
	KVRestToken string

	// Hosted marks a managed/production environment where the local
	// filesystem is not durable.
	Hosted bool

	// DataDir is the root for the file backend in local development.
	DataDir string
}

// ConfigFromEnv reads the backend configuration from the process environment.
func ConfigFromEnv() Config {
	db := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			db = n
		}
	}
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return Config{
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       db,
		KVRestURL:     os.Getenv("KV_REST_API_URL"),
		KVRestToken:   os.Getenv("KV_REST_API_TOKEN"),
		Hosted:        os.Getenv("HOSTED") == "true" || os.Getenv("HOSTED") == "1",
		DataDir:       dataDir,
	}
}

// Backends is the pair of backends the selection yields. Archive holds brief
// records; Jobs holds expiring job records. They are usually the same
// instance, except in local development where the file backend cannot expire
// keys and job records fall back to an in-process map.
type Backends struct {
	Archive Backend
	Jobs    Backend
}

// Close closes both backends, once each.
func (b Backends) Close() error {
	err := b.Archive.Close()
	if b.Jobs != b.Archive {
		if jerr := b.Jobs.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

// Select picks the storage backend from cfg in fixed priority order:
// Redis endpoint, then generic KV URL, then (in a hosted environment with
// neither) in-process memory with a durability warning, and finally the
// local filesystem as the development default. Selection is the only place
// a backend is silently substituted; per-call failures always propagate.
func Select(cfg Config) (Backends, error) {
	if cfg.RedisAddr != "" {
		rb, err := NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return Backends{}, err
		}
		return Backends{Archive: rb, Jobs: rb}, nil
	}

	if cfg.KVRestURL != "" {
		kb, err := NewKVBackend(cfg.KVRestURL, cfg.KVRestToken)
		if err != nil {
			return Backends{}, err
		}
		log.Printf("[store] Using generic KV service at %s", cfg.KVRestURL)
		return Backends{Archive: kb, Jobs: kb}, nil
	}

	if cfg.Hosted {
		log.Printf("[store] WARNING: no Redis or KV service configured in a hosted environment; falling back to in-process memory, data will not survive a restart")
		mb := NewMemoryBackend()
		return Backends{Archive: mb, Jobs: mb}, nil
	}

	fb, err := NewFileBackend(cfg.DataDir)
	if err != nil {
		return Backends{}, err
	}
	log.Printf("[store] Using local file storage under %s", cfg.DataDir)
	// The file backend cannot expire keys, so job records live in memory.
	return Backends{Archive: fb, Jobs: NewMemoryBackend()}, nil
}

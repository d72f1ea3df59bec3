package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0 (got %s)", c.Auth.AccessTokenTTL)
	}

	if len(c.Sponsee.CodeSecret) < 16 {
		return fmt.Errorf("sponsee.code_secret must be at least 16 characters (got %d)", len(c.Sponsee.CodeSecret))
	}

	if err := c.Storage.validate(c.Database); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if t := c.Ingest.ReviewThreshold; t < 0 || t > 1 {
		return fmt.Errorf("ingest.review_threshold must be within [0, 1] (got %v)", t)
	}

	if c.Letters.MaxListLimit <= 0 {
		return fmt.Errorf("letters.max_list_limit must be > 0 (got %d)", c.Letters.MaxListLimit)
	}

	return nil
}

func (s *StorageConfig) validate(db DatabaseConfig) error {
	switch s.NormalizedDriver() {
	case DriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the %s driver", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown driver %q (want %s, %s or %s)", s.Driver, DriverPostgres, DriverSQLite, DriverMemory)
	}
	return nil
}

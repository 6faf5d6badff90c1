/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var (
	globalMu        sync.RWMutex
	globalConnector Connector
	globalConfig    *Config
)

// GetDB returns the global Bun database, or nil before InitDB.
func GetDB() *bun.DB {
	if c := GetConnector(); c != nil {
		return c.DB()
	}
	return nil
}

// GetConnector returns the global connector, or nil before InitDB.
func GetConnector() Connector {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConnector
}

// GetConfig returns the configuration passed to InitDB, or nil.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// InitDB connects the global database, creating the tables of registered
// models when cfg.SchemaConfig asks for it.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(cfg, cfg.SchemaConfig.CreateTablesOnStartup)
}

// InitDatabaseWithOptions applies DB_* environment overrides to a copy of
// the connection settings, validates them and connects. A previously
// initialized global database is closed first.
func InitDatabaseWithOptions(cfg *Config, createTables bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := cfg.ConnectionConfig
	if err := ApplyEnv(&conn); err != nil {
		return nil, err
	}
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if err := CloseDB(); err != nil {
		GetLogger().Warn("Failed to close previous database", "error", err)
	}

	ctx := context.Background()
	c := NewConnector(&conn)
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if createTables {
		if err := c.CreateTables(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	globalMu.Lock()
	globalConnector = c
	globalConfig = cfg
	globalMu.Unlock()
	GetLogger().Info("Database initialization completed", "type", conn.Type, "create_tables", createTables)
	return c.DB(), nil
}

// CloseDB closes the global database. It is a no-op before InitDB.
func CloseDB() error {
	globalMu.Lock()
	c := globalConnector
	globalConnector = nil
	globalConfig = nil
	globalMu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// GetHealthStatus pings the global database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if c := GetConnector(); c != nil {
		return c.HealthCheck(ctx)
	}
	return &HealthStatus{
		LastError:     "Database not initialized",
		LastCheckTime: time.Now(),
	}
}

// GetDatabaseStats returns pool statistics of the global database.
func GetDatabaseStats() *DBStats {
	if c := GetConnector(); c != nil {
		return c.Stats()
	}
	return &DBStats{}
}

// CreateRegisteredTables creates the tables of every registered model on the
// global database.
func CreateRegisteredTables(ctx context.Context) error {
	c := GetConnector()
	if c == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.CreateTables(ctx)
}

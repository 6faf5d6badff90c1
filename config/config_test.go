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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, "hyperbun.db", cfg.Database.ConnectionConfig.DBName)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.Database.SchemaConfig.CreateTablesOnStartup)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  base_path: /v1
  read_timeout: 5s
database:
  connection:
    type: postgres
    host: db.local
    port: 5432
    dbname: blog
    sslmode: disable
  schema:
    create_tables_on_startup: false
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, "db.local", cfg.Database.ConnectionConfig.Host)
	assert.Equal(t, "blog", cfg.Database.ConnectionConfig.DBName)
	assert.Equal(t, 100, cfg.Database.ConnectionConfig.MaxOpenConns)
	assert.False(t, cfg.Database.SchemaConfig.CreateTablesOnStartup)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("HYPERBUN_SERVER_PORT", "9100")
	t.Setenv("HYPERBUN_DATABASE_CONNECTION_DBNAME", "other.db")
	t.Setenv("HYPERBUN_LOGGING_SQL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "other.db", cfg.Database.ConnectionConfig.DBName)
	assert.True(t, cfg.Logging.SQL)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"log level", "logging:\n  level: loud\n", "Level"},
		{"db type", "database:\n  connection:\n    type: oracle\n", "Type"},
		{"missing host", "database:\n  connection:\n    type: mysql\n", "Host is required"},
		{"port", "server:\n  port: 70000\n", "Port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

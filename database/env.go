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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envOverrides maps DB_* environment variables onto connection settings.
// Duration values accept Go syntax ("90s") or a bare number in the unit
// given by the entry.
var envOverrides = []struct {
	key   string
	apply func(c *ConnectionConfig, v string) error
}{
	{"DB_TYPE", setString(func(c *ConnectionConfig) *string { return &c.Type })},
	{"DB_HOST", setString(func(c *ConnectionConfig) *string { return &c.Host })},
	{"DB_PORT", setInt(func(c *ConnectionConfig) *int { return &c.Port })},
	{"DB_USERNAME", setString(func(c *ConnectionConfig) *string { return &c.Username })},
	{"DB_PASSWORD", setString(func(c *ConnectionConfig) *string { return &c.Password })},
	{"DB_NAME", setString(func(c *ConnectionConfig) *string { return &c.DBName })},
	{"DB_SSLMODE", setString(func(c *ConnectionConfig) *string { return &c.SSLMode })},
	{"DB_MAX_IDLE_CONNS", setInt(func(c *ConnectionConfig) *int { return &c.MaxIdleConns })},
	{"DB_MAX_OPEN_CONNS", setInt(func(c *ConnectionConfig) *int { return &c.MaxOpenConns })},
	{"DB_CONN_MAX_LIFETIME", setDuration(time.Second, func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime })},
	{"DB_ENABLE_RECONNECT", setBool(func(c *ConnectionConfig) *bool { return &c.EnableReconnect })},
	{"DB_RECONNECT_INTERVAL", setDuration(time.Second, func(c *ConnectionConfig) *time.Duration { return &c.ReconnectInterval })},
	{"DB_ENABLE_QUERY_LOG", setBool(func(c *ConnectionConfig) *bool { return &c.EnableQueryLog })},
	{"DB_SLOW_QUERY_MS", setDuration(time.Millisecond, func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime })},
}

// ApplyEnv overrides cfg with any DB_* variables that are set. Values that
// fail to parse are skipped and reported together.
func ApplyEnv(cfg *ConnectionConfig) error {
	var bad []string
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := o.apply(cfg, strings.TrimSpace(v)); err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", o.key, v))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid database environment: %s", strings.Join(bad, ", "))
	}
	return nil
}

func setString(field func(*ConnectionConfig) *string) func(*ConnectionConfig, string) error {
	return func(c *ConnectionConfig, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*ConnectionConfig) *int) func(*ConnectionConfig, string) error {
	return func(c *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*ConnectionConfig) *bool) func(*ConnectionConfig, string) error {
	return func(c *ConnectionConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setDuration(unit time.Duration, field func(*ConnectionConfig) *time.Duration) func(*ConnectionConfig, string) error {
	return func(c *ConnectionConfig, v string) error {
		if n, err := strconv.Atoi(v); err == nil {
			*field(c) = time.Duration(n) * unit
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

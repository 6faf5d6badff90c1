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
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

type driverSpec struct {
	driverName string
	dialect    func() schema.Dialect
	dsn        func(c *ConnectionConfig) string
}

var (
	mysqlSpec = driverSpec{
		driverName: "mysql",
		dialect:    func() schema.Dialect { return mysqldialect.New() },
		dsn:        mysqlDSN,
	}
	postgresSpec = driverSpec{
		driverName: "postgres",
		dialect:    func() schema.Dialect { return pgdialect.New() },
		dsn:        postgresDSN,
	}
	sqliteSpec = driverSpec{
		driverName: sqliteshim.ShimName,
		dialect:    func() schema.Dialect { return sqlitedialect.New() },
		dsn:        func(c *ConnectionConfig) string { return sqliteDSN(c.DBName) },
	}

	drivers = map[string]driverSpec{
		"mysql":      mysqlSpec,
		"postgres":   postgresSpec,
		"postgresql": postgresSpec,
		"sqlite":     sqliteSpec,
		"sqlite3":    sqliteSpec,
	}
)

// SupportedTypes lists the accepted ConnectionConfig.Type values.
func SupportedTypes() []string {
	types := make([]string, 0, len(drivers))
	for t := range drivers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DSN returns the data source name the connector opens for cfg.
func DSN(cfg *ConnectionConfig) (string, error) {
	spec, ok := drivers[cfg.Type]
	if !ok {
		return "", fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes())
	}
	return spec.dsn(cfg), nil
}

func mysqlDSN(c *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, portOr(c.Port, 3306))
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = c.ConnectTimeout
	mc.ReadTimeout = c.ReadTimeout
	mc.WriteTimeout = c.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func postgresDSN(c *ConnectionConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprint(int(c.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, portOr(c.Port, 5432)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(name string) string {
	switch {
	case name == ":memory:", strings.HasPrefix(name, "file:"):
		return name
	case strings.HasSuffix(name, ".db"), strings.HasSuffix(name, ".sqlite"), strings.HasSuffix(name, ".sqlite3"):
		return name
	default:
		return fmt.Sprintf("%s.db", name)
	}
}

func portOr(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}

type connector struct {
	cfg ConnectionConfig

	mu         sync.RWMutex
	logger     Logger
	db         *bun.DB
	status     *HealthStatus
	reconnects int
	stop       chan struct{}
	closed     bool
}

// ErrConnectorClosed is returned by Reconnect once Close has been called.
var ErrConnectorClosed = errors.New("database connector is closed")

// NewConnector returns a Connector for a copy of cfg, or for
// DefaultConnectionConfig when cfg is nil.
func NewConnector(cfg *ConnectionConfig) Connector {
	if cfg == nil {
		cfg = DefaultConnectionConfig()
	}
	return &connector{
		cfg:    *cfg,
		logger: GetLogger(),
		status: &HealthStatus{},
	}
}

func (c *connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	db, err := c.open(ctx)
	if err != nil {
		c.status = &HealthStatus{LastError: err.Error(), LastCheckTime: time.Now()}
		return err
	}
	c.db = db
	c.closed = false
	c.reconnects = 0
	if c.cfg.HealthCheckInterval > 0 && c.stop == nil {
		c.stop = make(chan struct{})
		go c.watch(c.stop, c.cfg.HealthCheckInterval)
	}
	c.logger.Info("Database connected", "type", c.cfg.Type, "host", c.cfg.Host, "dbname", c.cfg.DBName)
	return nil
}

// open dials a new pool and verifies it with a ping. It does not touch the
// connector state.
func (c *connector) open(ctx context.Context) (*bun.DB, error) {
	spec, ok := drivers[c.cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", c.cfg.Type)
	}
	dsn := spec.dsn(&c.cfg)
	sqlDB, err := sql.Open(spec.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pool := c.cfg
	if dsn == ":memory:" {
		// every pooled connection would open its own empty database
		pool.MaxOpenConns = 1
		pool.ConnMaxLifetime = 0
		pool.ConnMaxIdleTime = 0
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, spec.dialect())
	c.addHooks(db)
	db.RegisterModel(RegisteredModelInstances()...)

	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return db, nil
}

func (c *connector) addHooks(db *bun.DB) {
	if c.cfg.EnableBunDebug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if c.cfg.EnableQueryLog {
		db.AddQueryHook(NewQueryHook(WithQueryHookEnabled(true), WithQueryHookEnv("HYPERBUN_SQL_LOG")))
	}
	if c.cfg.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(c.cfg.SlowQueryTime, WithSlowQueryLogger(c.logger)))
	}
}

func (c *connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		c.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	c.logger.Info("Database connection closed")
	return nil
}

// Reconnect opens a fresh pool and swaps it in; the previous one is closed.
// Callers holding the old *bun.DB must fetch DB again. A closed connector
// is never reopened.
func (c *connector) Reconnect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrConnectorClosed
	}

	c.logger.Info("Attempting to reconnect to the database")
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = db.Close()
		return ErrConnectorClosed
	}
	old := c.db
	c.db = db
	c.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn("Error closing previous connection", "error", err)
		}
	}
	return nil
}

func (c *connector) Ping(ctx context.Context) error {
	db := c.DB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (c *connector) DB() *bun.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *connector) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	db := c.DB()
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}
	stats := db.DB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	return status
}

func (c *connector) watch(stop <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			status := c.HealthCheck(ctx)
			cancel()
			if status.Healthy {
				c.mu.Lock()
				c.reconnects = 0
				c.mu.Unlock()
			} else if c.cfg.EnableReconnect {
				c.tryReconnect(stop)
			}
		}
	}
}

func (c *connector) tryReconnect(stop <-chan struct{}) {
	c.mu.Lock()
	if c.reconnects >= c.cfg.MaxReconnectTries {
		c.mu.Unlock()
		c.logger.Error("Max reconnect attempts reached", "tries", c.cfg.MaxReconnectTries)
		return
	}
	c.reconnects++
	try := c.reconnects
	c.mu.Unlock()

	select {
	case <-stop:
		return
	case <-time.After(c.cfg.ReconnectInterval):
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()
	if err := c.Reconnect(ctx); err != nil {
		if errors.Is(err, ErrConnectorClosed) {
			return
		}
		c.logger.Error("Reconnect failed", "error", err, "try", try)
		return
	}
	c.logger.Info("Reconnect succeeded", "try", try)
}

func (c *connector) Stats() *DBStats {
	db := c.DB()
	if db == nil {
		return &DBStats{}
	}
	stats := db.DB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (c *connector) CreateTables(ctx context.Context) error {
	return CreateTables(ctx, c.DB(), RegisteredModelInstances()...)
}

func (c *connector) SetLogger(logger Logger) {
	if logger == nil {
		logger = NopLogger{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

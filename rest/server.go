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

package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/resource"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
	BasePath     string        `mapstructure:"base_path" yaml:"base_path"`
	Debug        bool          `mapstructure:"debug" yaml:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server serves a resource registry over HTTP.
type Server struct {
	echo       *echo.Echo
	dispatcher *Dispatcher
	config     ServerConfig
	logger     database.Logger
}

// NewServer wires an echo instance with error handling, request logging and
// the routes of every resource in registry.
func NewServer(cfg ServerConfig, registry *resource.Registry, logger database.Logger) *Server {
	if logger == nil {
		logger = database.NewNamedLogger("REST")
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))

	s := &Server{
		echo:       e,
		dispatcher: NewDispatcher(registry, logger),
		config:     cfg,
		logger:     logger,
	}
	s.dispatcher.Register(e)
	e.GET("/health", s.health)
	e.GET("/health/stats", s.stats)
	return s
}

func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) health(c echo.Context) error {
	status := database.GetHealthStatus(c.Request().Context())
	if status == nil || !status.Healthy {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, database.GetDatabaseStats())
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.config.Address(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("HTTP server listening", "address", srv.Addr)
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

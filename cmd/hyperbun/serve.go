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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomoncle/hyperbun"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/resource"
	"github.com/tomoncle/hyperbun/rest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	Long:  `Connect to the configured database, create the blog tables and serve them over HTTP`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	logger := database.NewNamedLogger("HYPERBUN")

	dbCfg := cfg.Database
	if cfg.Logging.SQL {
		dbCfg.ConnectionConfig.EnableQueryLog = true
	}
	database.InitLogger(database.NewNamedLogger("DATABASE"))
	database.RegisterModels(blogModels()...)
	if _, err := database.InitDB(&dbCfg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	registry, err := blogRegistry(cfg.Server.BasePath)
	if err != nil {
		return err
	}
	server := rest.NewServer(cfg.Server, registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// blogRegistry builds the authors, posts and comments resources on the
// global database.
func blogRegistry(basePath string) (*resource.Registry, error) {
	authors, err := hyperbun.NewResource[Author]()
	if err != nil {
		return nil, err
	}
	posts, err := hyperbun.NewResource[Post](
		resource.WithListFields("id", "title", "published", "published_at", "author.id"),
		resource.WithPreprocessors(stampPublished),
	)
	if err != nil {
		return nil, err
	}
	comments, err := hyperbun.NewResource[Comment](
		resource.WithUpdateFields("body"),
		resource.WithPaginateBy(50),
	)
	if err != nil {
		return nil, err
	}

	registry := resource.NewRegistry(basePath)
	if err := registry.Register(authors, posts, comments); err != nil {
		return nil, err
	}
	return registry, nil
}

// stampPublished fills published_at when a post is published without one.
func stampPublished(ctx context.Context, r *resource.Resource, op resource.Method, req *resource.Request) error {
	if op != resource.MethodCreate && op != resource.MethodUpdate {
		return nil
	}
	if req.Body == nil || !truthy(req.Body["published"]) {
		return nil
	}
	if v, ok := req.Body["published_at"]; !ok || v == nil {
		req.Body["published_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t == 1
	}
	return false
}

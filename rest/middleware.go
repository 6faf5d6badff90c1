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
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/utils"
)

// RequestLogger logs one line per request through logger. Server errors are
// logged at error level, client errors at warn level.
func RequestLogger(logger database.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", status,
				"latency", utils.Since(start),
			}
			switch {
			case status >= 500:
				logger.Error("Request failed", append(fields, "error", err)...)
			case status >= 400:
				logger.Warn("Request rejected", fields...)
			default:
				logger.Info("Request handled", fields...)
			}
			return nil
		}
	}
}

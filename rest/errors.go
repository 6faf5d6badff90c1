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
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/manager"
	"github.com/tomoncle/hyperbun/resource"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code       int               `json:"code"`
	Message    string            `json:"message"`
	Details    string            `json:"details,omitempty"`
	FieldError map[string]string `json:"field_errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func NewAPIError(code int, message string, details string) *APIError {
	return &APIError{Code: code, Message: message, Details: details}
}

// ToAPIError maps errors from the resource, manager and database layers to
// an HTTP status and body.
func ToAPIError(err error) *APIError {
	var (
		apiErr  *APIError
		httpErr *echo.HTTPError
		verr    *fields.ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &httpErr):
		return NewAPIError(httpErr.Code, statusMessage(httpErr.Code), fmt.Sprint(httpErr.Message))
	case errors.As(err, &verr):
		return &APIError{
			Code:       http.StatusBadRequest,
			Message:    verr.Message,
			FieldError: verr.Fields,
		}
	case manager.IsNotFound(err):
		return NewAPIError(http.StatusNotFound, statusMessage(http.StatusNotFound), err.Error())
	case errors.Is(err, manager.ErrMultipleResults):
		return NewAPIError(http.StatusConflict, "Multiple results found", err.Error())
	case errors.Is(err, resource.ErrMethodNotAllowed):
		return NewAPIError(http.StatusMethodNotAllowed, statusMessage(http.StatusMethodNotAllowed), err.Error())
	}

	if is, sqlErr := database.IsSqlError(err); is {
		switch {
		case sqlErr == database.NoRowsErr:
			return NewAPIError(http.StatusNotFound, statusMessage(http.StatusNotFound), err.Error())
		case sqlErr == database.DuplicateKeyErr:
			return NewAPIError(http.StatusConflict, statusMessage(http.StatusConflict), sqlErr.String())
		case sqlErr.IsConstraintViolation():
			return NewAPIError(http.StatusBadRequest, statusMessage(http.StatusBadRequest), sqlErr.String())
		}
	}
	return NewAPIError(http.StatusInternalServerError, statusMessage(http.StatusInternalServerError), err.Error())
}

// HTTPErrorHandler renders errors as APIError JSON. Internal error details
// are hidden unless the echo instance runs in debug mode.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	apiErr := ToAPIError(err)
	if apiErr.Code == http.StatusInternalServerError && !c.Echo().Debug {
		apiErr = NewAPIError(apiErr.Code, apiErr.Message, "An internal error occurred. Please try again later.")
	}
	if err := c.JSON(apiErr.Code, apiErr); err != nil {
		c.Logger().Error(err)
	}
}

func statusMessage(code int) string {
	messages := map[int]string{
		http.StatusBadRequest:           "Bad request",
		http.StatusNotFound:             "Resource not found",
		http.StatusMethodNotAllowed:     "Method not allowed",
		http.StatusConflict:             "Conflict",
		http.StatusUnsupportedMediaType: "Unsupported media type",
		http.StatusInternalServerError:  "Internal server error",
	}
	if msg, ok := messages[code]; ok {
		return msg
	}
	return http.StatusText(code)
}

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

package fields

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports input that does not fit the resource's fields.
// Fields maps each offending field name to a short reason.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewValidationError builds a ValidationError with one reason per field.
func NewValidationError(message string, fieldReasons map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fieldReasons}
}

func invalid(name string, v any, want string) error {
	return &ValidationError{
		Message: "invalid field value",
		Fields:  map[string]string{name: fmt.Sprintf("%v is not %s", v, want)},
	}
}

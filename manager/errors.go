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

package manager

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/repository"
)

// ErrMultipleResults is returned when a lookup that must match a single row
// matches several.
var ErrMultipleResults = repository.ErrMultipleRows

// ValidationError is the error returned for input that does not fit the
// manager's fields.
type ValidationError = fields.ValidationError

// NotFoundError is returned when no row matches the lookup keys.
type NotFoundError struct {
	Model      string
	LookupKeys map[string]any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No model of type %s was found using lookup_keys %v", e.Model, e.LookupKeys)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidateFields returns a *ValidationError naming every key of values that
// is not in valid.
func ValidateFields(values map[string]any, valid []string) error {
	allowed := make(map[string]struct{}, len(valid))
	for _, name := range valid {
		allowed[name] = struct{}{}
	}
	var unknown map[string]string
	for name := range values {
		if _, ok := allowed[name]; ok {
			continue
		}
		if unknown == nil {
			unknown = make(map[string]string)
		}
		unknown[name] = "unknown field"
	}
	if unknown == nil {
		return nil
	}
	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return fields.NewValidationError("unknown fields: "+strings.Join(names, ", "), unknown)
}

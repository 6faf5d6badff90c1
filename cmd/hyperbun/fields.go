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
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tomoncle/hyperbun/manager"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields [table...]",
	Short: "Print the fields, primary keys and relationships derived from the blog models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printFields(cmd.OutOrStdout(), sqlitedialect.New(), args)
	},
}

var headerColor = color.New(color.FgCyan, color.Bold)

func printFields(w io.Writer, dialect schema.Dialect, only []string) error {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}
	found := 0
	for _, model := range blogModels() {
		table := manager.TableFor(dialect, model)
		if len(wanted) > 0 && !wanted[table.Name] {
			continue
		}
		found++
		_, _ = headerColor.Fprintf(w, "%s (%s)\n", table.Name, table.Type.Name())
		_, _ = fmt.Fprintf(w, "  pks:    %s\n", strings.Join(manager.GetPKs(table), ", "))
		_, _ = fmt.Fprintf(w, "  fields: %s\n", strings.Join(manager.GetFieldsForModel(table), ", "))
		for _, rel := range manager.GetRelationships(table) {
			kind := "one"
			if rel.List {
				kind = "many"
			}
			_, _ = fmt.Fprintf(w, "  rel:    %s -> %s (%s)\n", rel.Name, rel.Relation, kind)
		}
	}
	if len(wanted) > 0 && found == 0 {
		return fmt.Errorf("no model with table %s", strings.Join(only, ", "))
	}
	return nil
}

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

package resource

// Relationship turns a serialized property into links to another resource.
//
// The property named Name is removed from the response properties. Its
// value, a map of the related primary keys (or a list of such maps when
// List is set), identifies the Relation resource. When Embedded is set the
// related values are embedded instead of linked.
type Relationship struct {
	Name     string
	Relation string
	List     bool
	Embedded bool
}

// resolve moves the relationship's property out of resp.Properties.
func (rel Relationship) resolve(g *Registry, resp *Response, remove bool) {
	value, ok := resp.Properties[rel.Name]
	if !ok {
		return
	}
	if remove {
		delete(resp.Properties, rel.Name)
	}

	var targets []map[string]any
	switch v := value.(type) {
	case map[string]any:
		targets = append(targets, v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				targets = append(targets, m)
			}
		}
	case []map[string]any:
		targets = v
	}

	target := g.lookup(rel.Relation)
	for _, props := range targets {
		if rel.Embedded {
			embedded := newResponse(target, 0)
			for k, v := range props {
				embedded.Properties[k] = v
			}
			if target != nil {
				if pks, ok := target.pkValues(props); ok {
					embedded.addLink("self", Link{Resource: target, PKs: pks})
				}
			}
			resp.Embedded[rel.Name] = append(resp.Embedded[rel.Name], embedded)
			continue
		}
		if target == nil {
			continue
		}
		if pks, ok := target.pkValues(props); ok {
			resp.addLink(rel.Name, Link{Resource: target, PKs: pks})
		}
	}
}

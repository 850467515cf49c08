/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schema

import (
	"errors"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v2"
)

// ErrNoLabels is returned when a schema declares no labels.
var ErrNoLabels = errors.New("schema declares no labels")

type Label struct {
	Name        string `yaml:"name"`
	Hotkey      string `yaml:"hotkey"`
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
}

// Schema is the label schema of an annotation project, as written in the
// schema block of the project's config.yaml.
type Schema struct {
	Type           string  `yaml:"type"`
	Granularity    string  `yaml:"granularity"`
	MultiLabel     bool    `yaml:"multi_label"`
	MaxAnnotations *int    `yaml:"max_annotations"`
	Labels         []Label `yaml:"labels"`
}

// NormalizeLabel trims a label name and puts it in NFC form so that labels typed
// with different unicode compositions compare equal.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// FromNames builds a schema holding only label names.
func FromNames(names ...string) *Schema {
	s := &Schema{}
	for _, name := range names {
		s.Labels = append(s.Labels, Label{Name: name})
	}
	return s
}

// Names returns the normalised label names in declaration order, without duplicates.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool, len(s.Labels))
	names := make([]string, 0, len(s.Labels))
	for _, l := range s.Labels {
		name := NormalizeLabel(l.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Has reports whether label is declared by the schema.
func (s *Schema) Has(label string) bool {
	label = NormalizeLabel(label)
	for _, name := range s.Names() {
		if name == label {
			return true
		}
	}
	return false
}

// Mode maps the schema type and granularity onto the annotation mode used when
// reading exports: "categorical", "sentence" or "span". It returns "" when the
// schema type has no agreement mode (e.g. pairwise comparison).
func (s *Schema) Mode() string {
	if s == nil {
		return ""
	}
	switch strings.ToLower(s.Type) {
	case "classification":
		return "categorical"
	case "ner":
		return "span"
	case "span":
		if strings.EqualFold(s.Granularity, "sentence") {
			return "sentence"
		}
		return "span"
	default:
		return ""
	}
}

// Parse reads a schema from yaml. The document may be a full project config with
// a top level schema key, or the schema block on its own.
func Parse(b []byte) (*Schema, error) {
	var project struct {
		Schema *Schema `yaml:"schema"`
	}
	if err := yaml.Unmarshal(b, &project); err != nil {
		return nil, err
	}
	s := project.Schema
	if s == nil {
		s = &Schema{}
		if err := yaml.Unmarshal(b, s); err != nil {
			return nil, err
		}
	}
	if len(s.Names()) == 0 {
		return nil, ErrNoLabels
	}
	return s, nil
}

// Load returns the schema from the yaml file at the given path.
func Load(path string) (*Schema, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error().Str("path", path).Msg("could not read schema")
		return nil, err
	}

	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}

	log.Debug().Str("path", path).Strs("labels", s.Names()).Msg("schema loaded")
	return s, nil
}

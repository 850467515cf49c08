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

// Package blocklist excludes annotator accounts, such as the project admin or a
// model pre-annotation account, from agreement calculations.
package blocklist

import (
	"io/ioutil"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

type Blocklist struct {
	CaseSensitive   map[string]bool
	CaseInsensitive map[string]bool
}

// New returns a case insensitive blocklist of the given annotators.
func New(annotators ...string) *Blocklist {
	bl := &Blocklist{
		CaseSensitive:   map[string]bool{},
		CaseInsensitive: map[string]bool{},
	}
	for _, a := range annotators {
		bl.CaseInsensitive[strings.ToLower(a)] = true
	}
	return bl
}

// Allowed returns true if annotator is not blocklisted. A nil blocklist allows everyone.
func (blocklist *Blocklist) Allowed(annotator string) bool {
	if blocklist == nil {
		return true
	}

	if _, ok := blocklist.CaseSensitive[annotator]; ok {
		return false
	}

	if _, ok := blocklist.CaseInsensitive[strings.ToLower(annotator)]; ok {
		return false
	}

	return true
}

// Len is the number of blocklisted entries.
func (blocklist *Blocklist) Len() int {
	if blocklist == nil {
		return 0
	}
	return len(blocklist.CaseSensitive) + len(blocklist.CaseInsensitive)
}

// Load returns an unmarshalled blocklist from a YAML file at the given path.
func Load(path string) (*Blocklist, error) {

	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error().Str("path", path).Msg("could not find annotator blocklist")
		return nil, err
	}

	type yamlBlocklist struct {
		CaseSensitive   []string `yaml:"case_sensitive"`
		CaseInsensitive []string `yaml:"case_insensitive"`
	}

	yamlBl := yamlBlocklist{}
	if err := yaml.Unmarshal(bytes, &yamlBl); err != nil {
		log.Error().Str("path", path).Msg("could not load annotator blocklist")
		return nil, err
	}

	res := New()
	for _, v := range yamlBl.CaseSensitive {
		res.CaseSensitive[v] = true
	}
	for _, v := range yamlBl.CaseInsensitive {
		res.CaseInsensitive[strings.ToLower(v)] = true
	}

	log.Info().Str("path", path).Int("entries", res.Len()).Msg("annotator blocklist set")

	return res, nil
}

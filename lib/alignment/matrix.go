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

/*
alignment groups loaded judgments or span sets by item into rating matrices.

Items keep their export order and annotators are sorted by id, so pairwise
tables built from a matrix are reproducible. An annotator who did not judge an
item has no entry for it. Items with fewer than two contributing annotators are
left out of the matrix and counted in Skipped.
*/
package alignment

import (
	"sort"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
)

// CategoricalUnit is one comparable item: annotator id to label.
type CategoricalUnit struct {
	Item   export.Item
	Labels map[string]string
}

// Raters returns the annotators of the unit in sorted order.
func (u CategoricalUnit) Raters() []string {
	return sortedKeys(u.Labels)
}

// CategoricalMatrix holds the comparable categorical units in export order.
type CategoricalMatrix struct {
	Units []CategoricalUnit
	// Annotators is the sorted union of every annotator with a judgment,
	// including annotators whose judgments were all missing or ambiguous.
	Annotators []string
	// Skipped counts items left out for having fewer than two labelled judgments.
	Skipped int
	// Missing and Ambiguous count judgments that did not contribute a label.
	Missing   int
	Ambiguous int
}

func (m CategoricalMatrix) Empty() bool {
	return len(m.Units) == 0
}

// Labels returns the sorted set of labels used anywhere in the matrix.
func (m CategoricalMatrix) Labels() []string {
	set := map[string]bool{}
	for _, u := range m.Units {
		for _, l := range u.Labels {
			set[l] = true
		}
	}
	return sortedKeys(set)
}

// BuildCategorical aligns judgments by item. Only labelled judgments contribute.
func BuildCategorical(items []export.Item, judgments []export.Judgment) CategoricalMatrix {
	var m CategoricalMatrix

	byItem := make(map[string]map[string]string, len(items))
	annotators := map[string]bool{}
	for _, j := range judgments {
		annotators[j.Annotator] = true
		switch j.State {
		case export.Missing:
			m.Missing++
			continue
		case export.Ambiguous:
			m.Ambiguous++
			continue
		}
		labels, ok := byItem[j.ItemID]
		if !ok {
			labels = map[string]string{}
			byItem[j.ItemID] = labels
		}
		labels[j.Annotator] = j.Label
	}
	m.Annotators = sortedKeys(annotators)

	for _, item := range items {
		labels := byItem[item.ID]
		if len(labels) < 2 {
			m.Skipped++
			continue
		}
		m.Units = append(m.Units, CategoricalUnit{Item: item, Labels: labels})
	}
	return m
}

// SpanUnit is one comparable item: annotator id to that annotator's spans.
type SpanUnit struct {
	Item  export.Item
	Spans map[string][]export.Span
}

func (u SpanUnit) Raters() []string {
	return sortedKeys(u.Spans)
}

// SpanMatrix holds the comparable span units in export order.
type SpanMatrix struct {
	Units      []SpanUnit
	Annotators []string
	Skipped    int
	// Invalid counts items excluded because one of their spans was invalid.
	Invalid int
}

func (m SpanMatrix) Empty() bool {
	return len(m.Units) == 0
}

// BuildSpans aligns span sets by item. Items listed in invalid are excluded and
// counted separately from items skipped for lack of annotators.
func BuildSpans(items []export.Item, annotations []export.SpanAnnotation, invalid []string) SpanMatrix {
	var m SpanMatrix

	excluded := make(map[string]bool, len(invalid))
	for _, id := range invalid {
		excluded[id] = true
	}

	byItem := make(map[string]map[string][]export.Span, len(items))
	annotators := map[string]bool{}
	for _, a := range annotations {
		annotators[a.Annotator] = true
		spans, ok := byItem[a.ItemID]
		if !ok {
			spans = map[string][]export.Span{}
			byItem[a.ItemID] = spans
		}
		spans[a.Annotator] = export.SortSpans(append(spans[a.Annotator], a.Spans...))
	}
	m.Annotators = sortedKeys(annotators)

	for _, item := range items {
		if excluded[item.ID] {
			m.Invalid++
			continue
		}
		spans := byItem[item.ID]
		if len(spans) < 2 {
			m.Skipped++
			continue
		}
		m.Units = append(m.Units, SpanUnit{Item: item, Spans: spans})
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

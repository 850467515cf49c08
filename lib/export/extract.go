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

package export

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

func (l *loader) categorical(index int, id, text string, subs []submission) {
	l.exp.Items = append(l.exp.Items, Item{ID: id, Index: index, Text: text})

	for _, s := range subs {
		var labels []string
		for _, r := range s.results {
			switch r.Type {
			case "choices":
				labels = append(labels, r.Value.Choices...)
			case "taxonomy":
				labels = append(labels, r.Value.Choices...)
				for _, path := range r.Value.Taxonomy {
					labels = append(labels, strings.Join(path, "/"))
				}
			}
		}
		l.exp.Judgments = append(l.exp.Judgments, l.judgment(id, s.annotator, labels))
	}
}

// sentences makes one item per paragraph. A paragraphlabels result covers the
// paragraphs start..end inclusive; end defaults to start.
func (l *loader) sentences(index int, id string, paragraphs []string, subs []submission) error {
	itemIDs := make([]string, len(paragraphs))
	for p, text := range paragraphs {
		itemIDs[p] = fmt.Sprintf("%s#%d", id, p)
		l.exp.Items = append(l.exp.Items, Item{ID: itemIDs[p], Index: index, Text: text})
	}

	for _, s := range subs {
		perParagraph := make([][]string, len(paragraphs))
		for _, r := range s.results {
			if r.Type != "paragraphlabels" {
				continue
			}
			start := r.Value.Start
			if !start.Set {
				return &MalformedExport{Index: index, Field: r.field + ".start", Err: ErrMissingField}
			}
			end := r.Value.End
			if !end.Set {
				end = start
			}
			if start.Value < 0 || end.Value < start.Value || end.Value >= len(paragraphs) {
				invalid := &InvalidSpan{
					ItemID:    id,
					Annotator: s.annotator,
					Start:     start.Value,
					End:       end.Value + 1,
					Length:    len(paragraphs),
				}
				l.warn(WarnInvalidSpan, id, s.annotator, invalid.Error())
				continue
			}
			for p := start.Value; p <= end.Value; p++ {
				perParagraph[p] = append(perParagraph[p], r.Value.ParagraphLabels...)
			}
		}
		for p := range paragraphs {
			l.exp.Judgments = append(l.exp.Judgments, l.judgment(itemIDs[p], s.annotator, perParagraph[p]))
		}
	}
	return nil
}

// spans reads character spans. Offsets are rune indices into the task text. An
// annotator who submitted the task without spans contributes an empty set.
func (l *loader) spans(index int, id, text string, subs []submission) error {
	l.exp.Items = append(l.exp.Items, Item{ID: id, Index: index, Text: text})
	length := utf8.RuneCountInString(text)

	invalid := false
	for _, s := range subs {
		var spans []Span
		for _, r := range s.results {
			if r.Type != "labels" {
				continue
			}
			start := firstSet(r.Value.Start, r.Value.StartOffset)
			if !start.Set {
				return &MalformedExport{Index: index, Field: r.field + ".start", Err: ErrMissingField}
			}
			end := firstSet(r.Value.End, r.Value.EndOffset)
			if !end.Set {
				return &MalformedExport{Index: index, Field: r.field + ".end", Err: ErrMissingField}
			}

			if start.Value < 0 || start.Value >= end.Value || end.Value > length {
				e := &InvalidSpan{
					ItemID:    id,
					Annotator: s.annotator,
					Start:     start.Value,
					End:       end.Value,
					Length:    length,
				}
				l.warn(WarnInvalidSpan, id, s.annotator, e.Error()+"; item excluded from span metrics")
				invalid = true
				continue
			}

			labels := l.labels(id, s.annotator, r.Value.Labels)
			if len(labels) == 0 {
				l.warn(WarnUnlabelledSpan, id, s.annotator, fmt.Sprintf("span [%d,%d) has no label; skipped", start.Value, end.Value))
				continue
			}
			// overlapping labels on the same range are compared independently
			for _, label := range labels {
				spans = append(spans, Span{Start: start.Value, End: end.Value, Label: label})
			}
		}
		l.exp.Spans = append(l.exp.Spans, SpanAnnotation{
			ItemID:    id,
			Annotator: s.annotator,
			Spans:     SortSpans(spans),
		})
	}

	if invalid {
		l.exp.InvalidItems = append(l.exp.InvalidItems, id)
	}
	return nil
}

// SortSpans returns the spans ordered by start, end and label with exact
// duplicates removed. The input is not modified.
func SortSpans(spans []Span) []Span {
	out := make([]Span, len(spans))
	copy(out, spans)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Label < b.Label
	})

	n := 0
	for i, s := range out {
		if i > 0 && s == out[n-1] {
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}

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
spans scores character span annotations between annotator pairs.

Two spans match only when start, end and label are all equal. Within a pair
(A, B) with A sorting first, A's spans are treated as predictions and B's as the
reference, so precision is matched/|A| and recall is matched/|B|. F1 is
symmetric. Aggregates are micro averages: match counts are summed before any
division.
*/
package spans

import (
	"sort"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/alignment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
	"gonum.org/v1/gonum/stat/combin"
)

// Score holds match counts and the metrics derived from them. The zero value
// has every metric undefined.
type Score struct {
	Matched   int
	Predicted int
	Reference int
	Precision metric.Metric
	Recall    metric.Metric
	F1        metric.Metric
}

// NewScore derives precision, recall and F1 from match counts. Each is
// undefined when its denominator is zero.
func NewScore(matched, predicted, reference int) Score {
	return Score{
		Matched:   matched,
		Predicted: predicted,
		Reference: reference,
		Precision: metric.Ratio(float64(matched), float64(predicted)),
		Recall:    metric.Ratio(float64(matched), float64(reference)),
		F1:        metric.Ratio(2*float64(matched), float64(predicted+reference)),
	}
}

// Add returns the micro-averaged score of s and o.
func (s Score) Add(o Score) Score {
	return NewScore(s.Matched+o.Matched, s.Predicted+o.Predicted, s.Reference+o.Reference)
}

// Match counts the spans of a that also occur in b. Both sets are expected to
// be free of duplicates.
func Match(a, b []export.Span) int {
	reference := make(map[export.Span]bool, len(b))
	for _, s := range b {
		reference[s] = true
	}
	matched := 0
	for _, s := range a {
		if reference[s] {
			matched++
		}
	}
	return matched
}

// Compare scores span set a against span set b.
func Compare(a, b []export.Span) Score {
	return NewScore(Match(a, b), len(a), len(b))
}

type PairScore struct {
	A, B string
	Score
}

type ItemScore struct {
	Item  export.Item
	Pairs []PairScore
	// Score is the micro average over the item's pairs.
	Score Score
}

type LabelScore struct {
	Label string
	Score
}

type SpanResult struct {
	Items []ItemScore
	// Pairs holds one micro-averaged entry per annotator pair over every item both annotated.
	Pairs     []PairScore
	Aggregate Score
	PerLabel  []LabelScore
	// NoComparableData is set when no item had two annotators.
	NoComparableData bool
}

type pairKey struct{ a, b string }

// Compute scores every annotator pair on every unit of the matrix.
func Compute(m alignment.SpanMatrix) SpanResult {
	result := SpanResult{NoComparableData: m.Empty()}

	pairs := map[pairKey]Score{}
	labels := map[string]Score{}
	for _, label := range spanLabels(m) {
		labels[label] = Score{}
	}

	for _, u := range m.Units {
		raters := u.Raters()
		item := ItemScore{Item: u.Item}
		for _, c := range combin.Combinations(len(raters), 2) {
			a, b := raters[c[0]], raters[c[1]]
			s := Compare(u.Spans[a], u.Spans[b])
			item.Pairs = append(item.Pairs, PairScore{A: a, B: b, Score: s})
			item.Score = item.Score.Add(s)

			key := pairKey{a, b}
			pairs[key] = pairs[key].Add(s)
			result.Aggregate = result.Aggregate.Add(s)

			for label := range labels {
				ls := Compare(withLabel(u.Spans[a], label), withLabel(u.Spans[b], label))
				labels[label] = labels[label].Add(ls)
			}
		}
		result.Items = append(result.Items, item)
	}

	keys := make([]pairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, k := range keys {
		result.Pairs = append(result.Pairs, PairScore{A: k.a, B: k.b, Score: pairs[k]})
	}

	for _, label := range spanLabels(m) {
		result.PerLabel = append(result.PerLabel, LabelScore{Label: label, Score: labels[label]})
	}
	return result
}

func withLabel(spans []export.Span, label string) []export.Span {
	var out []export.Span
	for _, s := range spans {
		if s.Label == label {
			out = append(out, s)
		}
	}
	return out
}

func spanLabels(m alignment.SpanMatrix) []string {
	set := map[string]bool{}
	for _, u := range m.Units {
		for _, spans := range u.Spans {
			for _, s := range spans {
				set[s.Label] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

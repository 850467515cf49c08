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
agreement computes agreement statistics over a categorical rating matrix:
percent agreement, pairwise Cohen's kappa, Krippendorff's alpha (nominal) and a
per-label breakdown.

Annotators without a judgment for an item are absent from the unit, never a
label value, so every statistic here is computed over the judgments that exist.
*/
package agreement

import (
	"sort"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/alignment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
	"gonum.org/v1/gonum/stat/combin"
)

// Expected agreement this close to 1 leaves kappa without a denominator.
const degenerateTolerance = 1e-12

// Percent is the share of units on which every contributing annotator chose the same label.
type Percent struct {
	Agreed int
	Total  int
	Value  metric.Metric
}

// PercentAgreement counts the units whose labelled judgments all agree.
func PercentAgreement(m alignment.CategoricalMatrix) Percent {
	p := Percent{Total: len(m.Units)}
	for _, u := range m.Units {
		if unanimous(u) {
			p.Agreed++
		}
	}
	p.Value = metric.Ratio(float64(p.Agreed), float64(p.Total))
	return p
}

func unanimous(u alignment.CategoricalUnit) bool {
	first := true
	var label string
	for _, l := range u.Labels {
		if first {
			label, first = l, false
			continue
		}
		if l != label {
			return false
		}
	}
	return true
}

// PairKappa is Cohen's kappa for two annotators over the items both judged.
// A is always the annotator that sorts first.
type PairKappa struct {
	A, B   string
	Shared int
	Agreed int
	// Observed is p_o, the pairwise percent agreement.
	Observed metric.Metric
	// Expected is p_e, the chance agreement from both annotators' marginals.
	Expected metric.Metric
	Kappa    metric.Metric
}

// KappaTable holds one entry per annotator pair with shared units, ordered by A then B.
type KappaTable []PairKappa

// Lookup finds the entry for an annotator pair in either order.
func (t KappaTable) Lookup(a, b string) (PairKappa, bool) {
	if b < a {
		a, b = b, a
	}
	for _, pk := range t {
		if pk.A == a && pk.B == b {
			return pk, true
		}
	}
	return PairKappa{}, false
}

// PairwiseKappa returns kappa for every annotator pair with at least one shared
// item, in annotator order. Pairs that share nothing are left out.
func PairwiseKappa(m alignment.CategoricalMatrix) KappaTable {
	if len(m.Annotators) < 2 {
		return nil
	}
	var table KappaTable
	for _, pair := range combin.Combinations(len(m.Annotators), 2) {
		pk := Kappa(m.Annotators[pair[0]], m.Annotators[pair[1]], m.Units)
		if pk.Shared == 0 {
			continue
		}
		table = append(table, pk)
	}
	return table
}

// Kappa computes Cohen's kappa for annotators a and b over the units both judged.
func Kappa(a, b string, units []alignment.CategoricalUnit) PairKappa {
	if b < a {
		a, b = b, a
	}
	pk := PairKappa{A: a, B: b}

	countsA := map[string]float64{}
	countsB := map[string]float64{}
	for _, u := range units {
		la, okA := u.Labels[a]
		lb, okB := u.Labels[b]
		if !okA || !okB {
			continue
		}
		pk.Shared++
		if la == lb {
			pk.Agreed++
		}
		countsA[la]++
		countsB[lb]++
	}
	if pk.Shared == 0 {
		return pk
	}

	n := float64(pk.Shared)
	var pe float64
	for _, label := range union(countsA, countsB) {
		pe += (countsA[label] / n) * (countsB[label] / n)
	}
	po := float64(pk.Agreed) / n

	pk.Observed = metric.Of(po)
	pk.Expected = metric.Of(pe)
	if 1-pe <= degenerateTolerance {
		pk.Kappa = metric.Undefined
	} else {
		pk.Kappa = metric.Of((po - pe) / (1 - pe))
	}
	return pk
}

func union(a, b map[string]float64) []string {
	set := make(map[string]bool, len(a)+len(b))
	for k := range a {
		set[k] = true
	}
	for k := range b {
		set[k] = true
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LabelAgreement restricts agreement to the items where at least one annotator
// chose Label. Alpha is binary alpha (Label against any other label) over every unit.
type LabelAgreement struct {
	Label   string
	Items   int
	Agreed  int
	Percent metric.Metric
	Alpha   metric.Metric
}

// PerLabel returns one entry per schema label, followed by labels that were
// used but are not in the schema, in sorted order.
func PerLabel(m alignment.CategoricalMatrix, schemaLabels []string) []LabelAgreement {
	labels := append([]string{}, schemaLabels...)
	declared := make(map[string]bool, len(schemaLabels))
	for _, l := range schemaLabels {
		declared[l] = true
	}
	for _, l := range m.Labels() {
		if !declared[l] {
			labels = append(labels, l)
		}
	}

	out := make([]LabelAgreement, 0, len(labels))
	for _, label := range labels {
		la := LabelAgreement{Label: label}
		binary := make([][]string, 0, len(m.Units))
		for _, u := range m.Units {
			chosen := false
			values := make([]string, 0, len(u.Labels))
			for _, r := range u.Raters() {
				if u.Labels[r] == label {
					chosen = true
					values = append(values, "1")
				} else {
					values = append(values, "0")
				}
			}
			binary = append(binary, values)
			if chosen {
				la.Items++
				if unanimous(u) {
					la.Agreed++
				}
			}
		}
		la.Percent = metric.Ratio(float64(la.Agreed), float64(la.Items))
		la.Alpha = alpha(binary)
		out = append(out, la)
	}
	return out
}

// CategoricalResult bundles every categorical metric for one matrix.
type CategoricalResult struct {
	Percent  Percent
	Kappa    KappaTable
	Alpha    metric.Metric
	PerLabel []LabelAgreement
	// NoComparableData is set when no item had two labelled judgments.
	NoComparableData bool
}

// Compute runs every categorical statistic over the matrix.
func Compute(m alignment.CategoricalMatrix, schemaLabels []string) CategoricalResult {
	return CategoricalResult{
		Percent:          PercentAgreement(m),
		Kappa:            PairwiseKappa(m),
		Alpha:            KrippendorffAlpha(m),
		PerLabel:         PerLabel(m, schemaLabels),
		NoComparableData: m.Empty(),
	}
}

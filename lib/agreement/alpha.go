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

package agreement

import (
	"sort"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/alignment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KrippendorffAlpha is nominal alpha over every unit of the matrix.
func KrippendorffAlpha(m alignment.CategoricalMatrix) metric.Metric {
	units := make([][]string, 0, len(m.Units))
	for _, u := range m.Units {
		values := make([]string, 0, len(u.Labels))
		for _, r := range u.Raters() {
			values = append(values, u.Labels[r])
		}
		units = append(units, values)
	}
	return alpha(units)
}

// alpha computes nominal Krippendorff's alpha from the values of each unit.
//
// Within a unit of m values every ordered pair of values from different raters
// adds 1/(m-1) to the coincidence matrix o, so each unit contributes exactly m
// pairable values. With n_c the row sums of o and n their total:
//
//	D_o = sum_{c!=k} o_ck / n
//	D_e = sum_{c!=k} n_c n_k / (n (n-1))
//	alpha = 1 - D_o/D_e
//
// Units with fewer than two values are not pairable and add nothing. Alpha is
// undefined when fewer than two pairable values exist or when only one label
// value occurs (D_e = 0).
func alpha(units [][]string) metric.Metric {
	labels := distinct(units)
	if len(labels) == 0 {
		return metric.Undefined
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	k := len(labels)
	o := mat.NewDense(k, k, nil)
	counts := make([]float64, k)
	for _, values := range units {
		mu := len(values)
		if mu < 2 {
			continue
		}
		for i := range counts {
			counts[i] = 0
		}
		for _, v := range values {
			counts[index[v]]++
		}
		w := 1 / float64(mu-1)
		for c, nc := range counts {
			if nc == 0 {
				continue
			}
			for j, nk := range counts {
				if nk == 0 {
					continue
				}
				pairs := nc * nk
				if c == j {
					pairs = nc * (nc - 1)
				}
				o.Set(c, j, o.At(c, j)+pairs*w)
			}
		}
	}

	marginals := make([]float64, k)
	for c := range marginals {
		marginals[c] = floats.Sum(mat.Row(nil, c, o))
	}
	n := floats.Sum(marginals)
	if n < 2 {
		return metric.Undefined
	}

	var disagreeing, expected float64
	for c := 0; c < k; c++ {
		for j := 0; j < k; j++ {
			if c == j {
				continue
			}
			disagreeing += o.At(c, j)
			expected += marginals[c] * marginals[j]
		}
	}
	if expected == 0 {
		return metric.Undefined
	}
	return metric.Of(1 - (n-1)*disagreeing/expected)
}

func distinct(units [][]string) []string {
	set := map[string]bool{}
	for _, values := range units {
		for _, v := range values {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

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

import "gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"

// Band is one step of the Landis & Koch (1977) scale for kappa and alpha.
type Band struct {
	// Below is the exclusive upper bound of the band. Range is its printed form.
	Below float64
	Name  string
	Range string
}

var Bands = []Band{
	{Below: 0, Name: "poor", Range: "below 0"},
	{Below: 0.2, Name: "slight", Range: "0 to 0.2"},
	{Below: 0.4, Name: "fair", Range: "0.2 to 0.4"},
	{Below: 0.6, Name: "moderate", Range: "0.4 to 0.6"},
	{Below: 0.8, Name: "substantial", Range: "0.6 to 0.8"},
	{Below: 2, Name: "almost perfect", Range: "0.8 and above"},
}

// Interpret names the band of a chance-corrected coefficient, or "" when it is undefined.
func Interpret(m metric.Metric) string {
	if !m.Defined {
		return ""
	}
	for _, b := range Bands {
		if m.Value < b.Below {
			return b.Name
		}
	}
	return Bands[len(Bands)-1].Name
}

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

// Package metric holds the value type shared by every agreement statistic.
// A statistic is either defined, with a finite value, or undefined because its
// formula divided by zero or had too little data. Zero is a real outcome and is
// never used to stand in for undefined.
package metric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// UndefinedText is how an undefined metric is written in every output format.
const UndefinedText = "undefined"

// Metric is a statistic that may be undefined. The zero value is undefined.
type Metric struct {
	Value   float64
	Defined bool
}

// Undefined is the metric for a statistic that could not be computed.
var Undefined = Metric{}

// Of returns a defined metric, or Undefined for NaN and infinities.
func Of(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Metric{Value: v, Defined: true}
}

// Ratio returns num/den, or Undefined when den is zero.
func Ratio(num, den float64) Metric {
	if den == 0 {
		return Undefined
	}
	return Of(num / den)
}

// Format renders the value with the given number of decimals, or "undefined".
func (m Metric) Format(decimals int) string {
	if !m.Defined {
		return UndefinedText
	}
	return strconv.FormatFloat(m.Value, 'f', decimals, 64)
}

func (m Metric) String() string {
	return m.Format(3)
}

// MarshalJSON writes a number when defined and the string "undefined" otherwise.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return json.Marshal(UndefinedText)
	}
	return []byte(strconv.FormatFloat(m.Value, 'f', -1, 64)), nil
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Undefined
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != UndefinedText {
			return fmt.Errorf("invalid metric %q", s)
		}
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Of(v)
	return nil
}

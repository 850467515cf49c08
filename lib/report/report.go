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
report turns an agreement result into the structured bundle written as json, or
into a plain-text or markdown document. Undefined metrics are always written as
"undefined".
*/
package report

import (
	"fmt"
	"strings"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/agreement"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/iaa"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/spans"
)

type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

type Report struct {
	Mode             string           `json:"mode"`
	Summary          Summary          `json:"summary"`
	NoComparableData bool             `json:"no_comparable_data"`
	Coverage         []Coverage       `json:"coverage"`
	Warnings         []export.Warning `json:"warnings"`
	Categorical      *Categorical     `json:"categorical,omitempty"`
	Spans            *Spans           `json:"spans,omitempty"`
}

type Summary struct {
	Tasks       int `json:"tasks"`
	Annotated   int `json:"annotated"`
	Annotations int `json:"annotations"`
	Items       int `json:"items"`
	Annotators  int `json:"annotators"`
	Compared    int `json:"compared"`
	Skipped     int `json:"skipped"`
	Missing     int `json:"missing"`
	Ambiguous   int `json:"ambiguous"`
	Invalid     int `json:"invalid"`
}

type Coverage struct {
	Annotator string `json:"annotator"`
	Items     int    `json:"items"`
	Labelled  int    `json:"labelled"`
	// Share is the fraction of all items the annotator labelled.
	Share metric.Metric `json:"share"`
}

type Categorical struct {
	PercentAgreement    metric.Metric `json:"percent_agreement"`
	Agreed              int           `json:"agreed"`
	Total               int           `json:"total"`
	Kappa               []Kappa       `json:"pairwise_kappa"`
	Alpha               metric.Metric `json:"krippendorff_alpha"`
	AlphaInterpretation string        `json:"alpha_interpretation,omitempty"`
	PerLabel            []Label       `json:"per_label"`
}

type Kappa struct {
	A              string        `json:"a"`
	B              string        `json:"b"`
	Shared         int           `json:"shared"`
	Observed       metric.Metric `json:"observed"`
	Expected       metric.Metric `json:"expected"`
	Kappa          metric.Metric `json:"kappa"`
	Interpretation string        `json:"interpretation,omitempty"`
}

type Label struct {
	Label   string        `json:"label"`
	Items   int           `json:"items"`
	Agreed  int           `json:"agreed"`
	Percent metric.Metric `json:"percent_agreement"`
	Alpha   metric.Metric `json:"alpha"`
}

type Score struct {
	Matched   int           `json:"matched"`
	Predicted int           `json:"predicted"`
	Reference int           `json:"reference"`
	Precision metric.Metric `json:"precision"`
	Recall    metric.Metric `json:"recall"`
	F1        metric.Metric `json:"f1"`
}

type PairScore struct {
	A string `json:"a"`
	B string `json:"b"`
	Score
}

type ItemScore struct {
	Item string `json:"item"`
	Score
	Pairs []PairScore `json:"pairs"`
}

type LabelScore struct {
	Label string `json:"label"`
	Score
}

type Spans struct {
	Aggregate Score        `json:"aggregate"`
	Pairs     []PairScore  `json:"pairs"`
	PerLabel  []LabelScore `json:"per_label"`
	Items     []ItemScore  `json:"items"`
}

// New projects a result onto a report. It does not modify the result.
func New(res *iaa.Result) Report {
	rep := Report{
		Mode: string(res.Mode),
		Summary: Summary{
			Tasks:       res.Tasks,
			Annotated:   res.Annotated,
			Annotations: res.Annotations,
			Items:       res.Items,
			Annotators:  len(res.Annotators),
			Compared:    res.Compared,
			Skipped:     res.Skipped,
			Missing:     res.Missing,
			Ambiguous:   res.Ambiguous,
			Invalid:     res.Invalid,
		},
		NoComparableData: res.NoComparableData,
		Coverage:         make([]Coverage, 0, len(res.Coverage)),
		Warnings:         append([]export.Warning{}, res.Warnings...),
	}
	for _, c := range res.Coverage {
		rep.Coverage = append(rep.Coverage, Coverage{
			Annotator: c.Annotator,
			Items:     c.Items,
			Labelled:  c.Labelled,
			Share:     metric.Ratio(float64(c.Labelled), float64(res.Items)),
		})
	}
	if res.Categorical != nil {
		rep.Categorical = categorical(res.Categorical)
	}
	if res.Spans != nil {
		rep.Spans = spanReport(res.Spans)
	}
	return rep
}

func categorical(c *agreement.CategoricalResult) *Categorical {
	out := &Categorical{
		PercentAgreement:    c.Percent.Value,
		Agreed:              c.Percent.Agreed,
		Total:               c.Percent.Total,
		Kappa:               make([]Kappa, 0, len(c.Kappa)),
		Alpha:               c.Alpha,
		AlphaInterpretation: agreement.Interpret(c.Alpha),
		PerLabel:            make([]Label, 0, len(c.PerLabel)),
	}
	for _, pk := range c.Kappa {
		out.Kappa = append(out.Kappa, Kappa{
			A:              pk.A,
			B:              pk.B,
			Shared:         pk.Shared,
			Observed:       pk.Observed,
			Expected:       pk.Expected,
			Kappa:          pk.Kappa,
			Interpretation: agreement.Interpret(pk.Kappa),
		})
	}
	for _, l := range c.PerLabel {
		out.PerLabel = append(out.PerLabel, Label{
			Label:   l.Label,
			Items:   l.Items,
			Agreed:  l.Agreed,
			Percent: l.Percent,
			Alpha:   l.Alpha,
		})
	}
	return out
}

func score(s spans.Score) Score {
	return Score{
		Matched:   s.Matched,
		Predicted: s.Predicted,
		Reference: s.Reference,
		Precision: s.Precision,
		Recall:    s.Recall,
		F1:        s.F1,
	}
}

func pairScores(pairs []spans.PairScore) []PairScore {
	out := make([]PairScore, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, PairScore{A: p.A, B: p.B, Score: score(p.Score)})
	}
	return out
}

func spanReport(s *spans.SpanResult) *Spans {
	out := &Spans{
		Aggregate: score(s.Aggregate),
		Pairs:     pairScores(s.Pairs),
		PerLabel:  make([]LabelScore, 0, len(s.PerLabel)),
		Items:     make([]ItemScore, 0, len(s.Items)),
	}
	for _, l := range s.PerLabel {
		out.PerLabel = append(out.PerLabel, LabelScore{Label: l.Label, Score: score(l.Score)})
	}
	for _, item := range s.Items {
		out.Items = append(out.Items, ItemScore{
			Item:  item.Item.ID,
			Score: score(item.Score),
			Pairs: pairScores(item.Pairs),
		})
	}
	return out
}

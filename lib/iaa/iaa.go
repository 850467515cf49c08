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
iaa runs the whole agreement pipeline for one export: load, align, then the
categorical or span engine depending on the annotation mode.
*/
package iaa

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/agreement"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/alignment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/spans"
)

type Options struct {
	// Mode forces the annotation mode. When it is ModeAuto the schema's type
	// decides, and failing that the export itself.
	Mode      export.Mode
	Schema    *schema.Schema
	Blocklist *blocklist.Blocklist
	MaxBytes  int64
}

func (o Options) mode() export.Mode {
	if o.Mode != "" && o.Mode != export.ModeAuto {
		return o.Mode
	}
	if m, err := export.ParseMode(o.Schema.Mode()); err == nil {
		return m
	}
	return export.ModeAuto
}

// Coverage is how much of the export one annotator judged.
type Coverage struct {
	Annotator string
	// Items is the number of items the annotator submitted for.
	Items int
	// Labelled is the number of those items that carried a usable label, or at
	// least one span in span mode.
	Labelled int
}

type Result struct {
	Mode        export.Mode
	Tasks       int
	Annotated   int
	Annotations int
	Items       int
	Annotators  []string
	Coverage    []Coverage
	// Compared is the number of items with at least two contributing annotators.
	Compared  int
	Skipped   int
	Missing   int
	Ambiguous int
	Invalid   int
	Warnings  []export.Warning

	// Categorical is set in categorical and sentence mode, Spans in span mode.
	Categorical *agreement.CategoricalResult
	Spans       *spans.SpanResult

	NoComparableData bool
}

// RunFile computes agreement for the export at path.
func RunFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Run(f, opts)
}

// Run loads an export from r and computes agreement for it. Only a malformed
// export is an error; missing overlap is reported through NoComparableData.
func Run(r io.Reader, opts Options) (*Result, error) {
	exp, err := export.Load(r, export.Options{
		Mode:      opts.mode(),
		Schema:    opts.Schema,
		Blocklist: opts.Blocklist,
		MaxBytes:  opts.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range exp.Warnings {
		log.Warn().
			Str("kind", string(w.Kind)).
			Str("item", w.ItemID).
			Str("annotator", w.Annotator).
			Msg(w.Message)
	}
	return Evaluate(exp, opts.Schema.Names()), nil
}

// Evaluate computes agreement for an already loaded export. labels is the
// schema's label list and only orders the per-label breakdown.
func Evaluate(exp *export.Export, labels []string) *Result {
	res := &Result{
		Mode:        exp.Mode,
		Tasks:       exp.Tasks,
		Annotated:   exp.Annotated,
		Annotations: exp.Annotations,
		Items:       len(exp.Items),
		Warnings:    exp.Warnings,
	}

	switch exp.Mode {
	case export.ModeCategorical, export.ModeSentence:
		m := alignment.BuildCategorical(exp.Items, exp.Judgments)
		c := agreement.Compute(m, labels)
		res.Categorical = &c
		res.Annotators = m.Annotators
		res.Coverage = judgmentCoverage(m.Annotators, exp.Judgments)
		res.Compared = len(m.Units)
		res.Skipped = m.Skipped
		res.Missing = m.Missing
		res.Ambiguous = m.Ambiguous
		res.NoComparableData = c.NoComparableData
	case export.ModeSpan:
		m := alignment.BuildSpans(exp.Items, exp.Spans, exp.InvalidItems)
		s := spans.Compute(m)
		res.Spans = &s
		res.Annotators = m.Annotators
		res.Coverage = spanCoverage(m.Annotators, exp.Spans)
		res.Compared = len(m.Units)
		res.Skipped = m.Skipped
		res.Invalid = m.Invalid
		res.NoComparableData = s.NoComparableData
	default:
		res.NoComparableData = true
	}

	if res.NoComparableData {
		log.Info().Str("mode", string(exp.Mode)).Int("items", res.Items).Msg("no comparable data")
	}
	return res
}

func judgmentCoverage(annotators []string, judgments []export.Judgment) []Coverage {
	index := make(map[string]int, len(annotators))
	out := make([]Coverage, len(annotators))
	for i, a := range annotators {
		index[a] = i
		out[i].Annotator = a
	}
	for _, j := range judgments {
		c := &out[index[j.Annotator]]
		c.Items++
		if j.State == export.Labelled {
			c.Labelled++
		}
	}
	return out
}

func spanCoverage(annotators []string, annotations []export.SpanAnnotation) []Coverage {
	index := make(map[string]int, len(annotators))
	out := make([]Coverage, len(annotators))
	for i, a := range annotators {
		index[a] = i
		out[i].Annotator = a
	}
	for _, a := range annotations {
		c := &out[index[a.Annotator]]
		c.Items++
		if len(a.Spans) > 0 {
			c.Labelled++
		}
	}
	return out
}

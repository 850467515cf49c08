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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/agreement"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
)

const decimals = 3

const noComparableData = "NO COMPARABLE DATA: no item was judged by two or more annotators, so no agreement statistic could be computed."

// Render writes the report in the given format.
func Render(w io.Writer, rep Report, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case Markdown:
		return renderMarkdown(w, rep)
	case Text, "":
		return renderText(w, rep)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

type table struct {
	header []string
	rows   [][]string
}

type section struct {
	title string
	lines []string
	table *table
}

func f(m metric.Metric) string {
	return m.Format(decimals)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func sections(rep Report) []section {
	s := rep.Summary
	out := []section{{
		title: "Inter-annotator agreement",
		lines: []string{
			"Mode: " + rep.Mode,
			fmt.Sprintf("Tasks: %d (%d annotated)", s.Tasks, s.Annotated),
			"Annotations: " + itoa(s.Annotations),
			"Items: " + itoa(s.Items),
			"Annotators: " + itoa(s.Annotators),
			fmt.Sprintf("Compared items: %d (judged by two or more annotators)", s.Compared),
			fmt.Sprintf("Skipped items: %d (fewer than two annotators)", s.Skipped),
		},
	}}
	if s.Missing > 0 || s.Ambiguous > 0 {
		out[0].lines = append(out[0].lines, fmt.Sprintf("Excluded judgments: %d missing, %d ambiguous", s.Missing, s.Ambiguous))
	}
	if s.Invalid > 0 {
		out[0].lines = append(out[0].lines, fmt.Sprintf("Invalid items: %d (excluded from span metrics)", s.Invalid))
	}

	coverage := &table{header: []string{"annotator", "items", "labelled", "coverage"}}
	for _, c := range rep.Coverage {
		coverage.rows = append(coverage.rows, []string{c.Annotator, itoa(c.Items), itoa(c.Labelled), f(c.Share)})
	}
	out = append(out, section{title: "Annotator coverage", table: coverage})

	if c := rep.Categorical; c != nil {
		alpha := "Krippendorff's alpha: " + f(c.Alpha)
		if c.AlphaInterpretation != "" {
			alpha += " (" + c.AlphaInterpretation + ")"
		}
		out = append(out, section{
			title: "Categorical agreement",
			lines: []string{
				fmt.Sprintf("Percent agreement: %s (%d of %d items)", f(c.PercentAgreement), c.Agreed, c.Total),
				alpha,
			},
		})

		kappa := section{title: "Pairwise Cohen's kappa"}
		if len(c.Kappa) == 0 {
			kappa.lines = []string{"No annotator pair judged a common item."}
		} else {
			kappa.table = &table{header: []string{"annotator a", "annotator b", "shared", "observed", "expected", "kappa", "interpretation"}}
			for _, k := range c.Kappa {
				kappa.table.rows = append(kappa.table.rows, []string{
					k.A, k.B, itoa(k.Shared), f(k.Observed), f(k.Expected), f(k.Kappa), orDash(k.Interpretation),
				})
			}
		}
		out = append(out, kappa)

		labels := &table{header: []string{"label", "items", "agreed", "percent", "alpha"}}
		for _, l := range c.PerLabel {
			labels.rows = append(labels.rows, []string{l.Label, itoa(l.Items), itoa(l.Agreed), f(l.Percent), f(l.Alpha)})
		}
		out = append(out, section{title: "Per-label agreement", table: labels})
	}

	if sp := rep.Spans; sp != nil {
		a := sp.Aggregate
		out = append(out, section{
			title: "Span agreement (exact match)",
			lines: []string{
				fmt.Sprintf("Micro F1: %s", f(a.F1)),
				fmt.Sprintf("Micro precision: %s", f(a.Precision)),
				fmt.Sprintf("Micro recall: %s", f(a.Recall)),
				fmt.Sprintf("Matched spans: %d (%d from the first annotator of each pair, %d from the second)", a.Matched, a.Predicted, a.Reference),
			},
		})

		pairs := &table{header: scoreHeader("annotator a", "annotator b")}
		for _, p := range sp.Pairs {
			pairs.rows = append(pairs.rows, scoreRow(p.Score, p.A, p.B))
		}
		out = append(out, section{title: "Span agreement by pair", table: pairs})

		labels := &table{header: scoreHeader("label")}
		for _, l := range sp.PerLabel {
			labels.rows = append(labels.rows, scoreRow(l.Score, l.Label))
		}
		out = append(out, section{title: "Span agreement by label", table: labels})

		items := &table{header: scoreHeader("item", "pairs")}
		for _, it := range sp.Items {
			items.rows = append(items.rows, scoreRow(it.Score, it.Item, itoa(len(it.Pairs))))
		}
		out = append(out, section{title: "Span agreement by item", table: items})
	}

	out = append(out, warnings(rep.Warnings))

	guide := &table{header: []string{"coefficient", "agreement"}}
	for _, b := range agreement.Bands {
		guide.rows = append(guide.rows, []string{b.Range, b.Name})
	}
	out = append(out, section{
		title: "Interpretation guide",
		lines: []string{"Kappa and alpha are read on the Landis & Koch (1977) scale."},
		table: guide,
	})
	return out
}

func scoreHeader(keys ...string) []string {
	return append(keys, "matched", "precision", "recall", "f1")
}

func scoreRow(s Score, keys ...string) []string {
	return append(keys, itoa(s.Matched), f(s.Precision), f(s.Recall), f(s.F1))
}

func warnings(ws []export.Warning) section {
	sec := section{title: fmt.Sprintf("Warnings (%d)", len(ws))}
	if len(ws) == 0 {
		sec.lines = []string{"None."}
		return sec
	}

	counts := map[export.WarningKind]int{}
	for _, w := range ws {
		counts[w.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	sec.table = &table{header: []string{"kind", "count"}}
	for _, k := range kinds {
		sec.table.rows = append(sec.table.rows, []string{k, itoa(counts[export.WarningKind(k)])})
	}
	for _, w := range ws {
		sec.lines = append(sec.lines, w.String())
	}
	return sec
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printer keeps the first write error so rendering code can write unconditionally.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func renderText(w io.Writer, rep Report) error {
	p := &printer{w: w}
	for i, sec := range sections(rep) {
		underline := "-"
		if i == 0 {
			underline = "="
		}
		p.printf("%s\n%s\n", sec.title, strings.Repeat(underline, len(sec.title)))
		if i == 0 && rep.NoComparableData {
			p.printf("\n!! %s\n\n", noComparableData)
		}
		for _, line := range sec.lines {
			p.printf("%s\n", line)
		}
		if sec.table != nil {
			if len(sec.lines) > 0 {
				p.printf("\n")
			}
			textTable(p, sec.table)
		}
		p.printf("\n")
	}
	return p.err
}

func textTable(p *printer, t *table) {
	if p.err != nil {
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	p.err = tw.Flush()
}

func renderMarkdown(w io.Writer, rep Report) error {
	p := &printer{w: w}
	for i, sec := range sections(rep) {
		level := "##"
		if i == 0 {
			level = "#"
		}
		p.printf("%s %s\n\n", level, sec.title)
		if i == 0 && rep.NoComparableData {
			p.printf("> **%s**\n\n", noComparableData)
		}
		for _, line := range sec.lines {
			p.printf("- %s\n", markdownEscape(line))
		}
		if len(sec.lines) > 0 {
			p.printf("\n")
		}
		if sec.table != nil {
			markdownTable(p, sec.table)
			p.printf("\n")
		}
	}
	return p.err
}

func markdownTable(p *printer, t *table) {
	p.printf("| %s |\n", strings.Join(markdownRow(t.header), " | "))
	sep := make([]string, len(t.header))
	for i := range sep {
		sep[i] = "---"
	}
	p.printf("| %s |\n", strings.Join(sep, " | "))
	for _, row := range t.rows {
		p.printf("| %s |\n", strings.Join(markdownRow(row), " | "))
	}
}

func markdownRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(markdownEscape(c), "|", `\|`)
	}
	return out
}

var markdownReplacer = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`")

func markdownEscape(s string) string {
	return markdownReplacer.Replace(s)
}

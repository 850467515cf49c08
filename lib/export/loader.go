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
export reads Label Studio JSON exports into items with per-annotator judgments
(categorical and sentence modes) or span sets (span mode).

Loading is a pure transform of the document: structural problems abort with a
MalformedExport, while per-item data problems (invalid spans, ambiguous
judgments, unknown labels) are kept as warnings on the returned Export.
*/
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
)

// DefaultMaxBytes is the input size ceiling used when Options.MaxBytes is unset.
const DefaultMaxBytes int64 = 256 << 20

type Options struct {
	// Mode selects which result types are read. ModeAuto (or "") detects it
	// from the first supported result in the document.
	Mode Mode
	// Schema, when set, is used to warn about labels it does not declare.
	Schema    *schema.Schema
	Blocklist *blocklist.Blocklist
	MaxBytes  int64
}

// LoadFile opens the export at path and loads it.
func LoadFile(path string, opts Options) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

// Load reads a whole export document from r.
func Load(r io.Reader, opts Options) (*Export, error) {
	max := opts.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}

	data, err := ioutil.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, &MalformedExport{Index: -1, Err: err}
	}
	if int64(len(data)) > max {
		return nil, &MalformedExport{Index: -1, Err: fmt.Errorf("%w of %d bytes", ErrTooLarge, max)}
	}

	tasks, err := decodeTasks(data)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" || mode == ModeAuto {
		mode = detect(tasks)
	}

	l := &loader{
		opts:          opts,
		exp:           &Export{Mode: mode, Tasks: len(tasks)},
		seenIDs:       make(map[string]bool, len(tasks)),
		unknownLabels: map[string]bool{},
		blocked:       map[string]bool{},
	}
	for i, t := range tasks {
		if err := l.task(i, t); err != nil {
			return nil, err
		}
	}
	return l.exp, nil
}

// decodeTasks streams the top level array so that a broken record can be
// reported by its index.
func decodeTasks(data []byte) ([]rawTask, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, &MalformedExport{Index: -1, Err: errors.New("empty document")}
	} else if err != nil {
		return nil, &MalformedExport{Index: -1, Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, &MalformedExport{Index: -1, Err: ErrNotArray}
	}

	var tasks []rawTask
	for i := 0; dec.More(); i++ {
		var t rawTask
		if err := dec.Decode(&t); err != nil {
			return nil, &MalformedExport{Index: i, Err: err}
		}
		tasks = append(tasks, t)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &MalformedExport{Index: len(tasks), Err: err}
	}
	return tasks, nil
}

// detect returns the mode of the first supported result type in the document.
func detect(tasks []rawTask) Mode {
	for _, t := range tasks {
		for _, a := range t.Annotations {
			for _, r := range a.Result {
				switch r.Type {
				case "choices", "taxonomy":
					return ModeCategorical
				case "paragraphlabels":
					return ModeSentence
				case "labels":
					return ModeSpan
				}
			}
		}
	}
	return ModeUnknown
}

type loader struct {
	opts          Options
	exp           *Export
	seenIDs       map[string]bool
	unknownLabels map[string]bool
	blocked       map[string]bool
}

// submission is everything one annotator submitted for one task. Several
// annotations by the same annotator on a task are merged.
type submission struct {
	annotator string
	results   []result
}

type result struct {
	Type  string
	Value rawValue
	// field locates the result's value in the task for error messages.
	field string
}

// resultTypes lists the result types each mode reads.
var resultTypes = map[Mode][]string{
	ModeCategorical: {"choices", "taxonomy"},
	ModeSentence:    {"paragraphlabels"},
	ModeSpan:        {"labels"},
}

func (l *loader) reads(typ string) bool {
	for _, t := range resultTypes[l.exp.Mode] {
		if t == typ {
			return true
		}
	}
	return false
}

func (l *loader) warn(kind WarningKind, itemID, annotator, msg string) {
	l.exp.Warnings = append(l.exp.Warnings, Warning{
		Kind:      kind,
		ItemID:    itemID,
		Annotator: annotator,
		Message:   msg,
	})
}

func (l *loader) task(index int, t rawTask) error {
	id, ok := identifier(t.ID)
	if !ok {
		return &MalformedExport{Index: index, Field: "id", Err: ErrMissingField}
	}
	if l.seenIDs[id] {
		return &MalformedExport{Index: index, Field: "id", Err: fmt.Errorf("%w %s", ErrDuplicateID, id)}
	}
	l.seenIDs[id] = true
	if len(t.Annotations) > 0 {
		l.exp.Annotated++
	}

	if t.Data == nil {
		return &MalformedExport{Index: index, Field: "data.text", Err: ErrMissingField}
	}
	text, paragraphs, isList, err := taskText(t.Data.Text)
	if err != nil {
		return &MalformedExport{Index: index, Field: "data.text", Err: err}
	}

	subs, err := l.submissions(index, id, t.Annotations)
	if err != nil {
		return err
	}

	switch l.exp.Mode {
	case ModeSentence:
		if !isList {
			return &MalformedExport{Index: index, Field: "data.text", Err: errors.New("sentence tasks need a list of paragraphs")}
		}
		return l.sentences(index, id, paragraphs, subs)
	case ModeSpan:
		if isList {
			return &MalformedExport{Index: index, Field: "data.text", Err: errors.New("span tasks need a text string")}
		}
		return l.spans(index, id, text, subs)
	case ModeCategorical:
		l.categorical(index, id, text, subs)
	default:
		l.exp.Items = append(l.exp.Items, Item{ID: id, Index: index, Text: text})
	}
	return nil
}

func (l *loader) submissions(index int, itemID string, annotations []rawAnnotation) ([]submission, error) {
	var subs []submission
	pos := map[string]int{}
	for j, a := range annotations {
		name, ok := annotator(a.CompletedBy)
		if !ok {
			// Label Studio falls back to the annotation id for imported annotations.
			if id, hasID := identifier(a.ID); hasID {
				name, ok = "annotation-"+id, true
			}
		}
		if !ok {
			return nil, &MalformedExport{Index: index, Field: fmt.Sprintf("annotations[%d].completed_by", j), Err: ErrMissingField}
		}

		if a.WasCancelled {
			l.warn(WarnCancelled, itemID, name, "cancelled annotation skipped")
			continue
		}
		if !l.opts.Blocklist.Allowed(name) {
			if !l.blocked[name] {
				l.blocked[name] = true
				l.warn(WarnBlocked, "", name, "annotations from blocklisted annotator excluded")
			}
			continue
		}
		l.exp.Annotations++

		p, seen := pos[name]
		if !seen {
			p = len(subs)
			pos[name] = p
			subs = append(subs, submission{annotator: name})
		}
		for k, r := range a.Result {
			if !l.reads(r.Type) {
				continue
			}
			res := result{Type: r.Type, field: fmt.Sprintf("annotations[%d].result[%d].value", j, k)}
			if len(r.Value) == 0 {
				subs[p].results = append(subs[p].results, res)
				continue
			}
			if err := json.Unmarshal(r.Value, &res.Value); err != nil {
				return nil, &MalformedExport{Index: index, Field: res.field, Err: err}
			}
			subs[p].results = append(subs[p].results, res)
		}
	}
	return subs, nil
}

// labels normalises and deduplicates label names, keeping their order, and
// warns once per label the schema does not declare.
func (l *loader) labels(itemID, annotator string, raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, label := range raw {
		label = schema.NormalizeLabel(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)

		if l.opts.Schema != nil && !l.opts.Schema.Has(label) && !l.unknownLabels[label] {
			l.unknownLabels[label] = true
			l.warn(WarnUnknownLabel, itemID, annotator, fmt.Sprintf("label %q is not declared in the schema", label))
		}
	}
	return out
}

func (l *loader) judgment(itemID, annotator string, raw []string) Judgment {
	j := Judgment{
		ItemID:    itemID,
		Annotator: annotator,
		Labels:    l.labels(itemID, annotator, raw),
	}
	switch len(j.Labels) {
	case 0:
		j.State = Missing
	case 1:
		j.State = Labelled
		j.Label = j.Labels[0]
	default:
		j.State = Ambiguous
		l.warn(WarnAmbiguous, itemID, annotator, fmt.Sprintf("%d distinct labels %v; judgment excluded", len(j.Labels), j.Labels))
	}
	return j
}

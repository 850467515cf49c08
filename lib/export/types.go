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
	"strings"
)

// Mode is the annotation granularity read from an export.
type Mode string

const (
	ModeAuto Mode = "auto"
	// ModeCategorical reads one label per task from choices or taxonomy results.
	ModeCategorical Mode = "categorical"
	// ModeSentence reads one label per paragraph from paragraphlabels results.
	ModeSentence Mode = "sentence"
	// ModeSpan reads character spans from labels results.
	ModeSpan Mode = "span"
	// ModeUnknown is detected when no annotation carries a supported result type.
	ModeUnknown Mode = "unknown"
)

// ParseMode accepts the mode names above plus the task type names used by the
// annotation tooling (classification, paragraph). An empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "categorical", "classification":
		return ModeCategorical, nil
	case "sentence", "paragraph":
		return ModeSentence, nil
	case "span", "ner":
		return ModeSpan, nil
	default:
		return "", fmt.Errorf("unsupported task type %q", s)
	}
}

// Item is one unit of annotation work. In sentence mode every paragraph of a
// task is its own item.
type Item struct {
	ID string
	// Index is the position of the source task in the export.
	Index int
	Text  string
}

// State separates a judgment carrying one label from the judgments that must
// not be tallied.
type State int

const (
	Labelled State = iota
	// Missing means the annotator submitted the task without choosing a label.
	Missing
	// Ambiguous means the annotator chose more than one distinct label.
	Ambiguous
)

func (s State) String() string {
	switch s {
	case Labelled:
		return "labelled"
	case Missing:
		return "missing"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Judgment is one annotator's label for one item in categorical or sentence mode.
type Judgment struct {
	ItemID    string
	Annotator string
	// Label is set only when State is Labelled.
	Label string
	// Labels holds every distinct label the annotator chose.
	Labels []string
	State  State
}

// Span is a labelled character range [Start, End) of an item's text, counted in runes.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

func (s Span) String() string {
	return fmt.Sprintf("(%d,%d,%s)", s.Start, s.End, s.Label)
}

// SpanAnnotation is the set of spans one annotator produced for one item.
// Spans are sorted by start, end and label, without duplicates.
type SpanAnnotation struct {
	ItemID    string
	Annotator string
	Spans     []Span
}

type WarningKind string

const (
	WarnInvalidSpan    WarningKind = "invalid_span"
	WarnAmbiguous      WarningKind = "ambiguous_judgment"
	WarnUnknownLabel   WarningKind = "unknown_label"
	WarnCancelled      WarningKind = "cancelled_annotation"
	WarnBlocked        WarningKind = "blocked_annotator"
	WarnUnlabelledSpan WarningKind = "unlabelled_span"
)

// Warning records data that was excluded or kept unvalidated while loading.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	ItemID    string      `json:"item_id,omitempty"`
	Annotator string      `json:"annotator,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(string(w.Kind))
	if w.ItemID != "" {
		b.WriteString(" item=")
		b.WriteString(w.ItemID)
	}
	if w.Annotator != "" {
		b.WriteString(" annotator=")
		b.WriteString(w.Annotator)
	}
	b.WriteString(": ")
	b.WriteString(w.Message)
	return b.String()
}

// Export is the normalised content of one export document.
type Export struct {
	Mode Mode
	// Tasks is the number of task records in the document.
	Tasks int
	// Annotated is the number of tasks carrying at least one annotation,
	// cancelled ones included.
	Annotated int
	// Annotations is the number of annotations read, after cancelled and
	// blocklisted ones were dropped.
	Annotations int
	Items       []Item
	Judgments   []Judgment
	Spans       []SpanAnnotation
	// InvalidItems lists items excluded from span metrics because at least one
	// of their spans was invalid.
	InvalidItems []string
	Warnings     []Warning
}

// Count returns the number of warnings of the given kind.
func (e *Export) Count(kind WarningKind) int {
	n := 0
	for _, w := range e.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
)

type LoaderSuite struct {
	suite.Suite
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) load(doc string, opts Options) *Export {
	exp, err := Load(strings.NewReader(doc), opts)
	s.Require().NoError(err)
	return exp
}

func (s *LoaderSuite) malformed(doc string, opts Options) *MalformedExport {
	_, err := Load(strings.NewReader(doc), opts)
	s.Require().Error(err)
	var me *MalformedExport
	s.Require().True(errors.As(err, &me), "want MalformedExport, got %T: %v", err, err)
	return me
}

const categoricalDoc = `[
  {"id": 1, "data": {"text": "great film"}, "annotations": [
    {"completed_by": 11, "result": [{"type": "choices", "value": {"choices": ["POSITIVE"]}}]},
    {"completed_by": 12, "result": [{"type": "choices", "value": {"choices": ["POSITIVE"]}}]}
  ]},
  {"id": 2, "data": {"text": "fine, I guess"}, "annotations": [
    {"completed_by": 11, "result": [{"type": "choices", "value": {"choices": ["POSITIVE", "NEGATIVE"]}}]},
    {"completed_by": 12, "result": []},
    {"completed_by": 13, "was_cancelled": true, "result": []}
  ]},
  {"id": "3", "data": {"text": "awful"}, "annotations": [
    {"completed_by": {"id": 12, "email": "bob@example.org"}, "result": [{"type": "taxonomy", "value": {"taxonomy": [["NEGATIVE"]]}}]}
  ]}
]`

func (s *LoaderSuite) TestCategorical() {
	exp := s.load(categoricalDoc, Options{Schema: schema.FromNames("POSITIVE", "NEGATIVE")})

	s.Equal(ModeCategorical, exp.Mode)
	s.Equal(3, exp.Tasks)
	s.Equal(3, exp.Annotated)
	s.Equal(5, exp.Annotations)
	s.Equal([]Item{
		{ID: "1", Index: 0, Text: "great film"},
		{ID: "2", Index: 1, Text: "fine, I guess"},
		{ID: "3", Index: 2, Text: "awful"},
	}, exp.Items)

	s.Equal([]Judgment{
		{ItemID: "1", Annotator: "11", Label: "POSITIVE", Labels: []string{"POSITIVE"}, State: Labelled},
		{ItemID: "1", Annotator: "12", Label: "POSITIVE", Labels: []string{"POSITIVE"}, State: Labelled},
		{ItemID: "2", Annotator: "11", Labels: []string{"POSITIVE", "NEGATIVE"}, State: Ambiguous},
		{ItemID: "2", Annotator: "12", State: Missing},
		{ItemID: "3", Annotator: "bob@example.org", Label: "NEGATIVE", Labels: []string{"NEGATIVE"}, State: Labelled},
	}, exp.Judgments)

	s.Equal(1, exp.Count(WarnAmbiguous))
	s.Equal(1, exp.Count(WarnCancelled))
	s.Equal(0, exp.Count(WarnUnknownLabel))
}

func (s *LoaderSuite) TestUnknownLabelWarnsOnce() {
	doc := `[
	  {"id": 1, "data": {"text": "a"}, "annotations": [
	    {"completed_by": 1, "result": [{"type": "choices", "value": {"choices": ["MAYBE"]}}]},
	    {"completed_by": 2, "result": [{"type": "choices", "value": {"choices": ["MAYBE"]}}]}
	  ]}
	]`
	exp := s.load(doc, Options{Schema: schema.FromNames("YES", "NO")})
	s.Equal(1, exp.Count(WarnUnknownLabel))
	// the label is kept, not coerced
	s.Equal("MAYBE", exp.Judgments[0].Label)
}

func (s *LoaderSuite) TestBlocklistedAnnotatorsAreDropped() {
	exp := s.load(categoricalDoc, Options{Blocklist: blocklist.New("12")})
	for _, j := range exp.Judgments {
		s.NotEqual("12", j.Annotator)
	}
	s.Equal(1, exp.Count(WarnBlocked))
}

func (s *LoaderSuite) TestExplicitModeIgnoresOtherResults() {
	exp := s.load(categoricalDoc, Options{Mode: ModeSpan})
	s.Equal(ModeSpan, exp.Mode)
	s.Empty(exp.Judgments)
	s.Len(exp.Spans, 5)
	for _, sa := range exp.Spans {
		s.Empty(sa.Spans)
	}
}

const spanDoc = `[
  {"id": 7, "data": {"text": "Time is a thief."}, "annotations": [
    {"completed_by": "alice", "result": [
      {"type": "labels", "value": {"start": 10, "end": 15, "labels": ["METAPHOR"]}},
      {"type": "labels", "value": {"start": 0, "end": 4, "labels": ["METAPHOR", "IRONY"]}},
      {"type": "labels", "value": {"start": 0, "end": 4, "labels": ["METAPHOR"]}}
    ]},
    {"completed_by": "bob", "result": [
      {"type": "labels", "value": {"startOffset": 10, "endOffset": 15, "labels": ["IRONY"]}}
    ]},
    {"completed_by": "carol", "result": []}
  ]},
  {"id": 8, "data": {"text": "short"}, "annotations": [
    {"completed_by": "alice", "result": [{"type": "labels", "value": {"start": 2, "end": 40, "labels": ["IRONY"]}}]},
    {"completed_by": "bob", "result": [{"type": "labels", "value": {"start": 3, "end": 3, "labels": ["IRONY"]}}]}
  ]}
]`

func (s *LoaderSuite) TestSpans() {
	exp := s.load(spanDoc, Options{})

	s.Equal(ModeSpan, exp.Mode)
	s.Require().Len(exp.Spans, 5)
	s.Equal(SpanAnnotation{ItemID: "7", Annotator: "alice", Spans: []Span{
		{Start: 0, End: 4, Label: "IRONY"},
		{Start: 0, End: 4, Label: "METAPHOR"},
		{Start: 10, End: 15, Label: "METAPHOR"},
	}}, exp.Spans[0])
	s.Equal([]Span{{Start: 10, End: 15, Label: "IRONY"}}, exp.Spans[1].Spans)
	s.Equal("carol", exp.Spans[2].Annotator)
	s.Empty(exp.Spans[2].Spans)

	s.Equal([]string{"8"}, exp.InvalidItems)
	s.Equal(2, exp.Count(WarnInvalidSpan))
}

func (s *LoaderSuite) TestSpanOffsetsCountRunes() {
	doc := `[{"id": 1, "data": {"text": "αβγ δ"}, "annotations": [
	  {"completed_by": 1, "result": [{"type": "labels", "value": {"start": 4, "end": 5, "labels": ["X"]}}]}
	]}]`
	exp := s.load(doc, Options{})
	s.Empty(exp.InvalidItems)
	s.Equal([]Span{{Start: 4, End: 5, Label: "X"}}, exp.Spans[0].Spans)
}

func (s *LoaderSuite) TestSpanWithExplicitZeroStart() {
	doc := `[{"id": 1, "data": {"text": "hello"}, "annotations": [
	  {"completed_by": 1, "result": [{"type": "labels", "value": {"start": 0, "end": 5, "labels": ["X"]}}]}
	]}]`
	exp := s.load(doc, Options{})
	s.Equal([]Span{{Start: 0, End: 5, Label: "X"}}, exp.Spans[0].Spans)
}

func (s *LoaderSuite) TestSpanMissingOffsetIsMalformed() {
	doc := `[{"id": 1, "data": {"text": "hello"}, "annotations": [
	  {"completed_by": 1, "result": [{"type": "labels", "value": {"end": 5, "labels": ["X"]}}]}
	]}]`
	me := s.malformed(doc, Options{})
	s.Equal(0, me.Index)
	s.Equal("annotations[0].result[0].value.start", me.Field)
	s.ErrorIs(me, ErrMissingField)
}

const sentenceDoc = `[
  {"id": 4, "data": {"text": [{"author": "", "text": "One."}, {"author": "", "text": "Two."}, "Three."]}, "annotations": [
    {"completed_by": 1, "result": [
      {"type": "paragraphlabels", "value": {"start": "0", "end": "1", "startOffset": 0, "endOffset": 4, "paragraphlabels": ["LITERAL"]}}
    ]},
    {"completed_by": 2, "result": [
      {"type": "paragraphlabels", "value": {"start": 1, "paragraphlabels": ["FIGURATIVE"]}},
      {"type": "paragraphlabels", "value": {"start": 2, "end": 9, "paragraphlabels": ["FIGURATIVE"]}}
    ]}
  ]}
]`

func (s *LoaderSuite) TestSentences() {
	exp := s.load(sentenceDoc, Options{})

	s.Equal(ModeSentence, exp.Mode)
	s.Equal([]Item{
		{ID: "4#0", Index: 0, Text: "One."},
		{ID: "4#1", Index: 0, Text: "Two."},
		{ID: "4#2", Index: 0, Text: "Three."},
	}, exp.Items)

	states := map[string]State{}
	labels := map[string]string{}
	for _, j := range exp.Judgments {
		key := j.ItemID + "/" + j.Annotator
		states[key] = j.State
		labels[key] = j.Label
	}
	s.Equal("LITERAL", labels["4#0/1"])
	s.Equal("LITERAL", labels["4#1/1"])
	s.Equal(Missing, states["4#2/1"])
	s.Equal(Missing, states["4#0/2"])
	s.Equal("FIGURATIVE", labels["4#1/2"])
	s.Equal(Missing, states["4#2/2"])
	s.Equal(1, exp.Count(WarnInvalidSpan))
}

func (s *LoaderSuite) TestUnknownMode() {
	exp := s.load(`[{"id": 1, "data": {"text": "x"}, "annotations": [{"completed_by": 1, "result": []}]}]`, Options{})
	s.Equal(ModeUnknown, exp.Mode)
	s.Len(exp.Items, 1)
	s.Empty(exp.Judgments)
}

func (s *LoaderSuite) TestAnnotatedTasks() {
	exp := s.load(`[
  {"id": 1, "data": {"text": "a"}},
  {"id": 2, "data": {"text": "b"}, "annotations": []},
  {"id": 3, "data": {"text": "c"}, "annotations": [{"completed_by": 1, "was_cancelled": true, "result": []}]}
]`, Options{})
	s.Equal(3, exp.Tasks)
	s.Equal(1, exp.Annotated)
	s.Equal(0, exp.Annotations)
}

func (s *LoaderSuite) TestEmptyExport() {
	exp := s.load(`[]`, Options{})
	s.Equal(0, exp.Tasks)
	s.Equal(ModeUnknown, exp.Mode)
}

func (s *LoaderSuite) TestMalformed() {
	for _, tt := range []struct {
		name  string
		doc   string
		index int
		field string
	}{
		{name: "empty document", doc: "", index: -1},
		{name: "not an array", doc: `{"id": 1}`, index: -1},
		{name: "broken second task", doc: `[{"id": 1, "data": {"text": "a"}}, {"id": 2, "data": ]`, index: 1},
		{name: "task is not an object", doc: `[{"id": 1, "data": {"text": "a"}}, 5]`, index: 1},
		{name: "missing id", doc: `[{"data": {"text": "a"}}]`, index: 0, field: "id"},
		{name: "duplicate id", doc: `[{"id": 1, "data": {"text": "a"}}, {"id": "1", "data": {"text": "b"}}]`, index: 1, field: "id"},
		{name: "missing text", doc: `[{"id": 1, "data": {}}]`, index: 0, field: "data.text"},
		{name: "missing data", doc: `[{"id": 1}]`, index: 0, field: "data.text"},
		{name: "numeric text", doc: `[{"id": 1, "data": {"text": 3}}]`, index: 0, field: "data.text"},
		{name: "missing annotator", doc: `[{"id": 1, "data": {"text": "a"}, "annotations": [{"result": []}]}]`, index: 0, field: "annotations[0].completed_by"},
		{name: "fractional offset", doc: `[{"id": 1, "data": {"text": "abc"}, "annotations": [{"completed_by": 1, "result": [{"type": "labels", "value": {"start": 0.5, "end": 2, "labels": ["X"]}}]}]}]`, index: 0, field: "annotations[0].result[0].value"},
		{name: "value is not an object", doc: `[{"id": 1, "data": {"text": "a"}, "annotations": [{"completed_by": 1, "result": []}, {"completed_by": 2, "result": [{"type": "choices", "value": {}}, {"type": "choices", "value": "POSITIVE"}]}]}]`, index: 0, field: "annotations[1].result[1].value"},
	} {
		s.Run(tt.name, func() {
			me := s.malformed(tt.doc, Options{})
			s.Equal(tt.index, me.Index)
			s.Equal(tt.field, me.Field)
			s.Contains(me.Error(), "malformed export")
		})
	}
}

const mixedResultsDoc = `[
  {"id": 1, "data": {"text": "<p>great film</p>"}, "annotations": [
    {"completed_by": 11, "result": [
      {"type": "choices", "value": {"choices": ["POSITIVE"]}},
      {"type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 5, "hypertextlabels": ["ADJ"]}}
    ]},
    {"completed_by": 12, "result": [
      {"type": "choices", "value": {"choices": ["POSITIVE"]}},
      {"type": "labels", "value": {"start": 0.25, "end": 1.5, "labels": ["SPEECH"]}},
      {"type": "rating", "value": {"rating": 4}}
    ]}
  ]}
]`

func (s *LoaderSuite) TestIgnoresResultTypesOutsideMode() {
	exp := s.load(mixedResultsDoc, Options{Mode: ModeCategorical})

	s.Equal(ModeCategorical, exp.Mode)
	s.Require().Len(exp.Judgments, 2)
	for _, j := range exp.Judgments {
		s.Equal(Labelled, j.State)
		s.Equal("POSITIVE", j.Label)
	}
	s.Empty(exp.Warnings)

	auto := s.load(mixedResultsDoc, Options{})
	s.Equal(ModeCategorical, auto.Mode)
	s.Len(auto.Judgments, 2)
}

func (s *LoaderSuite) TestSpanModeReportsBadOffsetField() {
	me := s.malformed(mixedResultsDoc, Options{Mode: ModeSpan})
	s.Equal(0, me.Index)
	s.Equal("annotations[1].result[1].value", me.Field)
	s.Contains(me.Error(), "not an integer")
}

func (s *LoaderSuite) TestSentenceModeNeedsParagraphs() {
	me := s.malformed(`[{"id": 1, "data": {"text": "a"}}]`, Options{Mode: ModeSentence})
	s.Equal("data.text", me.Field)
}

func (s *LoaderSuite) TestTooLarge() {
	me := s.malformed(categoricalDoc, Options{MaxBytes: 16})
	s.Equal(-1, me.Index)
	s.ErrorIs(me, ErrTooLarge)
}

func (s *LoaderSuite) TestAnnotationIDFallback() {
	exp := s.load(`[{"id": 1, "data": {"text": "a"}, "annotations": [{"id": 99, "result": [{"type": "choices", "value": {"choices": ["X"]}}]}]}]`, Options{})
	s.Equal("annotation-99", exp.Judgments[0].Annotator)
}

func (s *LoaderSuite) TestLoadFileMissing() {
	_, err := LoadFile("testdata/does-not-exist.json", Options{})
	s.Error(err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":               ModeAuto,
		"auto":           ModeAuto,
		"classification": ModeCategorical,
		"Categorical":    ModeCategorical,
		"paragraph":      ModeSentence,
		"sentence":       ModeSentence,
		"span":           ModeSpan,
		"ner":            ModeSpan,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("pairwise"); err == nil {
		t.Error("ParseMode(pairwise) should fail")
	}
}

func TestSortSpans(t *testing.T) {
	in := []Span{{5, 9, "B"}, {0, 4, "A"}, {5, 9, "A"}, {0, 4, "A"}}
	got := SortSpans(in)
	want := []Span{{0, 4, "A"}, {5, 9, "A"}, {5, 9, "B"}}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if in[0] != (Span{5, 9, "B"}) {
		t.Error("input was modified")
	}
}

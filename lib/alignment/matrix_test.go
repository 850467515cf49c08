package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
)

func items(ids ...string) []export.Item {
	out := make([]export.Item, len(ids))
	for i, id := range ids {
		out[i] = export.Item{ID: id, Index: i}
	}
	return out
}

func labelled(item, annotator, label string) export.Judgment {
	return export.Judgment{ItemID: item, Annotator: annotator, Label: label, Labels: []string{label}, State: export.Labelled}
}

func TestBuildCategorical(t *testing.T) {
	judgments := []export.Judgment{
		labelled("c", "zoe", "NEG"),
		labelled("c", "amy", "POS"),
		labelled("a", "amy", "POS"),
		labelled("a", "bob", "POS"),
		labelled("b", "bob", "NEG"),
		{ItemID: "b", Annotator: "amy", State: export.Missing},
		{ItemID: "d", Annotator: "amy", Labels: []string{"POS", "NEG"}, State: export.Ambiguous},
		labelled("d", "bob", "NEG"),
	}

	m := BuildCategorical(items("a", "b", "c", "d", "e"), judgments)

	require.Len(t, m.Units, 2)
	// export order, not judgment order
	assert.Equal(t, "a", m.Units[0].Item.ID)
	assert.Equal(t, "c", m.Units[1].Item.ID)
	assert.Equal(t, []string{"amy", "zoe"}, m.Units[1].Raters())
	assert.Equal(t, map[string]string{"amy": "POS", "bob": "POS"}, m.Units[0].Labels)

	assert.Equal(t, []string{"amy", "bob", "zoe"}, m.Annotators)
	assert.Equal(t, 3, m.Skipped)
	assert.Equal(t, 1, m.Missing)
	assert.Equal(t, 1, m.Ambiguous)
	assert.Equal(t, []string{"NEG", "POS"}, m.Labels())
	assert.False(t, m.Empty())
}

func TestBuildCategoricalSingleAnnotator(t *testing.T) {
	m := BuildCategorical(items("a"), []export.Judgment{labelled("a", "amy", "POS")})
	assert.True(t, m.Empty())
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, []string{"amy"}, m.Annotators)
}

func TestBuildSpans(t *testing.T) {
	metaphor := export.Span{Start: 0, End: 5, Label: "METAPHOR"}
	annotations := []export.SpanAnnotation{
		{ItemID: "1", Annotator: "bob", Spans: []export.Span{metaphor}},
		{ItemID: "1", Annotator: "amy"},
		{ItemID: "2", Annotator: "amy", Spans: []export.Span{metaphor}},
		{ItemID: "2", Annotator: "bob", Spans: []export.Span{metaphor}},
		{ItemID: "3", Annotator: "amy", Spans: []export.Span{metaphor}},
	}

	m := BuildSpans(items("1", "2", "3"), annotations, []string{"2"})

	require.Len(t, m.Units, 1)
	assert.Equal(t, "1", m.Units[0].Item.ID)
	assert.Equal(t, []string{"amy", "bob"}, m.Units[0].Raters())
	assert.Empty(t, m.Units[0].Spans["amy"])
	assert.Equal(t, 1, m.Invalid)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, []string{"amy", "bob"}, m.Annotators)
}

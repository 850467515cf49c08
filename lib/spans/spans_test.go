package spans

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/alignment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/metric"
)

func span(start, end int, label string) export.Span {
	return export.Span{Start: start, End: end, Label: label}
}

func TestCompare(t *testing.T) {
	reference := []export.Span{span(0, 5, "METAPHOR")}

	same := Compare([]export.Span{span(0, 5, "METAPHOR")}, reference)
	assert.Equal(t, metric.Of(1), same.F1)

	relabelled := Compare([]export.Span{span(0, 5, "IRONY")}, reference)
	assert.Equal(t, 0, relabelled.Matched)
	assert.Equal(t, metric.Of(0), relabelled.F1)
	assert.Equal(t, metric.Of(0), relabelled.Precision)
	assert.Equal(t, metric.Of(0), relabelled.Recall)

	shifted := Compare([]export.Span{span(0, 4, "METAPHOR")}, reference)
	assert.Equal(t, metric.Of(0), shifted.F1)
}

func TestCompareEmpty(t *testing.T) {
	both := Compare(nil, nil)
	assert.False(t, both.Precision.Defined)
	assert.False(t, both.Recall.Defined)
	assert.False(t, both.F1.Defined)

	oneSided := Compare(nil, []export.Span{span(1, 2, "X")})
	assert.False(t, oneSided.Precision.Defined)
	assert.Equal(t, metric.Of(0), oneSided.Recall)
	assert.Equal(t, metric.Of(0), oneSided.F1)
}

func TestComparePartial(t *testing.T) {
	a := []export.Span{span(0, 5, "X"), span(10, 12, "Y")}
	b := []export.Span{span(0, 5, "X"), span(20, 25, "Y"), span(30, 31, "Z")}

	s := Compare(a, b)
	assert.Equal(t, 1, s.Matched)
	assert.InDelta(t, 0.5, s.Precision.Value, 1e-9)
	assert.InDelta(t, 1.0/3.0, s.Recall.Value, 1e-9)
	assert.InDelta(t, 0.4, s.F1.Value, 1e-9)

	reverse := Compare(b, a)
	assert.Equal(t, s.F1, reverse.F1)
	assert.Equal(t, s.Precision, reverse.Recall)
}

func unit(id string, spans map[string][]export.Span) alignment.SpanUnit {
	return alignment.SpanUnit{Item: export.Item{ID: id}, Spans: spans}
}

func TestCompute(t *testing.T) {
	m := alignment.SpanMatrix{
		Units: []alignment.SpanUnit{
			unit("1", map[string][]export.Span{
				"amy": {span(0, 5, "METAPHOR")},
				"bob": {span(0, 5, "METAPHOR")},
				"cat": {span(0, 5, "IRONY")},
			}),
			unit("2", map[string][]export.Span{
				"amy": {span(3, 9, "IRONY")},
				"bob": {},
			}),
		},
		Annotators: []string{"amy", "bob", "cat"},
	}

	result := Compute(m)
	assert.False(t, result.NoComparableData)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	require.Len(t, first.Pairs, 3)
	assert.Equal(t, "amy", first.Pairs[0].A)
	assert.Equal(t, "bob", first.Pairs[0].B)
	assert.Equal(t, metric.Of(1), first.Pairs[0].F1)
	assert.Equal(t, metric.Of(0), first.Pairs[1].F1)
	assert.Equal(t, "cat", first.Pairs[2].B)
	assert.InDelta(t, 1.0/3.0, first.Score.F1.Value, 1e-9)

	second := result.Items[1]
	require.Len(t, second.Pairs, 1)
	assert.False(t, second.Pairs[0].Recall.Defined)
	assert.Equal(t, metric.Of(0), second.Pairs[0].F1)

	want := []PairScore{
		{A: "amy", B: "bob", Score: NewScore(1, 2, 1)},
		{A: "amy", B: "cat", Score: NewScore(0, 1, 1)},
		{A: "bob", B: "cat", Score: NewScore(0, 1, 1)},
	}
	if diff := cmp.Diff(want, result.Pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, NewScore(1, 4, 3), result.Aggregate)
	assert.InDelta(t, 2.0/7.0, result.Aggregate.F1.Value, 1e-9)

	require.Len(t, result.PerLabel, 2)
	assert.Equal(t, "IRONY", result.PerLabel[0].Label)
	assert.Equal(t, NewScore(0, 1, 2), result.PerLabel[0].Score)
	assert.Equal(t, "METAPHOR", result.PerLabel[1].Label)
	assert.Equal(t, NewScore(1, 3, 1), result.PerLabel[1].Score)
}

func TestComputeIdenticalAnnotators(t *testing.T) {
	spans := []export.Span{span(0, 5, "A"), span(2, 8, "B")}
	m := alignment.SpanMatrix{Units: []alignment.SpanUnit{
		unit("1", map[string][]export.Span{"amy": spans, "bob": spans}),
	}}
	result := Compute(m)
	assert.Equal(t, metric.Of(1), result.Aggregate.F1)
	assert.Equal(t, metric.Of(1), result.Aggregate.Precision)
	assert.Equal(t, metric.Of(1), result.Aggregate.Recall)
}

func TestComputeEmpty(t *testing.T) {
	result := Compute(alignment.SpanMatrix{})
	assert.True(t, result.NoComparableData)
	assert.Empty(t, result.Items)
	assert.False(t, result.Aggregate.F1.Defined)
}

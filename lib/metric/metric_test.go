package metric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, Undefined, Ratio(1, 0))
	assert.Equal(t, Undefined, Ratio(0, 0))
	assert.Equal(t, Metric{Value: 0, Defined: true}, Ratio(0, 3))
	assert.InDelta(t, 2.0/3.0, Ratio(2, 3).Value, 1e-12)
}

func TestOfRejectsNonFinite(t *testing.T) {
	assert.False(t, Of(math.NaN()).Defined)
	assert.False(t, Of(math.Inf(1)).Defined)
	assert.True(t, Of(0).Defined)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "undefined", Undefined.String())
	assert.Equal(t, "0.000", Of(0).String())
	assert.Equal(t, "0.667", Ratio(2, 3).String())
	assert.Equal(t, "1.00", Of(1).Format(2))
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}{A: Of(0.5), B: Undefined})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.5,"b":"undefined"}`, string(b))

	var got struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, Of(0.5), got.A)
	assert.Equal(t, Undefined, got.B)

	var bad Metric
	assert.Error(t, json.Unmarshal([]byte(`"zero"`), &bad))
}

package lib

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonLogFormatter(t *testing.T) {
	line := JsonLogFormatter(gin.LogFormatterParams{
		TimeStamp:    time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC),
		StatusCode:   400,
		Latency:      1500 * time.Microsecond,
		ClientIP:     "10.0.0.1",
		Method:       "POST",
		Path:         "/agreement",
		ErrorMessage: "malformed export",
		Keys:         map[string]interface{}{RequestIDKey: "abc"},
	})
	require.True(t, len(line) > 0 && line[len(line)-1] == '\n')

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &parsed))
	assert.Equal(t, "2022-03-01T12:00:00", parsed["time"])
	assert.Equal(t, float64(400), parsed["status"])
	assert.Equal(t, "1.5ms", parsed["latency"])
	assert.Equal(t, "/agreement", parsed["path"])
	assert.Equal(t, "malformed export", parsed["error"])
	assert.Equal(t, "abc", parsed[RequestIDKey])
}

func TestJsonLogFormatterNoKeys(t *testing.T) {
	line := JsonLogFormatter(gin.LogFormatterParams{StatusCode: 200, Path: "/healthz"})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &parsed))
	assert.NotContains(t, parsed, "error")
	assert.NotContains(t, parsed, "context")
	assert.NotContains(t, parsed, RequestIDKey)
}

package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mideind/ParsingTestPipe/evaluation"
)

func TestGenerateSchemaIsStrict(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema[evaluation.ErrorAnalysis]()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "summary")
	assert.Contains(t, props, "frequent_confusions")

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"summary", "frequent_confusions", "weak_sentences", "suggestions"}, required)
}

func TestRetryDelayClassifiesErrors(t *testing.T) {
	t.Parallel()

	wait, retry := retryDelay(errors.New("POST: 429 Too Many Requests"), 0)
	assert.True(t, retry)
	assert.Equal(t, rateLimitWaitTimes[0], wait)

	wait, retry = retryDelay(errors.New("500 Internal Server Error"), 1)
	assert.True(t, retry)
	assert.Equal(t, serverErrorWaitTimes[1], wait)

	_, retry = retryDelay(errors.New("401 unauthorized"), 0)
	assert.False(t, retry)
}

func TestBuildAnalysisInputRanksMismatches(t *testing.T) {
	t.Parallel()

	recall := 85.0
	r := &evaluation.ConsolidatedReport{
		Totals: []evaluation.TotalResult{{Suffix: ".dout", Files: 2, Sentences: 20, Recall: &recall}},
		Confusion: []evaluation.ConfusionEntry{
			{Gold: "NP", System: "NP", Count: 100},
			{Gold: "NP", System: "PP", Count: 3},
			{Gold: "ADVP", System: "_", Count: 7},
		},
		Files: []evaluation.FileReport{{
			Name: "greinar01.dout",
			Sentences: []evaluation.SentenceResult{
				{ID: "1", F1: 95, Warning: false},
				{ID: "2", F1: 10, Warning: true, OnlyGold: []string{"NP 0-2"}},
			},
		}},
	}

	in := BuildAnalysisInput(r, 1, 5)
	assert.Contains(t, in, ".dout files=2 sentences=20 recall=85.00 precision=N/A")
	assert.Contains(t, in, "ADVP _ 7")
	assert.NotContains(t, in, "NP PP 3", "only the top mismatch fits")
	assert.NotContains(t, in, "NP NP 100", "matching pairs are not confusions")
	assert.Contains(t, in, "greinar01.dout 2 10.00 NP 0-2 | ")
	assert.Equal(t, 1, strings.Count(in, "greinar01.dout"))
}

func TestNewOpenAIAnalystNeedsKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIAnalyst(" ", "")
	require.Error(t, err)

	a, err := NewOpenAIAnalyst("sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalysisModel, a.Model)
}

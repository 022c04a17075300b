package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureJSON = `{
  "scores": [
    {"subject": "math", "score": 55, "recorded_at": "2024-03-04T00:00:00Z"},
    {"subject": "math", "score": 58, "recorded_at": "2024-03-11T00:00:00Z"},
    {"subject": "math", "score": 61, "recorded_at": "2024-03-18T00:00:00Z"},
    {"subject": "science", "score": 40, "recorded_at": "2024-03-04T00:00:00Z"}
  ],
  "plans": [
    {"subject": "math", "content_id": "c-1", "content_type": "book", "scheduled_date": "2024-03-05T00:00:00Z", "status": "completed", "actual_duration": 30}
  ],
  "catalog": [
    {"id": "c-1", "title": "Algebra", "subject": "math", "content_type": "book", "difficulty": "medium"},
    {"id": "c-2", "title": "Cells", "subject": "science", "content_type": "video", "difficulty": "easy"},
    {"id": "c-3", "title": "Optics", "subject": "science", "content_type": "lecture", "difficulty": "hard"}
  ],
  "study_records": [
    {"student_id": "s1", "content_id": "c-1"},
    {"student_id": "s1", "content_id": "c-2"},
    {"student_id": "s2", "content_id": "c-1"},
    {"student_id": "s2", "content_id": "c-2"},
    {"student_id": "s2", "content_id": "c-3"}
  ]
}`

func runCLI(t *testing.T, args ...string) (map[string]interface{}, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(fixtureJSON))
	root.SetArgs(append(args, "--fixture", "-"))

	if err := root.Execute(); err != nil {
		return nil, err
	}
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return decoded, nil
}

func TestPredictCommand(t *testing.T) {
	out, err := runCLI(t, "predict", "--subject", "math", "--days-ahead", "30")
	require.NoError(t, err)
	assert.Equal(t, "heuristic", out["estimator"])
	assert.Equal(t, "improving", out["trend"])
	assert.Equal(t, 61.0, out["current_score"])
}

func TestPredictCommandValidation(t *testing.T) {
	_, err := runCLI(t, "predict")
	assert.Error(t, err)

	_, err = runCLI(t, "predict", "--subject", "math", "--days-ahead", "-1")
	assert.Error(t, err)
}

func TestRecommendCommand(t *testing.T) {
	out, err := runCLI(t, "recommend", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "weak_priority", out["strategy"])
	assert.Equal(t, []interface{}{"science"}, out["weak_subjects"])
	assert.Len(t, out["items"], 2)
}

func TestPeersCommand(t *testing.T) {
	out, err := runCLI(t, "peers", "--student", "s1")
	require.NoError(t, err)

	peers := out["similar_students"].([]interface{})
	require.Len(t, peers, 1)
	items := out["items"].([]interface{})
	require.Len(t, items, 1)
	content := items[0].(map[string]interface{})["content"].(map[string]interface{})
	assert.Equal(t, "c-3", content["id"])
}

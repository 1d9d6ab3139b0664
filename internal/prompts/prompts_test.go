package prompts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DeafMist/trip-planner/internal/prompts"
	"github.com/stretchr/testify/require"
)

func TestDefaultRendersDeconstruct(t *testing.T) {
	out, err := prompts.Default().Render(prompts.Deconstruct, map[string]string{
		"City":    "Kyoto",
		"Request": "quiet art and tea",
	})
	require.NoError(t, err)
	require.Contains(t, out, "trip to Kyoto")
	require.Contains(t, out, `"quiet art and tea"`)
	require.Contains(t, out, "search_keywords")
}

func TestDefaultRendersSynthesize(t *testing.T) {
	out, err := prompts.Default().Render(prompts.Synthesize, map[string]string{
		"City":       "Kyoto",
		"Request":    "tea",
		"Candidates": `[{"name":"Ryokan A"}]`,
		"Currency":   "JPY",
	})
	require.NoError(t, err)
	require.Contains(t, out, `[{"name":"Ryokan A"}]`)
	require.Contains(t, out, "EXACTLY ONE place that is a lodging")
	require.Contains(t, out, "integer amount in JPY")
}

func TestRenderUnknownAndMissingKey(t *testing.T) {
	set := prompts.Default()
	_, err := set.Render("nope", nil)
	require.Error(t, err)

	_, err = set.Render(prompts.Quiz, map[string]string{})
	require.Error(t, err)
}

func TestLoadOverridesSingleTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quiz: \"Quiz about {{.Country}}\"\n"), 0o600))

	set, err := prompts.Load(path)
	require.NoError(t, err)

	out, err := set.Render(prompts.Quiz, map[string]string{"Country": "Peru"})
	require.NoError(t, err)
	require.Equal(t, "Quiz about Peru", out)

	_, err = set.Render(prompts.Deconstruct, map[string]string{"City": "Lima", "Request": "food"})
	require.NoError(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := prompts.Parse([]byte("quiz: [unterminated"))
	require.Error(t, err)
}

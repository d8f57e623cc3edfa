package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

func inferred(t *testing.T, raw string) (*dataset.Dataset, *schema.Schema) {
	t.Helper()
	ds, err := dataset.DecodeCSV([]byte(raw))
	require.NoError(t, err)
	ds.ID = "test_dataset"
	ds.Name = "test.csv"
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	return ds, schema.Infer(ds, now)
}

func ids(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestCompass_Recommend_RuleBased(t *testing.T) {
	t.Parallel()

	t.Run("sharp decline triggers awareness campaign", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "year,count\n2020,100\n2021,110\n2022,80\n")
		recs := RuleBased(ds, sc)
		require.Contains(t, ids(recs), "awareness-campaign")
		require.Equal(t, "outreach", recs[0].Category)
		require.False(t, recs[0].AIGenerated)
	})

	t.Run("rapid growth triggers infrastructure scaling", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "year,count\n2020,100\n2021,100\n2022,140\n")
		recs := RuleBased(ds, sc)
		require.Contains(t, ids(recs), "infrastructure-scaling")
	})

	t.Run("steady growth triggers optimization", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "year,count\n2020,100\n2021,100\n2022,110\n")
		recs := RuleBased(ds, sc)
		require.Contains(t, ids(recs), "optimization")
	})

	t.Run("regional disparity triggers intervention", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "state,count\nMH,100\nKA,30\nTN,40\n")
		recs := RuleBased(ds, sc)
		require.Contains(t, ids(recs), "regional-intervention")
		require.Contains(t, recs[0].Trigger, "variance ratio")
	})

	t.Run("quiet data falls back to monitoring", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "year,count\n2020,100\n2021,102\n2022,103\n")
		recs := RuleBased(ds, sc)
		require.Len(t, recs, 1)
		require.Equal(t, "continue-monitoring", recs[0].ID)
	})

	t.Run("balanced regions stay quiet", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "state,count\nMH,100\nKA,90\nTN,95\n")
		recs := RuleBased(ds, sc)
		require.Equal(t, []string{"continue-monitoring"}, ids(recs))
	})

	t.Run("never returns empty", func(t *testing.T) {
		t.Parallel()
		ds, sc := inferred(t, "col1,col2\nx,y\na,b\n")
		recs := RuleBased(ds, sc)
		require.NotEmpty(t, recs)
	})
}

func TestCompass_Recommend_ParseRecommendations(t *testing.T) {
	t.Parallel()

	payload := `[{"id":"r1","title":"T","description":"D","trigger":"tr","expectedImpact":"i","confidence":"high","confidenceReason":"cr","category":"operations"}]`

	t.Run("bare json", func(t *testing.T) {
		t.Parallel()
		recs, err := parseRecommendations(payload)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		require.Equal(t, "r1", recs[0].ID)
		require.Equal(t, "operations", recs[0].Category)
	})

	t.Run("fenced json", func(t *testing.T) {
		t.Parallel()
		recs, err := parseRecommendations("```json\n" + payload + "\n```")
		require.NoError(t, err)
		require.Len(t, recs, 1)
	})

	t.Run("unlabelled fence", func(t *testing.T) {
		t.Parallel()
		recs, err := parseRecommendations("```\n" + payload + "\n```")
		require.NoError(t, err)
		require.Len(t, recs, 1)
	})

	t.Run("prose is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parseRecommendations("Here are my recommendations: do better.")
		require.Error(t, err)
	})
}

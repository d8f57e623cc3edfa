package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/insightlabs/compass/pkg/chat"
	"github.com/insightlabs/compass/pkg/recommend"
	"github.com/insightlabs/compass/pkg/schema"
	"github.com/insightlabs/compass/pkg/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tiered, err := store.NewTiered(store.TieredConfig{Logger: log, Memory: store.NewMemory()})
	require.NoError(t, err)
	recommender, err := recommend.NewEngine(recommend.Config{Logger: log})
	require.NoError(t, err)
	chatEngine, err := chat.NewEngine(chat.Config{Logger: log})
	require.NoError(t, err)

	svc, err := New(Config{
		Logger:      log,
		Store:       tiered,
		Recommender: recommender,
		Chat:        chatEngine,
		Clock:       clockwork.NewFakeClockAt(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return svc
}

const seriesCSV = `year,state,enrollment
2019,MH,10
2020,MH,12
2021,MH,9
2022,MH,15
2023,MH,20
2024,MH,18
2025,MH,25
`

func TestCompass_Service_Ingest(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "State Enrollment 2024.csv", []byte(seriesCSV))
	require.NoError(t, err)

	require.Equal(t, "state_enrollment_2024", res.DatasetID)
	require.Equal(t, 7, res.RowCount)
	require.Equal(t, 3, res.ColumnCount)
	require.Equal(t, []string{"year", "state", "enrollment"}, res.Columns)

	sc, err := svc.Schema(context.Background(), res.DatasetID)
	require.NoError(t, err)
	require.Equal(t, schema.TimeSeries, sc.DataType)
	require.True(t, sc.CanPredict)
}

func TestCompass_Service_Ingest_BadUpload(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Ingest(context.Background(), "empty.csv", []byte("a,b\n"))
	require.Error(t, err)
	require.ErrorContains(t, err, "empty.csv")
}

func TestCompass_Service_Ingest_Reupload(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Ingest(context.Background(), "data.csv", []byte("year,count\n2020,1\n2021,2\n"))
	require.NoError(t, err)

	res, err := svc.Ingest(context.Background(), "data.csv", []byte("year,count\n2020,1\n2021,2\n2022,3\n"))
	require.NoError(t, err)
	require.Equal(t, "data", res.DatasetID)

	sc, err := svc.Schema(context.Background(), "data")
	require.NoError(t, err)
	require.Equal(t, 3, sc.RowCount)
}

func TestCompass_Service_Ingest_SameContentSameSchema(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	res1, err := svc.Ingest(ctx, "e.csv", []byte(seriesCSV))
	require.NoError(t, err)
	sc1, err := svc.Schema(ctx, res1.DatasetID)
	require.NoError(t, err)

	// Re-ingesting identical bytes under the same name must derive an
	// identical schema.
	res2, err := svc.Ingest(ctx, "e.csv", []byte(seriesCSV))
	require.NoError(t, err)
	require.Equal(t, res1, res2)

	sc2, err := svc.Schema(ctx, res2.DatasetID)
	require.NoError(t, err)
	require.Equal(t, sc1, sc2)
}

func TestCompass_Service_UnknownDataset(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Schema(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Stats(ctx, "ghost", "")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Predict(ctx, "ghost", "", 0)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Chat(ctx, "ghost", "hi")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompass_Service_Stats(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background(), res.DatasetID, "enrollment")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "enrollment", stats[0].Column)
	require.Equal(t, 7, stats[0].DataPoints)
}

func TestCompass_Service_Trends(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
	require.NoError(t, err)

	report, err := svc.Trends(context.Background(), res.DatasetID, "", "")
	require.NoError(t, err)
	require.Equal(t, "enrollment", report.Metric)
	require.Len(t, report.Data, 7)
}

func TestCompass_Service_Predict(t *testing.T) {
	t.Parallel()

	t.Run("forecastable series", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
		require.NoError(t, err)

		report, err := svc.Predict(context.Background(), res.DatasetID, "", 0)
		require.NoError(t, err)

		require.True(t, report.CanPredict)
		require.Equal(t, "prediction enabled", report.Reason)
		require.NotNil(t, report.R2Score)
		require.NotNil(t, report.Slope)
		require.Greater(t, *report.Slope, 0.0)
		require.Len(t, report.Historical, 7)
		require.Len(t, report.Predictions, 6)
	})

	t.Run("custom horizon", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
		require.NoError(t, err)

		report, err := svc.Predict(context.Background(), res.DatasetID, "", 2)
		require.NoError(t, err)
		require.Len(t, report.Predictions, 2)
	})

	t.Run("short series is refused with reason", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		res, err := svc.Ingest(context.Background(), "short.csv", []byte("year,count\n2023,5\n2024,7\n"))
		require.NoError(t, err)

		report, err := svc.Predict(context.Background(), res.DatasetID, "", 0)
		require.NoError(t, err)

		require.False(t, report.CanPredict)
		require.Equal(t, "requires at least 6 distinct time points (found 2)", report.Reason)
		require.Nil(t, report.R2Score)
		require.Empty(t, report.Historical)
		require.Empty(t, report.Predictions)
	})
}

func TestCompass_Service_Recommendations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
	require.NoError(t, err)

	// No AI client is configured, so the rule engine answers.
	recs, err := svc.Recommendations(context.Background(), res.DatasetID)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		require.False(t, r.AIGenerated)
	}
}

func TestCompass_Service_Chat(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
	require.NoError(t, err)

	// Without an AI client the reply is the fixed apology, never an error.
	reply, err := svc.Chat(context.Background(), res.DatasetID, "What is the trend?")
	require.NoError(t, err)
	require.NotEmpty(t, reply)
}

func TestCompass_Service_Regions(t *testing.T) {
	t.Parallel()

	t.Run("sorted distinct values", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		res, err := svc.Ingest(context.Background(), "r.csv", []byte("state,count\nMH,1\nKA,2\nMH,3\nTN,4\n"))
		require.NoError(t, err)

		regions, err := svc.Regions(context.Background(), res.DatasetID)
		require.NoError(t, err)
		require.Equal(t, []string{"KA", "MH", "TN"}, regions)
	})

	t.Run("no region column", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		res, err := svc.Ingest(context.Background(), "n.csv", []byte("year,count\n2020,1\n2021,2\n"))
		require.NoError(t, err)

		regions, err := svc.Regions(context.Background(), res.DatasetID)
		require.NoError(t, err)
		require.Empty(t, regions)
	})
}

func TestCompass_Service_Preview(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), "e.csv", []byte(seriesCSV))
	require.NoError(t, err)

	t.Run("limited", func(t *testing.T) {
		preview, err := svc.Preview(context.Background(), res.DatasetID, 3)
		require.NoError(t, err)
		require.Len(t, preview.Rows, 3)
		require.Equal(t, 7, preview.TotalRows)
		require.Equal(t, 3, preview.PreviewRows)
	})

	t.Run("default limit covers small datasets", func(t *testing.T) {
		preview, err := svc.Preview(context.Background(), res.DatasetID, 0)
		require.NoError(t, err)
		require.Len(t, preview.Rows, 7)
	})
}

func TestCompass_Service_History(t *testing.T) {
	t.Parallel()

	// Without a durable store history is empty, not an error.
	svc := newTestService(t)
	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

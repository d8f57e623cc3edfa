package forecast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompass_Forecast_Linear_PerfectLine(t *testing.T) {
	t.Parallel()

	res, err := Linear([]float64{3, 5, 7, 9, 11, 13}, 3)
	require.NoError(t, err)

	require.InDelta(t, 2, res.Slope, 1e-9)
	require.InDelta(t, 1, res.Intercept, 1e-9)
	require.InDelta(t, 1, res.R2, 1e-9)

	require.Len(t, res.Predictions, 3)
	require.Equal(t, "Forecast 1", res.Predictions[0].Period)
	require.InDelta(t, 15, res.Predictions[0].Value, 1e-9)
	require.InDelta(t, 17, res.Predictions[1].Value, 1e-9)
	require.InDelta(t, 19, res.Predictions[2].Value, 1e-9)

	// Zero residuals collapse the bounds onto the projection.
	for _, p := range res.Predictions {
		require.InDelta(t, p.Value, p.LowerBound, 1e-9)
		require.InDelta(t, p.Value, p.UpperBound, 1e-9)
	}
}

func TestCompass_Forecast_Linear_WideningMargins(t *testing.T) {
	t.Parallel()

	res, err := Linear([]float64{10, 12, 9, 15, 20, 18, 25}, 4)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 4)

	prev := 0.0
	for i, p := range res.Predictions {
		margin := p.UpperBound - p.LowerBound
		require.Greater(t, margin, 0.0)
		if i > 0 {
			require.Greater(t, margin, prev, "band must widen with forecast distance")
		}
		prev = margin
		// Bands stay centered on the projection.
		require.InDelta(t, p.Value, (p.LowerBound+p.UpperBound)/2, 0.011)
	}
}

func TestCompass_Forecast_Linear_ConstantSeries(t *testing.T) {
	t.Parallel()

	res, err := Linear([]float64{7, 7, 7, 7}, 2)
	require.NoError(t, err)

	require.Zero(t, res.Slope)
	require.InDelta(t, 7, res.Intercept, 1e-9)
	// A flat series has no variance to explain; the fit is declared perfect.
	require.InDelta(t, 1, res.R2, 1e-9)
	require.InDelta(t, 7, res.Predictions[0].Value, 1e-9)
}

func TestCompass_Forecast_Linear_InsufficientData(t *testing.T) {
	t.Parallel()

	_, err := Linear([]float64{42}, 6)
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = Linear(nil, 6)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestCompass_Forecast_Linear_ZeroHorizon(t *testing.T) {
	t.Parallel()

	res, err := Linear([]float64{1, 2, 3}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Predictions)
	require.InDelta(t, 1, res.Slope, 1e-9)
}

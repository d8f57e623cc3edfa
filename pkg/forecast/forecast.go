// Package forecast fits an ordinary least-squares line over an aggregated
// series and projects it forward with widening uncertainty bands.
//
// The independent variable is the 1-based position in the already
// time-sorted series, not the raw date. Callers must gate on the schema's
// CanPredict flag; this package assumes the series is forecastable.
package forecast

import (
	"errors"
	"fmt"
	"math"
)

// DefaultHorizon is the number of future periods projected when the caller
// does not ask for a specific horizon.
const DefaultHorizon = 6

// ErrInsufficientData is returned when fewer than two observations are
// available, leaving the regression underdetermined.
var ErrInsufficientData = errors.New("not enough observations to fit a regression")

// PredictionPoint is one projected future period. Labels are ordinal, not
// calendar-aware.
type PredictionPoint struct {
	Period     string  `json:"period"`
	Value      float64 `json:"value"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
}

// Result holds the fitted line and its projections. R2, Slope, and
// Intercept are rounded to 4 decimals; prediction values and bounds to 2.
type Result struct {
	R2          float64           `json:"r2"`
	Slope       float64           `json:"slope"`
	Intercept   float64           `json:"intercept"`
	Predictions []PredictionPoint `json:"predictions"`
}

// Linear fits y = slope*x + intercept over x = 1..n and projects horizon
// future points at x = n+1..n+horizon. The uncertainty margin widens
// linearly with forecast distance: stdErr * (1.5 + 0.1*step), where stdErr
// is the in-sample residual standard deviation and step is the zero-based
// forecast offset.
func Linear(values []float64, horizon int) (*Result, error) {
	n := len(values)
	if n < 2 {
		return nil, ErrInsufficientData
	}
	if horizon < 0 {
		horizon = 0
	}

	// x̄ for x = 1..n, and the usual least-squares moments.
	xMean := float64(n+1) / 2
	yMean := 0.0
	for _, y := range values {
		yMean += y
	}
	yMean /= float64(n)

	sxx, sxy := 0.0, 0.0
	for i, y := range values {
		dx := float64(i+1) - xMean
		sxx += dx * dx
		sxy += dx * (y - yMean)
	}
	slope := sxy / sxx
	intercept := yMean - slope*xMean

	// R² and the residual spread used for the interval width. np.std-style
	// population deviation, matching the source system's interval math.
	ssRes, ssTot := 0.0, 0.0
	for i, y := range values {
		fit := slope*float64(i+1) + intercept
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - yMean) * (y - yMean)
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	stdErr := math.Sqrt(ssRes / float64(n))

	predictions := make([]PredictionPoint, 0, horizon)
	for step := 0; step < horizon; step++ {
		x := float64(n + step + 1)
		center := slope*x + intercept
		margin := stdErr * (1.5 + 0.1*float64(step))
		predictions = append(predictions, PredictionPoint{
			Period:     fmt.Sprintf("Forecast %d", step+1),
			Value:      round2(center),
			LowerBound: round2(center - margin),
			UpperBound: round2(center + margin),
		})
	}

	return &Result{
		R2:          round4(r2),
		Slope:       round4(slope),
		Intercept:   round4(intercept),
		Predictions: predictions,
	}, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func round4(f float64) float64 { return math.Round(f*10000) / 10000 }

package recommend

import (
	"fmt"

	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/schema"
)

// Growth-rate thresholds for the rule engine, in percent.
const (
	decliningGrowthThreshold = -10.0
	rapidGrowthThreshold     = 25.0
	steadyGrowthFloor        = 5.0
)

// regionalDisparityRatio triggers the equity rule when the best-performing
// region's mean exceeds the worst's by this factor.
const regionalDisparityRatio = 2.0

// RuleBased generates deterministic recommendations from threshold rules on
// the most recent growth rate and the regional variance ratio. It always
// returns at least one entry.
func RuleBased(ds *dataset.Dataset, sc *schema.Schema) []Recommendation {
	var recs []Recommendation

	if sc.TimeColumn != "" && len(sc.MetricColumns) > 0 {
		recs = append(recs, growthRules(ds, sc.MetricColumns[0])...)
	}
	if sc.RegionColumn != "" && len(sc.MetricColumns) > 0 {
		recs = append(recs, disparityRules(ds, sc.RegionColumn, sc.MetricColumns[0])...)
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			ID:               "continue-monitoring",
			Title:            "Continue Current Strategy",
			Description:      "Current metrics are within expected ranges. Maintain monitoring and existing programs.",
			Trigger:          "All metrics within normal parameters",
			ExpectedImpact:   "Sustained performance with minimal intervention",
			Confidence:       "medium",
			ConfidenceReason: "Stable patterns but recommend continued observation",
			Category:         "monitoring",
		})
	}
	return recs
}

func growthRules(ds *dataset.Dataset, metric string) []Recommendation {
	values := make([]float64, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if v, ok := row[metric].AsNumber(); ok {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil
	}

	prev, last := values[len(values)-2], values[len(values)-1]
	recentGrowth := 0.0
	if prev != 0 {
		recentGrowth = (last - prev) / prev * 100
	}

	var recs []Recommendation
	if recentGrowth < decliningGrowthThreshold {
		recs = append(recs, Recommendation{
			ID:               "awareness-campaign",
			Title:            "Launch Awareness Campaign",
			Description:      "Recent decline in metrics suggests need for public outreach and awareness programs.",
			Trigger:          fmt.Sprintf("Recent growth rate: %.1f%% (below %.0f%% threshold)", recentGrowth, decliningGrowthThreshold),
			ExpectedImpact:   "10-15% improvement in adoption rates within 6 months",
			Confidence:       "high",
			ConfidenceReason: "Strong correlation between awareness campaigns and adoption in historical data",
			Category:         "outreach",
		})
	}
	if recentGrowth > rapidGrowthThreshold {
		recs = append(recs, Recommendation{
			ID:               "infrastructure-scaling",
			Title:            "Scale Infrastructure Capacity",
			Description:      "Rapid growth in demand requires proactive infrastructure expansion.",
			Trigger:          fmt.Sprintf("Growth rate: %.1f%% (above %.0f%% threshold)", recentGrowth, rapidGrowthThreshold),
			ExpectedImpact:   "Prevent service disruptions, maintain 99.9% uptime",
			Confidence:       "high",
			ConfidenceReason: "Clear trend with high data completeness",
			Category:         "infrastructure",
		})
	}
	if recentGrowth >= steadyGrowthFloor && recentGrowth <= rapidGrowthThreshold {
		recs = append(recs, Recommendation{
			ID:               "optimization",
			Title:            "Optimize Current Operations",
			Description:      "Steady growth allows focus on process optimization and efficiency improvements.",
			Trigger:          fmt.Sprintf("Stable growth: %.1f%% within normal range", recentGrowth),
			ExpectedImpact:   "15-20% cost reduction through efficiency gains",
			Confidence:       "medium",
			ConfidenceReason: "Trend is stable but external factors may influence",
			Category:         "operations",
		})
	}
	return recs
}

func disparityRules(ds *dataset.Dataset, regionCol, metric string) []Recommendation {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range ds.Rows {
		name := row[regionCol]
		if name.IsNull() {
			continue
		}
		v, ok := row[metric].AsNumber()
		if !ok {
			continue
		}
		label := name.Label()
		sums[label] += v
		counts[label]++
	}
	if len(sums) < 2 {
		return nil
	}

	minMean, maxMean := 0.0, 0.0
	first := true
	for label, sum := range sums {
		m := sum / float64(counts[label])
		if first {
			minMean, maxMean = m, m
			first = false
			continue
		}
		if m < minMean {
			minMean = m
		}
		if m > maxMean {
			maxMean = m
		}
	}

	if minMean <= 0 || maxMean/minMean <= regionalDisparityRatio {
		return nil
	}
	return []Recommendation{{
		ID:               "regional-intervention",
		Title:            "Targeted Regional Intervention",
		Description:      "Significant disparity between regions requires targeted support for underperforming areas.",
		Trigger:          fmt.Sprintf("Regional variance ratio: %.1fx (above %.0fx threshold)", maxMean/minMean, regionalDisparityRatio),
		ExpectedImpact:   "Reduce regional disparity by 30% within 12 months",
		Confidence:       "high",
		ConfidenceReason: "Clear regional patterns with sufficient data points",
		Category:         "equity",
	}}
}

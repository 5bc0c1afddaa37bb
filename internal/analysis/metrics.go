package analysis

import "strings"

// Goal statuses.
const (
	GoalAchieved    = "achieved"
	GoalNotAchieved = "not achieved"
)

// KeyMetrics is the marketing metrics block of a campaign report.
type KeyMetrics struct {
	CTR          Ratio `json:"ctr"`
	CPC          Ratio `json:"cpc"`
	CPM          Ratio `json:"cpm"`
	ClickToVisit Ratio `json:"click_to_visit"`
}

// ComputeKeyMetrics copies the metrics block out of totals, so the block
// always agrees with the totals printed next to it.
func ComputeKeyMetrics(t Totals) KeyMetrics {
	return KeyMetrics{
		CTR:          t.CTR,
		CPC:          t.CPC,
		CPM:          t.CPM,
		ClickToVisit: t.ClickToVisit,
	}
}

// Goal is a planned value for one metric. Metric is one of ctr, cpc, cpm,
// conversion, impressions, clicks, cost or visits.
type Goal struct {
	Metric      string  `json:"metric"`
	Plan        float64 `json:"plan"`
	Period      string  `json:"period,omitempty"`
	Description string  `json:"description,omitempty"`
}

// GoalStatus compares one goal with the actual value.
type GoalStatus struct {
	Goal
	Actual      Ratio  `json:"actual"`
	Achievement Ratio  `json:"achievement"`
	Status      string `json:"status"`
}

// lowerIsBetter lists cost metrics, where staying under plan achieves the goal.
var lowerIsBetter = map[string]bool{"cpc": true, "cpm": true, "cost": true}

// CompareGoals evaluates goals against the metrics and totals. Goals on an
// unknown metric or with an undefined actual value are reported as not
// achieved with an undefined achievement.
func CompareGoals(m KeyMetrics, t Totals, goals []Goal) []GoalStatus {
	if len(goals) == 0 {
		return nil
	}
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		metric := strings.ToLower(strings.TrimSpace(g.Metric))
		actual := goalActual(metric, m, t)

		st := GoalStatus{Goal: g, Actual: actual, Status: GoalNotAchieved}
		if actual.Defined && g.Plan > 0 {
			st.Achievement = NewRatio(actual.Value, g.Plan, 100)
			met := actual.Value >= g.Plan
			if lowerIsBetter[metric] {
				met = actual.Value <= g.Plan
			}
			if met {
				st.Status = GoalAchieved
			}
		}
		out = append(out, st)
	}
	return out
}

func goalActual(metric string, m KeyMetrics, t Totals) Ratio {
	switch metric {
	case "ctr":
		return m.CTR
	case "cpc":
		return m.CPC
	case "cpm":
		return m.CPM
	case "conversion", "click_to_visit":
		return m.ClickToVisit
	case "impressions":
		return Ratio{Value: t.Impressions, Defined: true}
	case "clicks":
		return Ratio{Value: t.Clicks, Defined: true}
	case "cost":
		return Ratio{Value: t.Cost, Defined: true}
	case "visits":
		return Ratio{Value: t.Visits, Defined: true}
	}
	return Ratio{}
}

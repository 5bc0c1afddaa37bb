package analysis

import "fmt"

// Campaign thresholds. CTR values are percent, CPC values are currency units.
const (
	ctrHigh      = 2.0
	ctrLow       = 0.5
	ctrRecommend = 1.0

	cpcHigh      = 200.0
	cpcLow       = 50.0
	cpcRecommend = 150.0

	// visitsPerClick is the click-to-visit factor considered a strong result.
	visitsPerClick = 2.0
)

// Per-row assessment bands.
const (
	BandHigh       = "high"
	BandMedium     = "medium"
	BandLow        = "low"
	BandEconomical = "economical"
	BandExpensive  = "expensive"
)

func assess(t Totals) Assessment {
	var a Assessment
	if t.CTR.Defined {
		switch {
		case t.CTR.Value > ctrHigh:
			a.CTR = BandHigh
		case t.CTR.Value > ctrLow:
			a.CTR = BandMedium
		default:
			a.CTR = BandLow
		}
	}
	if t.CPC.Defined {
		switch {
		case t.CPC.Value < cpcLow:
			a.CPC = BandEconomical
		case t.CPC.Value < cpcHigh:
			a.CPC = BandMedium
		default:
			a.CPC = BandExpensive
		}
	}
	return a
}

func campaignInsights(t Totals, currency string) []string {
	var out []string
	if t.CTR.Defined {
		if t.CTR.Value > ctrHigh {
			out = append(out, fmt.Sprintf("High click-through rate (%.2f%%): the ads resonate with the audience.", t.CTR.Value))
		} else if t.CTR.Value < ctrLow {
			out = append(out, fmt.Sprintf("Low click-through rate (%.2f%%): creatives or targeting need optimization.", t.CTR.Value))
		}
	}
	if t.CPC.Defined {
		if t.CPC.Value > cpcHigh {
			out = append(out, fmt.Sprintf("High cost per click (%.2f %s).", t.CPC.Value, currency))
		} else if t.CPC.Value < cpcLow {
			out = append(out, fmt.Sprintf("Economical cost per click (%.2f %s).", t.CPC.Value, currency))
		}
	}
	if t.Clicks > 0 && t.Visits > visitsPerClick*t.Clicks {
		out = append(out, "Visits exceed clicks more than twofold: click-to-visit conversion is strong.")
	}
	return out
}

func campaignRecommendations(t Totals) []string {
	var out []string
	if t.CTR.Defined && t.CTR.Value < ctrRecommend {
		out = append(out, "Refresh the creatives and refine targeting to lift CTR above 1%.")
	}
	if t.CPC.Defined && t.CPC.Value > cpcRecommend {
		out = append(out, "Review bids and the keyword strategy to bring CPC down.")
	}
	if t.HasVolume() && t.Visits < t.Clicks {
		out = append(out, "Visits trail clicks: check landing page speed and traffic quality.")
	}
	return out
}

// stageRule is a threshold rule over one funnel conversion.
type stageRule struct {
	ratio     func(FunnelStages) Ratio
	high      float64
	low       float64
	recommend float64
	highMsg   string
	lowMsg    string
	recMsg    string
}

var funnelRules = []stageRule{
	{
		ratio:     func(f FunnelStages) Ratio { return f.ToSubmits },
		high:      20,
		low:       5,
		recommend: 10,
		highMsg:   "Visit-to-submission conversion is strong (%.2f%%).",
		lowMsg:    "Visit-to-submission conversion is weak (%.2f%%).",
		recMsg:    "Simplify the application form and strengthen the landing page call to action.",
	},
	{
		ratio:     func(f FunnelStages) Ratio { return f.ToAccounts },
		high:      30,
		low:       10,
		recommend: 20,
		highMsg:   "Submission-to-account conversion is strong (%.2f%%).",
		lowMsg:    "Submission-to-account conversion is weak (%.2f%%).",
		recMsg:    "Speed up application processing and follow up on incomplete submissions.",
	},
	{
		ratio:     func(f FunnelStages) Ratio { return f.ToQuality },
		high:      50,
		low:       20,
		recommend: 30,
		highMsg:   "Most opened accounts become quality leads (%.2f%%).",
		lowMsg:    "Few opened accounts become quality leads (%.2f%%).",
		recMsg:    "Tighten targeting toward the audience that produces quality leads.",
	},
}

func funnelInsights(f FunnelStages) (insights, recommendations []string) {
	for _, r := range funnelRules {
		v := r.ratio(f)
		if !v.Defined {
			continue
		}
		if v.Value > r.high {
			insights = append(insights, fmt.Sprintf(r.highMsg, v.Value))
		} else if v.Value < r.low {
			insights = append(insights, fmt.Sprintf(r.lowMsg, v.Value))
		}
		if v.Value < r.recommend {
			recommendations = append(recommendations, r.recMsg)
		}
	}
	return insights, recommendations
}

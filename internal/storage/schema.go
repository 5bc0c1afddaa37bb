package storage

// Campaign metrics table. Column names must match the store exactly.
const (
	TableCampaignMetrics = "campaign_metrics"

	ColDate         = "date"
	ColCampaignID   = "campaign_id"
	ColCampaignName = "campaign_name"
	ColCampaign     = "campaign"
	ColPlatform     = "platform"
	ColImpressions  = "impressions"
	ColClicks       = "clicks"
	ColCost         = "cost_before_vat"
	ColVisits       = "visits"
)

// Funnel/UTM table.
const (
	TableFunnel = "funnel_data"

	ColFunnelDate       = "date"
	ColTrafficSource    = "traffic_source"
	ColUTMCampaign      = "utm_campaign"
	ColUTMSource        = "utm_source"
	ColUTMMedium        = "utm_medium"
	ColUTMContent       = "utm_content"
	ColUTMTerm          = "utm_term"
	ColVisitID          = "visit_id"
	ColSubmits          = "submits"
	ColRes              = "res"
	ColSubsAll          = "subs_all"
	ColAccountNum       = "account_num"
	ColCreatedFlag      = "created_flag"
	ColCallAnsweredFlag = "call_answered_flag"
	ColQualityFlag      = "quality_flag"
	ColQuality          = "quality"
)

// UTMColumns maps a UTM parameter name to its funnel column.
var UTMColumns = map[string]string{
	"utm_campaign": ColUTMCampaign,
	"utm_source":   ColUTMSource,
	"utm_medium":   ColUTMMedium,
	"utm_content":  ColUTMContent,
	"utm_term":     ColUTMTerm,
}

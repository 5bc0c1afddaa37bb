package nlq

// Signals are the report-template hints raised by a question.
type Signals struct {
	AllCampaigns bool `json:"all_campaigns,omitempty"`
	Platform     bool `json:"platform,omitempty"`
	Performance  bool `json:"performance,omitempty"`
	Trend        bool `json:"trend,omitempty"`
}

func (s *Signals) set(sig Signal) {
	switch sig {
	case SignalAllCampaigns:
		s.AllCampaigns = true
	case SignalPlatform:
		s.Platform = true
	case SignalPerformance:
		s.Performance = true
	case SignalTrend:
		s.Trend = true
	}
}

// Classification is the outcome of running every rule table.
type Classification struct {
	Intent  Intent  `json:"intent"`
	Rule    string  `json:"rule,omitempty"`
	Keyword string  `json:"keyword,omitempty"`
	Signals Signals `json:"signals"`
}

// Classifier evaluates the lexicon's rule tables against a question. It
// holds no state between calls.
type Classifier struct {
	lex *Lexicon
}

// NewClassifier creates a classifier over a lexicon.
func NewClassifier(lex *Lexicon) *Classifier {
	return &Classifier{lex: lex}
}

// Classify returns the intent of the first matching rule, or IntentEntity
// when none matches, together with the report signals.
func (c *Classifier) Classify(question string) Classification {
	q := lower(question)
	out := Classification{Intent: IntentEntity}

	for _, r := range c.lex.Intents {
		if kw, ok := firstKeyword(q, r.Keywords); ok {
			out.Intent = r.Intent
			out.Rule = r.Name
			out.Keyword = kw
			if r.Signal != "" {
				out.Signals.set(r.Signal)
			}
			break
		}
	}

	for _, r := range c.lex.Signals {
		if _, ok := firstWord(q, r.Keywords); ok {
			out.Signals.set(r.Signal)
		}
	}
	return out
}

// Order returns the ordering picked by the first matching order rule.
func (c *Classifier) Order(question string) (OrderRule, bool) {
	q := lower(question)
	for _, r := range c.lex.Orders {
		if _, ok := firstWord(q, r.Keywords); ok {
			return r, true
		}
	}
	return OrderRule{}, false
}

// Limit returns the row limit of the first matching limit rule, or zero.
func (c *Classifier) Limit(question string) int {
	q := lower(question)
	for _, r := range c.lex.Limits {
		if _, ok := firstWord(q, r.Keywords); ok {
			return r.Limit
		}
	}
	return 0
}

// FunnelShape returns the layout of the first matching funnel rule, or
// FunnelTotals.
func (c *Classifier) FunnelShape(question string) FunnelShape {
	q := lower(question)
	for _, r := range c.lex.FunnelShapes {
		if _, ok := firstWord(q, r.Keywords); ok {
			return r.Shape
		}
	}
	return FunnelTotals
}

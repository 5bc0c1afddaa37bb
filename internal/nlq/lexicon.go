// Package nlq translates analytics questions into parameterized SQL.
//
// The pipeline is: extract search terms, classify the question, build
// per-term LIKE conditions, then assemble a QuerySpec and render it for a
// storage dialect. All vocabulary lives in a Lexicon so the keyword sets
// and their priority order are data, not control flow.
package nlq

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Intent is the query family a question belongs to.
type Intent string

const (
	IntentFunnel    Intent = "funnel"
	IntentAggregate Intent = "aggregate"
	IntentEntity    Intent = "entity"
)

// Signal is a secondary classification used to pick a report template.
type Signal string

const (
	SignalAllCampaigns Signal = "all_campaigns"
	SignalPlatform     Signal = "platform"
	SignalPerformance  Signal = "performance"
	SignalTrend        Signal = "trend"
)

// FunnelShape selects one of the funnel query layouts.
type FunnelShape string

const (
	FunnelConversion FunnelShape = "conversion"
	FunnelSources    FunnelShape = "sources"
	FunnelTrend      FunnelShape = "trend"
	FunnelTop        FunnelShape = "top"
	FunnelTotals     FunnelShape = "totals"
)

// IntentRule maps keywords to an intent. Rules are evaluated in order.
type IntentRule struct {
	Name     string   `yaml:"name"`
	Intent   Intent   `yaml:"intent"`
	Signal   Signal   `yaml:"signal,omitempty"`
	Keywords []string `yaml:"keywords"`
}

// SignalRule raises a report signal when any keyword is present.
type SignalRule struct {
	Signal   Signal   `yaml:"signal"`
	Keywords []string `yaml:"keywords"`
}

// OrderRule picks the ordering of per-entity results.
type OrderRule struct {
	Column   string   `yaml:"column"`
	Desc     bool     `yaml:"desc"`
	Keywords []string `yaml:"keywords"`
}

// LimitRule picks a row limit.
type LimitRule struct {
	Limit    int      `yaml:"limit"`
	Keywords []string `yaml:"keywords"`
}

// FunnelShapeRule picks a funnel layout. Rules are evaluated in order.
type FunnelShapeRule struct {
	Shape    FunnelShape `yaml:"shape"`
	Keywords []string    `yaml:"keywords"`
}

// UTMParam lists the spellings under which a UTM parameter is named.
type UTMParam struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
}

// Lexicon holds every vocabulary table used by the pipeline.
//
// Term tables (strong keywords, lead-ins, stop words, typos, synonyms)
// are matched against the upper-cased question. Rule tables are matched
// against the lower-cased question.
type Lexicon struct {
	StrongKeywords []string            `yaml:"strong_keywords"`
	LeadIns        []string            `yaml:"lead_ins"`
	StopWords      []string            `yaml:"stop_words"`
	Typos          map[string][]string `yaml:"typos"`
	Synonyms       map[string][]string `yaml:"synonyms"`

	Intents []IntentRule `yaml:"intents"`
	Signals []SignalRule `yaml:"signals"`
	Orders  []OrderRule  `yaml:"orders"`
	Limits  []LimitRule  `yaml:"limits"`

	FunnelShapes   []FunnelShapeRule `yaml:"funnel_shapes"`
	FunnelLeadIns  []string          `yaml:"funnel_lead_ins"`
	UTMParams      []UTMParam        `yaml:"utm_params"`
	UTMStopValues  []string          `yaml:"utm_stop_values"`
	KnowledgeTerms []string          `yaml:"knowledge_terms"`

	vocabulary   map[string]bool
	typoIndex    map[string][]string
	synonymIndex map[string][]string
}

// DefaultLexicon returns the built-in English and Russian vocabulary.
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		StrongKeywords: []string{"ФРК4", "ФРК1", "РКО", "РБИДОС", "СББОЛ"},
		LeadIns: []string{
			"СДЕЛАЙ ОТЧЕТ ПО", "ПОКАЖИ ОТЧЕТ ПО", "АНАЛИЗ КАМПАНИИ", "ПО КАМПАНИИ",
			"ОТЧЕТ ПО", "ОТЧЁТ ПО", "КАМПАНИЯ",
			"REPORT FOR CAMPAIGN", "REPORT ON CAMPAIGN", "ANALYSIS OF CAMPAIGN",
			"STATS FOR CAMPAIGN", "BY CAMPAIGN", "FOR CAMPAIGN",
			"REPORT FOR", "REPORT ON", "CAMPAIGN ",
		},
		StopWords: []string{
			"ПОКАЖИ", "ОТЧЕТ", "ОТЧЁТ", "АНАЛИЗ", "СТАТИСТИКА", "ДАННЫЕ", "ПО",
			"ЗА", "ДЛЯ", "КАМПАНИИ", "КАМПАНИЯ", "КАК", "ЧТО",
			"SHOW", "ME", "REPORT", "ANALYSIS", "STATISTICS", "STATS", "DATA",
			"THE", "FOR", "BY", "ON", "OF", "AND", "WITH", "ABOUT", "PLEASE",
			"GIVE", "WHAT", "HOW", "ARE", "IS", "CAMPAIGN", "CAMPAIGNS",
			"NUMBERS", "METRICS", "CTR", "CPC", "CPM", "ROI", "CPA",
		},
		Typos: map[string][]string{
			"ГОДОВЙ":         {"ГОДОВОЙ"},
			"ГОДОВО":         {"ГОДОВОЙ"},
			"ПЕРФОМАНС":      {"PERFORMANCE"},
			"ПЕРФОРМАНС":     {"PERFORMANCE"},
			"PERFOMANCE":     {"PERFORMANCE"},
			"СБЕРБИЗНЕСС":    {"СБЕРБИЗНЕС"},
			"РКО":            {"РКО", "РАСЧЕТНО-КАССОВОЕ", "РАСЧЕТНО КАССОВОЕ"},
			"ФРК":            {"ФРК1", "ФРК4"},
			"БИЗНЕС-КАРТЫ":   {"БИЗНЕС-КАРТЫ", "БИЗНЕС КАРТЫ"},
			"БИЗНЕС-КРЕДИТЫ": {"БИЗНЕС-КРЕДИТЫ", "БИЗНЕС КРЕДИТЫ"},
		},
		Synonyms: map[string][]string{
			"PERFOMANS":   {"PERFORMANCE"},
			"ПЕРФОМАНС":   {"PERFORMANCE"},
			"PERFORMANCE": {"ПЕРФОМАНС"},
			"БИЗНЕС":      {"BUSINESS"},
			"BUSINESS":    {"БИЗНЕС"},
			"КАРТЫ":       {"CARDS"},
			"CARDS":       {"КАРТЫ"},
			"КРЕДИТЫ":     {"CREDITS"},
			"CREDITS":     {"КРЕДИТЫ"},
		},
		Intents: []IntentRule{
			{
				Name:   "funnel",
				Intent: IntentFunnel,
				Keywords: []string{
					"воронка", "воронку", "конверсия", "конверсии", "заявки", "заявок",
					"лиды", "лидов", "счета", "счетов", "регистрации", "регистраций",
					"визиты", "визитов", "динамика", "тренд",
					"submits", "account_num", "created_flag", "call_answered_flag", "quality_flag",
					"funnel", "conversion", "leads", "submissions", "applications",
					"accounts opened", "traffic source", "trend",
				},
			},
			{
				Name:     "utm",
				Intent:   IntentFunnel,
				Keywords: []string{"utm", "метки", "метка", "параметры utm"},
			},
			{
				Name:   "comparison",
				Intent: IntentEntity,
				Signal: SignalAllCampaigns,
				Keywords: []string{
					"сравни все кампании", "сравнение кампаний", "сравни кампании",
					"compare all campaigns", "compare campaigns", "campaign comparison",
				},
			},
			{
				Name:   "general",
				Intent: IntentAggregate,
				Keywords: []string{
					"общая статистика", "общую статистику", "общие показатели", "всего", "итого",
					"общий расход", "общие показы", "общие клики", "все кампании", "всех кампаний",
					"overall", "total", "all campaigns", "summary", "in general",
				},
			},
		},
		Signals: []SignalRule{
			{Signal: SignalAllCampaigns, Keywords: []string{
				"все кампании", "всех кампаний", "общая статистика", "общие показы", "общие клики",
				"покажи общую статистику", "all campaigns", "compare campaigns", "сравни кампании",
				"сравнение кампаний", "campaign comparison",
			}},
			{Signal: SignalPlatform, Keywords: []string{
				"по площадкам", "площадки", "платформа", "эффективность площадок",
				"by platform", "platforms", "per platform", "venues",
			}},
			{Signal: SignalPerformance, Keywords: []string{
				"эффективность", "конверсия", "результат", "лучший", "лучшие", "топ",
				"effectiveness", "most effective", "best", "top",
			}},
			{Signal: SignalTrend, Keywords: []string{
				"по дням", "тренд", "динамика", "время", "дата", "график",
				"by day", "daily", "over time", "chart",
			}},
		},
		Orders: []OrderRule{
			{Column: "cost", Desc: true, Keywords: []string{
				"дорогой", "дорогие", "расход", "стоимость", "cost", "expensive", "spend",
			}},
			{Column: "impressions", Desc: true, Keywords: []string{
				"показы", "трафик", "impressions", "traffic", "views",
			}},
			{Column: "clicks", Desc: true, Keywords: []string{"клики", "clicks"}},
		},
		Limits: []LimitRule{
			{Limit: 10, Keywords: []string{"топ", "лучшие", "лучший", "top", "best"}},
			{Limit: 5, Keywords: []string{"первые", "first"}},
		},
		FunnelShapes: []FunnelShapeRule{
			{Shape: FunnelConversion, Keywords: []string{"воронка", "воронку", "конверсия", "funnel", "conversion"}},
			{Shape: FunnelSources, Keywords: []string{
				"сравни", "сравнение", "источники", "каналы", "compare", "sources", "channels",
			}},
			{Shape: FunnelTrend, Keywords: []string{
				"динамика", "тренд", "по дням", "график", "trend", "daily", "by day", "chart", "dynamics",
			}},
			{Shape: FunnelTop, Keywords: []string{"топ", "лучшие", "лучший", "top", "best"}},
		},
		FunnelLeadIns: []string{"по кампании", "кампании", "кампания", "for campaign", "campaign"},
		UTMParams: []UTMParam{
			{Name: "utm_campaign", Synonyms: []string{"utm_campaign", "utm campaign", "кампания utm", "utm кампания"}},
			{Name: "utm_source", Synonyms: []string{"utm_source", "utm source", "источник utm", "utm источник"}},
			{Name: "utm_medium", Synonyms: []string{"utm_medium", "utm medium", "канал utm", "utm канал"}},
			{Name: "utm_content", Synonyms: []string{"utm_content", "utm content", "контент utm", "utm контент"}},
			{Name: "utm_term", Synonyms: []string{"utm_term", "utm term", "термин utm", "utm термин"}},
		},
		UTMStopValues: []string{"for", "by", "and", "with", "в", "по", "и", "за", "для"},
		KnowledgeTerms: []string{
			"что такое", "что означает", "определение", "расшифровка", "what is", "what does",
			"ctr", "cpc", "cpm", "конверсия",
		},
	}
	l.index()
	return l
}

// LoadLexicon reads a YAML override on top of the default lexicon. Tables
// present in the file replace the built-in ones; absent tables are kept.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	l := DefaultLexicon()
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	l.index()
	return l, nil
}

// Validate checks the rule tables for values the pipeline cannot use.
func (l *Lexicon) Validate() error {
	if len(l.Intents) == 0 {
		return fmt.Errorf("lexicon: at least one intent rule is required")
	}
	for i, r := range l.Intents {
		switch r.Intent {
		case IntentFunnel, IntentAggregate, IntentEntity:
		default:
			return fmt.Errorf("lexicon: intent rule %d has unknown intent %q", i, r.Intent)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("lexicon: intent rule %d has no keywords", i)
		}
	}
	for i, r := range l.Limits {
		if r.Limit <= 0 {
			return fmt.Errorf("lexicon: limit rule %d must be positive", i)
		}
	}
	for i, r := range l.Orders {
		if !orderableColumns[r.Column] {
			return fmt.Errorf("lexicon: order rule %d has unknown column %q", i, r.Column)
		}
	}
	for _, p := range l.UTMParams {
		if _, ok := utmColumn(p.Name); !ok {
			return fmt.Errorf("lexicon: unknown utm parameter %q", p.Name)
		}
	}
	return nil
}

// index builds the normalized lookup tables. The vocabulary is every stop
// word plus every word of every rule keyword; none of them is ever a
// search term.
func (l *Lexicon) index() {
	l.vocabulary = make(map[string]bool, len(l.StopWords))
	addWords := func(keywords []string) {
		for _, kw := range keywords {
			for _, w := range strings.Fields(kw) {
				l.vocabulary[upper(w)] = true
			}
		}
	}
	addWords(l.StopWords)
	for _, r := range l.Intents {
		addWords(r.Keywords)
	}
	for _, r := range l.Signals {
		addWords(r.Keywords)
	}
	for _, r := range l.Orders {
		addWords(r.Keywords)
	}
	for _, r := range l.Limits {
		addWords(r.Keywords)
	}
	for _, r := range l.FunnelShapes {
		addWords(r.Keywords)
	}
	addWords(l.KnowledgeTerms)
	addWords(l.LeadIns)

	l.typoIndex = make(map[string][]string, len(l.Typos))
	for k, forms := range l.Typos {
		key := compact(upper(k))
		for _, f := range forms {
			l.typoIndex[key] = appendUnique(l.typoIndex[key], upper(f))
		}
	}

	l.synonymIndex = make(map[string][]string, len(l.Synonyms))
	for k, forms := range l.Synonyms {
		key := upper(k)
		for _, f := range forms {
			l.synonymIndex[key] = appendUnique(l.synonymIndex[key], upper(f))
		}
	}
}

func (l *Lexicon) isVocabulary(w string) bool { return l.vocabulary[w] }

func (l *Lexicon) typoForms(key string) ([]string, bool) {
	forms, ok := l.typoIndex[key]
	return forms, ok
}

func (l *Lexicon) synonyms(word string) []string { return l.synonymIndex[word] }

// MentionsKnowledgeTerm reports whether the question asks about a term
// definition.
func (l *Lexicon) MentionsKnowledgeTerm(question string) bool {
	_, ok := firstKeyword(lower(question), l.KnowledgeTerms)
	return ok
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// compact removes hyphens and spaces.
func compact(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

// firstKeyword returns the first keyword contained in text.
func firstKeyword(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		kw = lower(kw)
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// firstWord is firstKeyword with Latin-script keywords matched on whole
// words, so "top" does not fire inside "desktop". Cyrillic keywords stay
// substring matches and cover inflected endings.
func firstWord(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		kw = lower(kw)
		if kw == "" {
			continue
		}
		if isASCII(kw) {
			if containsWord(text, kw) {
				return kw, true
			}
			continue
		}
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func containsWord(text, word string) bool {
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

package knowledge

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Entry defines one glossary term. Aliases are matched as whole words.
type Entry struct {
	Term       string
	Aliases    []string
	Definition string
}

// Glossary is an Enhancer that appends definitions of the terms a
// question mentions.
type Glossary struct {
	entries []Entry
}

// NewGlossary creates a glossary over entries. With no entries the
// built-in marketing glossary is used.
func NewGlossary(entries ...Entry) *Glossary {
	if len(entries) == 0 {
		entries = DefaultEntries()
	}
	return &Glossary{entries: entries}
}

// DefaultEntries is the built-in marketing and banking glossary.
func DefaultEntries() []Entry {
	return []Entry{
		{Term: "CTR", Aliases: []string{"ctr", "click-through rate", "кликабельность"},
			Definition: "Click-through rate: clicks divided by impressions, in percent."},
		{Term: "CPC", Aliases: []string{"cpc", "cost per click", "цена клика"},
			Definition: "Cost per click: spend divided by clicks."},
		{Term: "CPM", Aliases: []string{"cpm", "cost per mille"},
			Definition: "Cost per thousand impressions."},
		{Term: "CPL", Aliases: []string{"cpl", "cost per lead", "цена лида"},
			Definition: "Cost per lead: spend divided by captured leads."},
		{Term: "CR", Aliases: []string{"cr", "conversion rate", "конверсия", "конверсии"},
			Definition: "Conversion rate: share of visitors who completed the target action."},
		{Term: "UTM", Aliases: []string{"utm", "utm-метки", "метки"},
			Definition: "Query-string tags (utm_source, utm_medium, utm_campaign, utm_content, utm_term) identifying where a visit came from."},
		{Term: "Funnel", Aliases: []string{"funnel", "воронка", "воронку"},
			Definition: "The visit, submission, account opening and quality-lead stages a prospect passes through."},
		{Term: "РКО", Aliases: []string{"рко"},
			Definition: "Расчетно-кассовое обслуживание: business current-account services."},
		{Term: "ФРК", Aliases: []string{"фрк", "фрк1", "фрк4"},
			Definition: "Federal advertising campaign line for business banking products."},
	}
}

// Enhance appends a Context section when the question mentions glossary
// terms. A question with no known term returns the report unchanged.
func (g *Glossary) Enhance(ctx context.Context, report, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	found := g.Lookup(question)
	if len(found) == 0 {
		return report, nil
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(report, "\n"))
	b.WriteString("\n\n## Context\n\n")
	for _, e := range found {
		fmt.Fprintf(&b, "- **%s:** %s\n", e.Term, e.Definition)
	}
	return b.String(), nil
}

// Lookup returns the entries mentioned in text, in glossary order.
func (g *Glossary) Lookup(text string) []Entry {
	words := splitWords(strings.ToLower(text))
	var out []Entry
	for _, e := range g.entries {
		for _, a := range e.Aliases {
			if containsSequence(words, splitWords(strings.ToLower(a))) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

func containsSequence(words, seq []string) bool {
	if len(seq) == 0 {
		return false
	}
	for i := 0; i+len(seq) <= len(words); i++ {
		match := true
		for j := range seq {
			if words[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

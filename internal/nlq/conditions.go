package nlq

import (
	"strings"
	"unicode/utf8"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Match fields over campaign_name. Each one normalizes the stored name the
// same way the pattern is normalized.
var (
	fieldRaw      = "UPPER(" + storage.ColCampaignName + ")"
	fieldCompact  = "REPLACE(REPLACE(" + fieldRaw + ",' ',''),'-','')"
	fieldStripped = "REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(" + fieldRaw + ",' ',''),'-',''),'_',''),'.',''),'/','')"
)

var (
	likeEscaper   = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	punctStripper = strings.NewReplacer(" ", "", "-", "", "_", "", ".", "", "/", "")
)

// Fragment is one "field LIKE pattern" test. Pattern carries the
// surrounding wildcards and is always bound as an argument.
type Fragment struct {
	Field   string
	Pattern string
}

// SQL renders the fragment with a "?" marker.
func (f Fragment) SQL() string {
	return f.Field + ` LIKE ? ESCAPE '\'`
}

// TermCondition is the OR of every fragment generated for one term.
type TermCondition struct {
	Term      Term
	Fragments []Fragment
}

// Clause renders the condition as a parenthesized disjunction.
func (c TermCondition) Clause() Clause {
	parts := make([]string, len(c.Fragments))
	args := make([]interface{}, len(c.Fragments))
	for i, f := range c.Fragments {
		parts[i] = f.SQL()
		args[i] = f.Pattern
	}
	return Clause{SQL: "(" + strings.Join(parts, " OR ") + ")", Args: args}
}

// BuildConditions returns one condition per term, in term order.
func BuildConditions(terms Terms) []TermCondition {
	out := make([]TermCondition, 0, len(terms))
	for _, t := range terms {
		cond := TermCondition{Term: t}
		seen := make(map[Fragment]bool)
		add := func(field, value string) {
			if value == "" {
				return
			}
			f := Fragment{Field: field, Pattern: "%" + likeEscaper.Replace(value) + "%"}
			if !seen[f] {
				seen[f] = true
				cond.Fragments = append(cond.Fragments, f)
			}
		}

		forms := t.Forms
		if len(forms) == 0 {
			forms = []string{t.Text}
		}
		for _, form := range forms {
			form = upper(form)
			add(fieldRaw, form)

			if c := compact(form); c != form {
				add(fieldCompact, c)
			}
			if strings.Contains(form, "-") {
				add(fieldRaw, strings.ReplaceAll(form, "-", " "))
			}
			if strings.Contains(form, " ") {
				add(fieldRaw, strings.ReplaceAll(form, " ", "-"))
				if utf8.RuneCountInString(form) > 4 {
					for _, w := range strings.Fields(form) {
						if utf8.RuneCountInString(w) > 2 {
							add(fieldRaw, w)
						}
					}
				}
			}
			if s := punctStripper.Replace(form); s != form {
				add(fieldStripped, s)
			}
		}
		if len(cond.Fragments) > 0 {
			out = append(out, cond)
		}
	}
	return out
}

package nlq

import (
	"regexp"
	"sort"
	"strings"
)

// CampaignIdentity is a campaign name with its venue qualifier removed.
// Several stored names may share one identity.
type CampaignIdentity string

var venueSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*\([^)]*\)\s*$`),
	regexp.MustCompile(`\s+-\s*[^-]*$`),
	regexp.MustCompile(`\s*:\s*[^:]*$`),
}

// CollapseIdentity strips trailing "(...)", " - ..." and ": ..." qualifiers
// until none applies. It never returns an empty identity for a non-empty
// name, and CollapseIdentity(CollapseIdentity(x)) == CollapseIdentity(x).
func CollapseIdentity(name string) CampaignIdentity {
	cur := strings.TrimSpace(name)
	for {
		changed := false
		for _, re := range venueSuffixes {
			stripped := strings.TrimSpace(re.ReplaceAllString(cur, ""))
			if stripped != "" && stripped != cur {
				cur = stripped
				changed = true
			}
		}
		if !changed {
			return CampaignIdentity(cur)
		}
	}
}

// Identities collapses raw names into sorted, distinct identities.
func Identities(names []string) []CampaignIdentity {
	seen := make(map[CampaignIdentity]bool, len(names))
	var out []CampaignIdentity
	for _, n := range names {
		id := CollapseIdentity(n)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Matcher resolves search terms against known campaign names.
type Matcher struct {
	lex *Lexicon
}

// NewMatcher creates a matcher over a lexicon.
func NewMatcher(lex *Lexicon) *Matcher {
	return &Matcher{lex: lex}
}

// Variants returns the spellings tried for a term: its forms plus any
// transliteration or cross-language synonyms.
func (m *Matcher) Variants(t Term) []string {
	var out []string
	forms := t.Forms
	if len(forms) == 0 {
		forms = []string{t.Text}
	}
	for _, f := range forms {
		f = upper(f)
		out = appendUnique(out, f)
		for _, syn := range m.lex.synonyms(f) {
			out = appendUnique(out, syn)
		}
		for _, syn := range m.lex.synonyms(compact(f)) {
			out = appendUnique(out, syn)
		}
	}
	return out
}

// MatchNames returns the raw names that contain any variant of any term,
// sorted.
func (m *Matcher) MatchNames(terms Terms, names []string) []string {
	if len(terms) == 0 {
		return nil
	}
	var variants []string
	for _, t := range terms {
		for _, v := range m.Variants(t) {
			variants = appendUnique(variants, v)
		}
	}

	var out []string
	for _, name := range names {
		if containsAnyVariant(name, variants) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Match returns the distinct identities of the matched names.
func (m *Matcher) Match(terms Terms, names []string) []CampaignIdentity {
	return Identities(m.MatchNames(terms, names))
}

func containsAnyVariant(name string, variants []string) bool {
	n := strings.ToUpper(name)
	nc := compact(n)
	for _, v := range variants {
		if v == "" {
			continue
		}
		if strings.Contains(n, v) {
			return true
		}
		if vc := compact(v); vc != "" && strings.Contains(nc, vc) {
			return true
		}
	}
	return false
}

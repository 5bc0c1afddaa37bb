package nlq

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Term is one search token. Forms are alternative spellings of the same
// token (typo folds plus the raw hyphenated or spaced form) and are ORed
// when matched; distinct terms are ANDed.
type Term struct {
	Text  string   `json:"text"`
	Forms []string `json:"forms"`
}

// Terms is the extracted term set, sorted by Text.
type Terms []Term

// Strings flattens every form of every term.
func (ts Terms) Strings() []string {
	var out []string
	for _, t := range ts {
		for _, f := range t.Forms {
			out = appendUnique(out, f)
		}
	}
	return out
}

// Texts returns the term keys.
func (ts Terms) Texts() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

var (
	tokenSplitter = regexp.MustCompile(`[\s,()]+`)
	tokenTrim     = "?!.;:\"'«»"
)

// Extractor turns question text into search terms.
type Extractor struct {
	lex *Lexicon
}

// NewExtractor creates an extractor over a lexicon.
func NewExtractor(lex *Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

// Extract returns the deduplicated term set of question. Strong keywords
// found anywhere in the text always become terms; the lead-in phrase may
// add more. Without either, words longer than two runes that are not part
// of the vocabulary are used.
func (e *Extractor) Extract(question string) Terms {
	q := strings.ToUpper(strings.TrimSpace(question))
	if q == "" {
		return nil
	}

	set := newTermSet()
	strong := false
	for _, kw := range e.lex.StrongKeywords {
		kw = upper(kw)
		if kw != "" && strings.Contains(q, kw) {
			e.add(set, kw)
			strong = true
		}
	}

	if rest, ok := e.afterLeadIn(q); ok {
		for _, tok := range tokenize(rest) {
			if utf8.RuneCountInString(tok) > 1 && !e.lex.isVocabulary(tok) {
				e.add(set, tok)
			}
		}
		return set.terms()
	}

	if !strong {
		for _, tok := range tokenize(q) {
			if utf8.RuneCountInString(tok) > 2 && !e.lex.isVocabulary(tok) {
				e.add(set, tok)
			}
		}
	}
	return set.terms()
}

// afterLeadIn returns the text following the first lead-in phrase found.
func (e *Extractor) afterLeadIn(q string) (string, bool) {
	for _, li := range e.lex.LeadIns {
		li = strings.ToUpper(li)
		if strings.TrimSpace(li) == "" {
			continue
		}
		if idx := strings.Index(q, li); idx >= 0 {
			return q[idx+len(li):], true
		}
	}
	return "", false
}

func (e *Extractor) add(set *termSet, word string) {
	key := compact(word)
	if key == "" {
		return
	}
	forms, ok := e.lex.typoForms(key)
	if !ok {
		forms = []string{key}
	}
	for _, f := range forms {
		set.add(key, f)
	}
	if strings.ContainsAny(word, "- ") {
		set.add(key, word)
	}
}

func tokenize(s string) []string {
	var out []string
	for _, tok := range tokenSplitter.Split(s, -1) {
		tok = strings.Trim(tok, tokenTrim)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

type termSet struct {
	index map[string]int
	list  Terms
}

func newTermSet() *termSet {
	return &termSet{index: make(map[string]int)}
}

func (s *termSet) add(key, form string) {
	i, ok := s.index[key]
	if !ok {
		s.index[key] = len(s.list)
		s.list = append(s.list, Term{Text: key})
		i = len(s.list) - 1
	}
	s.list[i].Forms = appendUnique(s.list[i].Forms, form)
}

func (s *termSet) terms() Terms {
	if len(s.list) == 0 {
		return nil
	}
	out := make(Terms, len(s.list))
	copy(out, s.list)
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

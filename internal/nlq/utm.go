package nlq

import (
	"strings"
	"unicode"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

const utmValueTrim = ",.;!?\"'()«»"

// UTMValue is one explicitly named UTM parameter.
type UTMValue struct {
	Param string `json:"param"`
	Value string `json:"value"`
}

// ExtractUTM finds explicit UTM parameter values such as
// "utm_campaign=spring" or "utm source: vk". For every parameter the first
// occurrence with a usable value wins. Values are lower-cased; values that
// are stop words ("for", "by", ...) are skipped.
func ExtractUTM(question string, params []UTMParam, stopValues []string) []UTMValue {
	q := strings.ToLower(question)
	stop := make(map[string]bool, len(stopValues))
	for _, s := range stopValues {
		stop[lower(s)] = true
	}

	var out []UTMValue
	for _, p := range params {
		if v, ok := findUTMValue(q, p.Synonyms, stop); ok {
			out = append(out, UTMValue{Param: p.Name, Value: v})
		}
	}
	return out
}

// ExtractUTM runs ExtractUTM with the lexicon's parameter table.
func (l *Lexicon) ExtractUTM(question string) []UTMValue {
	return ExtractUTM(question, l.UTMParams, l.UTMStopValues)
}

func findUTMValue(q string, synonyms []string, stop map[string]bool) (string, bool) {
	for _, syn := range synonyms {
		syn = lower(syn)
		if syn == "" {
			continue
		}
		from := 0
		for from < len(q) {
			idx := strings.Index(q[from:], syn)
			if idx < 0 {
				break
			}
			pos := from + idx + len(syn)
			from = pos
			if pos < len(q) && isWordByte(q[pos]) {
				continue
			}
			if v := readUTMValue(q[pos:]); v != "" && !stop[v] {
				return v, true
			}
		}
	}
	return "", false
}

// readUTMValue skips whitespace, an optional '=' or ':' and more
// whitespace, then reads up to the next whitespace.
func readUTMValue(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if strings.HasPrefix(s, "=") || strings.HasPrefix(s, ":") {
		s = strings.TrimLeftFunc(s[1:], unicode.IsSpace)
	}
	if end := strings.IndexFunc(s, unicode.IsSpace); end >= 0 {
		s = s[:end]
	}
	return strings.Trim(s, utmValueTrim)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 0x80 || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func utmColumn(param string) (string, bool) {
	col, ok := storage.UTMColumns[param]
	return col, ok
}

package nlq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patterns(c TermCondition, field string) []string {
	var out []string
	for _, f := range c.Fragments {
		if f.Field == field {
			out = append(out, f.Pattern)
		}
	}
	return out
}

func TestBuildConditions_Empty(t *testing.T) {
	assert.Empty(t, BuildConditions(nil))
}

func TestBuildConditions_PlainTerm(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "GAMMA", Forms: []string{"GAMMA"}}})
	require.Len(t, conds, 1)
	assert.Equal(t, []Fragment{{Field: fieldRaw, Pattern: "%GAMMA%"}}, conds[0].Fragments)

	clause := conds[0].Clause()
	assert.Equal(t, "(UPPER(campaign_name) LIKE ? ESCAPE '\\')", clause.SQL)
	assert.Equal(t, []interface{}{"%GAMMA%"}, clause.Args)
}

func TestBuildConditions_HyphenAddsSpaceVariant(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "ALPHA4", Forms: []string{"ALPHA4", "ALPHA-4"}}})
	require.Len(t, conds, 1)
	c := conds[0]

	assert.Contains(t, patterns(c, fieldRaw), "%ALPHA 4%")
	assert.Contains(t, patterns(c, fieldRaw), "%ALPHA-4%")
	assert.Contains(t, patterns(c, fieldCompact), "%ALPHA4%")
	assert.Contains(t, patterns(c, fieldStripped), "%ALPHA4%")
}

func TestBuildConditions_SpaceAddsHyphenVariant(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "БИЗНЕСКАРТЫ", Forms: []string{"БИЗНЕС КАРТЫ"}}})
	require.Len(t, conds, 1)
	c := conds[0]

	raw := patterns(c, fieldRaw)
	assert.Contains(t, raw, "%БИЗНЕС КАРТЫ%")
	assert.Contains(t, raw, "%БИЗНЕС-КАРТЫ%")
	assert.Contains(t, raw, "%БИЗНЕС%", "multi-word term matches each long word")
	assert.Contains(t, raw, "%КАРТЫ%")
	assert.Contains(t, patterns(c, fieldCompact), "%БИЗНЕСКАРТЫ%")
}

func TestBuildConditions_EveryHyphenOrSpaceTerm(t *testing.T) {
	words := []string{"A-B", "X Y", "ONE-TWO THREE", "ФРК-4", "PRO MAX-2"}
	for _, w := range words {
		conds := BuildConditions(Terms{{Text: compact(w), Forms: []string{w}}})
		require.Len(t, conds, 1, w)
		raw := patterns(conds[0], fieldRaw)
		if strings.Contains(w, "-") {
			assert.Contains(t, raw, "%"+strings.ReplaceAll(w, "-", " ")+"%", w)
		}
		if strings.Contains(w, " ") {
			assert.Contains(t, raw, "%"+strings.ReplaceAll(w, " ", "-")+"%", w)
		}
	}
}

func TestBuildConditions_EscapesWildcards(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "100%_OFF", Forms: []string{"100%_OFF"}}})
	require.Len(t, conds, 1)
	assert.Contains(t, patterns(conds[0], fieldRaw), `%100\%\_OFF%`)
	assert.Contains(t, patterns(conds[0], fieldStripped), `%100\%OFF%`)
}

func TestBuildConditions_QuoteStaysInArgs(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "O'HARA", Forms: []string{"O'HARA"}}})
	require.Len(t, conds, 1)
	clause := conds[0].Clause()
	assert.NotContains(t, clause.SQL, "HARA")
	assert.Equal(t, []interface{}{"%O'HARA%"}, clause.Args)
}

func TestBuildConditions_NoDuplicateFragments(t *testing.T) {
	conds := BuildConditions(Terms{{Text: "AB", Forms: []string{"A-B", "A B"}}})
	require.Len(t, conds, 1)
	seen := map[Fragment]bool{}
	for _, f := range conds[0].Fragments {
		assert.False(t, seen[f], "duplicate %v", f)
		seen[f] = true
	}
}

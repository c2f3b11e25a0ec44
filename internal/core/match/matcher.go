// Package match suggests a metadata template for a classified document
// category by keyword scoring.
package match

import (
	"strings"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// Table maps a document category to the keywords that indicate a template
// fits it.
type Table map[string][]string

// DefaultTable is the compiled-in keyword table for the fixed taxonomy.
func DefaultTable() Table {
	return Table{
		"Sales Contract":      {"sales", "contract", "agreement", "deal", "purchase"},
		"Invoices":            {"invoice", "billing", "bill", "payment", "receipt"},
		"Tax":                 {"tax", "irs", "return", "1099", "w2", "w-2"},
		"Financial Report":    {"financial", "finance", "report", "statement", "balance", "income"},
		"Employment Contract": {"employment", "employee", "hire", "offer", "hr", "onboarding"},
		"PII":                 {"pii", "personal", "identity", "ssn", "passport", "confidential"},
	}
}

type Matcher struct {
	table    Table
	minScore int
}

// NewMatcher builds a matcher over the given table. Scores below minScore
// produce no suggestion; minScore values below 1 are raised to 1.
func NewMatcher(table Table, minScore int) *Matcher {
	if table == nil {
		table = DefaultTable()
	}
	if minScore < 1 {
		minScore = 1
	}
	return &Matcher{table: table, minScore: minScore}
}

// Suggest returns the best-fit template for a category, or false when no
// template scores at or above the minimum. Hidden templates are skipped;
// ties keep the earlier template in listing order.
func (m *Matcher) Suggest(category string, templates []domain.Template) (domain.Template, bool) {
	keywords := m.table[category]
	if len(keywords) == 0 {
		return domain.Template{}, false
	}

	best := -1
	bestScore := 0
	for i, tpl := range templates {
		if tpl.Hidden {
			continue
		}
		score := scoreTemplate(tpl, keywords)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < m.minScore {
		return domain.Template{}, false
	}
	return templates[best], true
}

func scoreTemplate(tpl domain.Template, keywords []string) int {
	haystack := strings.ToLower(tpl.DisplayName + " " + tpl.Key)
	for _, field := range tpl.Fields {
		haystack += " " + strings.ToLower(field.DisplayName)
	}

	score := 0
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			score++
		}
	}
	return score
}

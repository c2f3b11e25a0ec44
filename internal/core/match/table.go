package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a category→keywords table from a YAML file:
//
//	Tax: [tax, irs, return, "1099", w2, w-2]
//	Invoices: [invoice, billing]
//
// Categories absent from the file keep the compiled-in defaults.
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}

	var loaded map[string][]string
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}

	table := DefaultTable()
	for category, keywords := range loaded {
		table[category] = keywords
	}
	return table, nil
}

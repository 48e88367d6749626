package schema

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByLabel orders options by label the way a person would read them:
// case-insensitive and with digit runs compared numerically.
func SortByLabel(options []Option) {
	collator := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(options, func(i, j int) bool {
		return collator.CompareString(options[i].Label, options[j].Label) < 0
	})
}

func withNone(options []Option) []Option {
	sorted := append([]Option(nil), options...)
	SortByLabel(sorted)
	return append([]Option{NoneOption}, sorted...)
}

package sqlstore

import "github.com/goliatone/go-salesforce-connector/core"

var (
	_ core.OptionStore    = (*OptionStore)(nil)
	_ core.EphemeralStore = (*EphemeralStore)(nil)
	_ core.LogStore       = (*LogStore)(nil)
)

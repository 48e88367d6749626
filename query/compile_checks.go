package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/schema"
)

var (
	_ gocmd.Querier[ListObjectsMessage, []schema.Option]    = (*ListObjectsQuery)(nil)
	_ gocmd.Querier[DescribeObjectMessage, []schema.Option] = (*DescribeObjectQuery)(nil)
	_ gocmd.Querier[GetFieldMessage, schema.Field]          = (*GetFieldQuery)(nil)
	_ gocmd.Querier[ListLogsMessage, core.LogPage]          = (*ListLogsQuery)(nil)
	_ gocmd.Querier[AuthStatusMessage, core.AuthStatus]     = (*AuthStatusQuery)(nil)

	_ CatalogReader = (*schema.Catalog)(nil)
	_ LogReader     = (core.LogStore)(nil)
	_ StatusReader  = (*core.OAuthFlow)(nil)
)

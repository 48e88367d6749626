package gocommand

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-command/runner"
	connector "github.com/goliatone/go-salesforce-connector"
	connectorcommand "github.com/goliatone/go-salesforce-connector/command"
	"github.com/goliatone/go-salesforce-connector/core"
	connectorquery "github.com/goliatone/go-salesforce-connector/query"
	"github.com/goliatone/go-salesforce-connector/schema"
)

// RegisterFacade adds every connector command and query to bus and
// initializes it. On failure the bus is closed.
func RegisterFacade(bus *Bus, facade *connector.Facade, runnerOpts ...runner.Option) error {
	if bus == nil {
		return fmt.Errorf("gocommand: bus is required")
	}
	if facade == nil {
		return fmt.Errorf("gocommand: connector facade is required")
	}
	commands := facade.Commands()
	queries := facade.Queries()

	err := errors.Join(
		AddCommand[connectorcommand.InitiateAuthMessage](bus, commands.InitiateAuth, runnerOpts...),
		AddCommand[connectorcommand.CompleteCallbackMessage](bus, commands.CompleteCallback, runnerOpts...),
		AddCommand[connectorcommand.RefreshMessage](bus, commands.Refresh, runnerOpts...),
		AddCommand[connectorcommand.RevokeMessage](bus, commands.Revoke, runnerOpts...),
		AddCommand[connectorcommand.SaveCredentialsMessage](bus, commands.SaveCredentials, runnerOpts...),
		AddQuery[connectorquery.ListObjectsMessage, []schema.Option](bus, queries.ListObjects, runnerOpts...),
		AddQuery[connectorquery.DescribeObjectMessage, []schema.Option](bus, queries.DescribeObject, runnerOpts...),
		AddQuery[connectorquery.GetFieldMessage, schema.Field](bus, queries.GetField, runnerOpts...),
		AddQuery[connectorquery.ListLogsMessage, core.LogPage](bus, queries.ListLogs, runnerOpts...),
		AddQuery[connectorquery.AuthStatusMessage, core.AuthStatus](bus, queries.AuthStatus, runnerOpts...),
	)
	if err == nil {
		err = bus.Initialize()
	}
	if err != nil {
		bus.Close()
		return err
	}
	return nil
}

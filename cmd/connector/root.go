package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	connectorcommand "github.com/goliatone/go-salesforce-connector/command"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/httpapi"
	connectorquery "github.com/goliatone/go-salesforce-connector/query"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

type appFactory func(ctx context.Context, cmd *cobra.Command) (*app, error)

func newRootCmd() *cobra.Command {
	return newRootCmdWithEnv(nil)
}

// newRootCmdWithEnv reads CONNECTOR_* settings from environ instead of the
// process environment when environ is non-nil.
func newRootCmdWithEnv(environ map[string]string) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "connector",
		Short:         "Salesforce OAuth2 PKCE connector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	build := func(ctx context.Context, cmd *cobra.Command) (*app, error) {
		return newApp(ctx, appOptions{
			configPath: flags.configPath,
			logLevel:   flags.logLevel,
			logOutput:  cmd.ErrOrStderr(),
			environ:    environ,
		})
	}
	addCommands(root, build)
	return root
}

func addCommands(root *cobra.Command, build appFactory) {
	root.AddCommand(
		newServeCmd(build),
		newAuthorizeCmd(build),
		newRefreshCmd(build),
		newRevokeCmd(build),
		newStatusCmd(build),
		newLogsCmd(build),
		newInstallCmd(build),
		newTeardownCmd(build),
	)
}

func withApp(build appFactory, run func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := build(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, cmd, a)
	}
}

func newServeCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the OAuth callback and admin REST API",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			handler, err := httpapi.NewHandler(a.conn.Facade(), a.conn.Config(),
				httpapi.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if a.conn.Config().HTTP.AdminToken == "" {
				a.logger.Warn("no admin token configured; admin routes will refuse every request")
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			addr := a.conn.Config().HTTP.Address
			a.logger.Info("http server listening", "address", addr, "callback_url", a.conn.Config().CallbackURL())
			return httpapi.Serve(ctx, addr, httpapi.NewRouter(handler))
		}),
	}
}

func newAuthorizeCmd(build appFactory) *cobra.Command {
	var clientID, clientSecret string
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Print the provider authorization URL",
		Long: `Stores the client credentials when given, then prints the URL the operator
opens in a browser. The provider redirects back to the running "serve" process.`,
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if clientID != "" || clientSecret != "" {
				err := dispatch(ctx, connectorcommand.SaveCredentialsMessage{
					Credentials: core.Credentials{ClientID: clientID, ClientSecret: clientSecret},
				})
				if err != nil {
					return err
				}
			}
			authURL, err := dispatchWithResult[connectorcommand.InitiateAuthMessage, connectorcommand.AuthorizationURL](
				ctx, connectorcommand.InitiateAuthMessage{},
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(authURL))
			return nil
		}),
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "connected app consumer key")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "connected app consumer secret")
	return cmd
}

func newRefreshCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored access token",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			outcome, err := dispatchWithResult[connectorcommand.RefreshMessage, core.RefreshOutcome](ctx, connectorcommand.RefreshMessage{})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			return outcome.Err
		}),
	}
}

func newRevokeCmd(build appFactory) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a token, the stored refresh token by default",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			outcome, err := dispatchWithResult[connectorcommand.RevokeMessage, core.RevokeOutcome](ctx, connectorcommand.RevokeMessage{
				Token:     token,
				UseStored: token == "",
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", outcome.Severity, outcome.Message)
			return outcome.Err
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "token to revoke instead of the stored refresh token")
	return cmd
}

func newStatusCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the authorization status",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			status, err := query[connectorquery.AuthStatusMessage, core.AuthStatus](ctx, connectorquery.AuthStatusMessage{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State:         %s\n", status.State)
			fmt.Fprintf(out, "Credentials:   %s\n", yesNo(status.HasCredentials))
			fmt.Fprintf(out, "Authenticated: %s\n", yesNo(status.Authenticated))
			if status.InstanceURL != "" {
				fmt.Fprintf(out, "Instance:      %s\n", status.InstanceURL)
			}
			return nil
		}),
	}
}

func newLogsCmd(build appFactory) *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List connector log entries, newest first",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			result, err := query[connectorquery.ListLogsMessage, core.LogPage](ctx, connectorquery.ListLogsMessage{
				Page:    page,
				PerPage: perPage,
			})
			if err != nil {
				return err
			}
			renderLogs(cmd.OutOrStdout(), result)
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "entries per page")
	return cmd
}

func newInstallCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Apply migrations and provision log storage",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if err := a.conn.Install(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "installed")
			return nil
		}),
	}
}

func newTeardownCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Revoke tokens and remove stored credentials, flow state and logs",
		RunE: withApp(build, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			outcome, err := a.conn.Teardown(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", outcome.Severity, outcome.Message)
			return err
		}),
	}
}

func renderLogs(out io.Writer, page core.LogPage) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Severity", "Code", "Message"})
	for _, entry := range page.Entries {
		t.AppendRow(table.Row{
			entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			severityText(entry.Severity),
			entry.Code,
			entry.Message,
		})
	}
	t.AppendFooter(table.Row{"", "", "Page", fmt.Sprintf("%d (%d per page, %d total)", page.Page, page.PerPage, page.Total)})
	t.Render()
}

func severityText(severity core.Severity) string {
	label := strings.ToUpper(string(severity))
	switch severity {
	case core.SeverityError:
		return text.FgRed.Sprint(label)
	case core.SeverityWarning:
		return text.FgYellow.Sprint(label)
	default:
		return text.FgGreen.Sprint(label)
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

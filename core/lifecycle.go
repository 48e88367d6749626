package core

import (
	"context"
	"errors"
	"fmt"
)

// Lifecycle provisions and tears down everything the connector owns.
type Lifecycle struct {
	flow *OAuthFlow
}

func NewLifecycle(flow *OAuthFlow) *Lifecycle {
	return &Lifecycle{flow: flow}
}

func (l *Lifecycle) Install(ctx context.Context) error {
	if l == nil || l.flow == nil {
		return fmt.Errorf("core: lifecycle requires an oauth flow")
	}
	if l.flow.logStore == nil {
		return nil
	}
	if err := l.flow.logStore.Provision(ctx); err != nil {
		return fmt.Errorf("core: provision log storage: %w", err)
	}
	l.flow.logger.Info("log storage provisioned")
	return nil
}

// Teardown revokes the stored refresh token, then clears credentials, tokens,
// pending flow state and log storage. Cleanup continues past failures; the
// joined error is returned.
func (l *Lifecycle) Teardown(ctx context.Context) (RevokeOutcome, error) {
	if l == nil || l.flow == nil {
		return RevokeOutcome{}, fmt.Errorf("core: lifecycle requires an oauth flow")
	}
	flow := l.flow

	var errs []error
	tokens, err := flow.tokens.Tokens(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	outcome := flow.Revoke(ctx, tokens.RefreshToken)

	if err := flow.credentials.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := flow.tokens.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	flow.clearPending(ctx)
	flow.setState(FlowStateUnauthenticated)

	if flow.logStore != nil {
		if err := flow.logStore.Drop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("core: drop log storage: %w", err))
		}
	}
	return outcome, errors.Join(errs...)
}

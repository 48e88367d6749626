package gocommand

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-salesforce-connector/core"
)

const (
	namespaceResolver = "connector-namespace"
	messageTypePrefix = "connector."
)

// Bus binds connector handlers to a go-command registry and to the process
// wide dispatcher. Handlers are subscribed as they are added and checked by
// the registry resolvers on Initialize.
type Bus struct {
	registry *command.Registry
	logger   core.Logger
	subs     Subscriptions
	types    map[string]struct{}
}

type BusOption func(*Bus)

// WithRegistry shares a registry that other resolvers (cron, rpc) already
// hook into.
func WithRegistry(registry *command.Registry) BusOption {
	return func(b *Bus) {
		b.registry = registry
	}
}

func WithLogger(logger core.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

func NewBus(opts ...BusOption) (*Bus, error) {
	bus := &Bus{types: map[string]struct{}{}}
	for _, opt := range opts {
		if opt != nil {
			opt(bus)
		}
	}
	if bus.registry == nil {
		bus.registry = command.NewRegistry()
	}
	bus.logger = glog.Ensure(bus.logger)
	if err := bus.registry.AddResolver(namespaceResolver, bus.resolveMessageType); err != nil {
		return nil, fmt.Errorf("gocommand: add namespace resolver: %w", err)
	}
	return bus, nil
}

// AddCommand registers handler before subscribing it, so a rejected handler
// never reaches the dispatcher.
func AddCommand[T any](bus *Bus, handler command.Commander[T], runnerOpts ...runner.Option) error {
	if bus == nil || bus.registry == nil {
		return fmt.Errorf("gocommand: bus is not configured")
	}
	if handler == nil {
		return fmt.Errorf("gocommand: command handler for %s is required", command.GetMessageType(*new(T)))
	}
	if err := bus.registry.RegisterCommand(handler); err != nil {
		return err
	}
	bus.subs = append(bus.subs, commanddispatcher.SubscribeCommand(handler, runnerOpts...))
	return nil
}

func AddQuery[T any, R any](bus *Bus, handler command.Querier[T, R], runnerOpts ...runner.Option) error {
	if bus == nil || bus.registry == nil {
		return fmt.Errorf("gocommand: bus is not configured")
	}
	if handler == nil {
		return fmt.Errorf("gocommand: query handler for %s is required", command.GetMessageType(*new(T)))
	}
	if err := bus.registry.RegisterCommand(handler); err != nil {
		return err
	}
	bus.subs = append(bus.subs, commanddispatcher.SubscribeQuery(handler, runnerOpts...))
	return nil
}

// Initialize runs the registry resolvers over every added handler. It may
// only be called once.
func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: bus is not configured")
	}
	if err := b.registry.Initialize(); err != nil {
		return fmt.Errorf("gocommand: initialize registry: %w", err)
	}
	return nil
}

// MessageTypes lists the message types accepted during Initialize.
func (b *Bus) MessageTypes() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.types))
	for msgType := range b.types {
		out = append(out, msgType)
	}
	sort.Strings(out)
	return out
}

// Close drops every dispatcher subscription held by the bus.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.subs.Unsubscribe()
	b.subs = nil
}

// resolveMessageType rejects handlers outside the connector namespace and
// duplicate message types. Resolvers run sequentially inside Initialize.
func (b *Bus) resolveMessageType(_ any, meta command.CommandMeta, _ *command.Registry) error {
	msgType := strings.TrimSpace(meta.MessageType)
	if !strings.HasPrefix(msgType, messageTypePrefix) {
		return fmt.Errorf("gocommand: message type %q is outside the %q namespace", msgType, messageTypePrefix)
	}
	if _, exists := b.types[msgType]; exists {
		return fmt.Errorf("gocommand: message type %q registered twice", msgType)
	}
	b.types[msgType] = struct{}{}
	b.logger.Debug("connector handler registered", "type", msgType)
	return nil
}

// Subscriptions holds dispatcher subscriptions created by a Bus.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

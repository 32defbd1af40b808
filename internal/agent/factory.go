package agent

import (
	"errors"
	"fmt"
	"sync"

	"scribe/internal/dify"
)

var (
	// ErrUnknownAgentType is returned by Factory.Create for a type no
	// constructor is registered under.
	ErrUnknownAgentType = errors.New("unknown agent type")
	// ErrAgentTypeRegistered is returned by Register when the type is
	// already bound. Use Replace to rebind explicitly.
	ErrAgentTypeRegistered = errors.New("agent type already registered")
)

// Options carries per-type construction parameters. Fields irrelevant to a
// type are ignored by its constructor.
type Options struct {
	ValidationCriteria []string
	ScenarioTypes      []string
}

// Constructor builds an agent around a client it then exclusively owns.
type Constructor func(client *dify.Client, opts Options) Agent

var (
	registryMu sync.RWMutex
	registry   = map[Type]Constructor{}
)

func init() {
	mustRegister(TypeContentValidator, func(c *dify.Client, o Options) Agent {
		return NewContentValidator(c, o.ValidationCriteria)
	})
	mustRegister(TypeScenarioGenerator, func(c *dify.Client, o Options) Agent {
		return NewScenarioGenerator(c, o.ScenarioTypes)
	})
	mustRegister(TypeContentRewriter, func(c *dify.Client, o Options) Agent {
		return NewContentRewriter(c)
	})
}

func mustRegister(t Type, ctor Constructor) {
	if err := Register(t, ctor); err != nil {
		panic(err)
	}
}

// Register binds a constructor to an agent type. It fails if the type is
// already bound, preventing silent shadowing.
func Register(t Type, ctor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[t]; ok {
		return fmt.Errorf("%w: %s", ErrAgentTypeRegistered, t)
	}
	registry[t] = ctor
	return nil
}

// Replace binds a constructor to an agent type, overwriting any existing
// binding. Subsequent Create calls use the new constructor.
func Replace(t Type, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = ctor
}

func lookup(t Type) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[t]
	return ctor, ok
}

// Factory creates agents bound to one Dify application. Each created agent
// gets its own client; instances share no mutable state.
type Factory struct {
	baseURL    string
	apiKey     string
	clientOpts []dify.Option
}

// NewFactory builds a factory. The API key is required; the base URL may be
// empty to select the default endpoint.
func NewFactory(baseURL, apiKey string, clientOpts ...dify.Option) (*Factory, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return &Factory{baseURL: baseURL, apiKey: apiKey, clientOpts: clientOpts}, nil
}

// Create builds a fresh agent of the given type. It fails only on unknown
// types; everything after construction reports failures through Response
// envelopes.
func (f *Factory) Create(t Type, opts Options) (Agent, error) {
	ctor, ok := lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentType, t)
	}
	client := dify.New(f.baseURL, f.apiKey, f.clientOpts...)
	return ctor(client, opts), nil
}

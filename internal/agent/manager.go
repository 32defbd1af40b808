package agent

import "sync"

// Manager caches one agent instance per type so callers can fetch agents
// without threading construction parameters around. Safe for concurrent use.
type Manager struct {
	factory *Factory

	mu     sync.Mutex
	agents map[Type]Agent
}

func NewManager(factory *Factory) *Manager {
	return &Manager{factory: factory, agents: make(map[Type]Agent)}
}

// Get returns the cached agent for t, creating it on first use. Options
// only apply to that first construction.
func (m *Manager) Get(t Type, opts Options) (Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[t]; ok {
		return a, nil
	}
	a, err := m.factory.Create(t, opts)
	if err != nil {
		return nil, err
	}
	m.agents[t] = a
	return a, nil
}

// List returns the info of every cached agent.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a.Info())
	}
	return out
}

// Clear drops all cached agents.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = make(map[Type]Agent)
}

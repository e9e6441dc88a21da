package extension

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	narrative "github.com/xraph/narrative"
	audithook "github.com/xraph/narrative/audit_hook"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/observability"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store/memory"
)

type counter struct {
	mu sync.Mutex
	n  float64
}

func (c *counter) Inc()            { c.Add(1) }
func (c *counter) Add(v float64)   { c.mu.Lock(); c.n += v; c.mu.Unlock() }
func (c *counter) Observe(float64) {}

type metrics struct{ byName map[string]*counter }

func (m *metrics) get(name string) *counter {
	if c, ok := m.byName[name]; ok {
		return c
	}
	c := &counter{}
	m.byName[name] = c
	return c
}

func (m *metrics) Counter(name string) observability.Counter     { return m.get(name) }
func (m *metrics) Histogram(name string) observability.Histogram { return m.get(name) }

func TestEngineOptsWirePlugins(t *testing.T) {
	m := &metrics{byName: map[string]*counter{}}
	var actions []string
	rec := audithook.RecorderFunc(func(_ context.Context, ev *audithook.AuditEvent) error {
		actions = append(actions, ev.Action)
		return nil
	})

	e := New(WithMetrics(m), WithAuditRecorder(rec))
	e.config = mergeWithDefaults(e.config)

	kp, err := identity.Generate()
	require.NoError(t, err)
	eng := narrative.New(memory.New(), kp.Identity(), e.buildEngineOpts()...)
	assert.Equal(t, 2, eng.Plugins().Count())
	assert.Equal(t, e.config.Pricing, eng.Pricing())

	_, err = eng.CreateRecord(context.Background(), record.Input{
		Score: 70, Platform: "Twitter", Alternative: "Threads", Timestamp: 1,
	}, kp.Identity())
	require.NoError(t, err)

	assert.Equal(t, []string{audithook.ActionRecordCreated}, actions)
	assert.InDelta(t, 1, m.get("narrative.record.created").n, 0)
}

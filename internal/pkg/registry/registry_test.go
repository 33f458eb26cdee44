package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeModule struct {
	name     string
	priority int
	err      error
	initLog  *[]string
}

func (m *fakeModule) Name() string  { return m.name }
func (m *fakeModule) Priority() int { return m.priority }
func (m *fakeModule) Init(ctx *ModuleContext) error {
	*m.initLog = append(*m.initLog, m.name)
	return m.err
}

func withRegistry(t *testing.T) {
	saved := moduleRegistry
	moduleRegistry = make(map[string]Module)
	t.Cleanup(func() { moduleRegistry = saved })
}

func TestInitModulesByPriority(t *testing.T) {
	withRegistry(t)
	var log []string
	Register(&fakeModule{name: "payment", priority: 20, initLog: &log})
	Register(&fakeModule{name: "user", priority: 1, initLog: &log})
	Register(&fakeModule{name: "order", priority: 10, initLog: &log})

	assert.NoError(t, InitModules(&ModuleContext{}))
	assert.Equal(t, []string{"user", "order", "payment"}, log)
}

func TestInitModulesStopsOnError(t *testing.T) {
	withRegistry(t)
	var log []string
	boom := errors.New("boom")
	Register(&fakeModule{name: "a", priority: 1, err: boom, initLog: &log})
	Register(&fakeModule{name: "b", priority: 2, initLog: &log})

	assert.ErrorIs(t, InitModules(&ModuleContext{}), boom)
	assert.Equal(t, []string{"a"}, log)
}

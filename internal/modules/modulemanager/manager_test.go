package modulemanager

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeModule struct {
	id       string
	name     string
	core     bool
	migrated bool
	inited   bool
	initErr  error
}

func (m *fakeModule) ID() string   { return m.id }
func (m *fakeModule) Name() string { return m.name }
func (m *fakeModule) Core() bool   { return m.core }

func (m *fakeModule) Migrate(db *gorm.DB) error {
	m.migrated = true
	return nil
}

func (m *fakeModule) Init() error {
	m.inited = true
	return m.initErr
}

func newRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:         make(map[string]Module),
		disabledModules: make(map[string]bool),
	}
}

func TestLoadAllRunsModulesInRegistrationOrder(t *testing.T) {
	registry := newRegistry()
	first := &fakeModule{id: "test.first", name: "First"}
	second := &fakeModule{id: "test.second", name: "Second"}
	registry.Register(first)
	registry.Register(second)

	require.NoError(t, registry.LoadAll(nil))
	assert.True(t, first.migrated)
	assert.True(t, first.inited)
	assert.True(t, second.migrated)
	assert.True(t, second.inited)

	modules := registry.ListModules()
	require.Len(t, modules, 2)
	assert.Equal(t, "test.first", modules[0].ID())
	assert.Equal(t, "test.second", modules[1].ID())
}

func TestLoadAllStopsOnInitFailure(t *testing.T) {
	registry := newRegistry()
	broken := &fakeModule{id: "test.broken", name: "Broken", initErr: fmt.Errorf("boom")}
	after := &fakeModule{id: "test.after", name: "After"}
	registry.Register(broken)
	registry.Register(after)

	err := registry.LoadAll(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
	assert.False(t, after.inited)
}

func TestDisabledModuleIsSkipped(t *testing.T) {
	registry := newRegistry()
	optional := &fakeModule{id: "test.optional", name: "Optional"}
	registry.Register(optional)
	registry.DisableModule("test.optional")

	require.NoError(t, registry.LoadAll(nil))
	assert.False(t, optional.inited)
}

func TestCoreModuleCannotBeDisabled(t *testing.T) {
	registry := newRegistry()
	core := &fakeModule{id: "test.core", name: "Core", core: true}
	registry.Register(core)
	registry.DisableModule("test.core")

	require.NoError(t, registry.LoadAll(nil))
	assert.True(t, core.inited)
}

func TestGetModule(t *testing.T) {
	registry := newRegistry()
	module := &fakeModule{id: "test.lookup", name: "Lookup"}
	registry.Register(module)

	found, ok := registry.GetModule("test.lookup")
	require.True(t, ok)
	assert.Equal(t, "test.lookup", found.ID())

	_, ok = registry.GetModule("test.missing")
	assert.False(t, ok)
}

func TestReRegisterReplacesWithoutDuplicatingOrder(t *testing.T) {
	registry := newRegistry()
	registry.Register(&fakeModule{id: "test.dup", name: "Old"})
	registry.Register(&fakeModule{id: "test.dup", name: "New"})

	modules := registry.ListModules()
	require.Len(t, modules, 1)
	assert.Equal(t, "New", modules[0].Name())
}

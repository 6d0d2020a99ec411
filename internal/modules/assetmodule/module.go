package assetmodule

import (
	"gorm.io/gorm"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/logger"
	"github.com/showline/showline/internal/modules/modulemanager"
	"github.com/showline/showline/internal/storage"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:      "system.assets",
		name:    "Cover Image Assets",
		version: "1.0.0",
		core:    true,
	})
}

// Module handles cover image uploads for the studio.
type Module struct {
	id          string
	name        string
	version     string
	core        bool
	checker     auth.CapabilityChecker
	blobs       storage.BlobStore
	manager     *Manager
	initialized bool
}

// ID returns the module ID
func (m *Module) ID() string {
	return m.id
}

// Name returns the module name
func (m *Module) Name() string {
	return m.name
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return m.core
}

// Migrate handles database schema migrations. Asset state lives entirely in
// blob storage and the file ledger, so there is nothing to migrate.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init initializes the module
func (m *Module) Init() error {
	if m.initialized {
		return nil
	}

	cfg := config.Get()
	if m.checker == nil {
		m.checker = auth.NewServiceChecker(cfg.Auth.ServiceURL, cfg.Auth.Timeout)
	}
	if m.blobs == nil {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			logger.Warn("⚠️ Blob storage unavailable, cover uploads disabled: %v", err)
		} else {
			m.blobs = client
		}
	}

	m.manager = NewManager(m.blobs, cfg.Assets, cfg.Storage)
	m.initialized = true
	return nil
}

// SetCollaborators overrides the external collaborators; used by tests.
func (m *Module) SetCollaborators(checker auth.CapabilityChecker, blobs storage.BlobStore) {
	m.checker = checker
	m.blobs = blobs
}

// Manager returns the asset manager
func (m *Module) Manager() *Manager {
	return m.manager
}

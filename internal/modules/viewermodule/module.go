package viewermodule

import (
	"gorm.io/gorm"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
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
		id:      "system.viewer",
		name:    "Viewer Read Paths",
		version: "1.0.0",
		core:    true,
	})
}

// Module serves the consumer-facing read API: season overviews, episode
// listings, and playback resolution.
type Module struct {
	id          string
	name        string
	version     string
	core        bool
	db          *gorm.DB
	checker     auth.CapabilityChecker
	blobs       storage.BlobStore
	history     HistoryClient
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

// Migrate handles database schema migrations. The viewer reads tables owned
// by the season module, so there is nothing to migrate here.
func (m *Module) Migrate(db *gorm.DB) error {
	m.db = db
	return nil
}

// Init initializes the module
func (m *Module) Init() error {
	if m.initialized {
		return nil
	}
	if m.db == nil {
		m.db = database.GetDB()
	}

	cfg := config.Get()
	if m.checker == nil {
		m.checker = auth.NewServiceChecker(cfg.Auth.ServiceURL, cfg.Auth.Timeout)
	}
	if m.history == nil {
		m.history = NewHTTPHistoryClient(cfg.Viewer.HistoryServiceURL, cfg.Viewer.Timeout)
	}
	if m.blobs == nil {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			// Playback cannot work without blob storage, but overview and
			// listing paths still can; keep the server bootable in dev.
			logger.Warn("⚠️ Blob storage unavailable, playback URLs disabled: %v", err)
		} else {
			m.blobs = client
		}
	}

	m.manager = NewManager(m.db, m.blobs, m.history, cfg.Storage, cfg.Publishing.PageSizeCap)
	m.initialized = true
	return nil
}

// SetCollaborators overrides the external collaborators; used by tests and
// by the server when it constructs shared clients.
func (m *Module) SetCollaborators(checker auth.CapabilityChecker, blobs storage.BlobStore, history HistoryClient) {
	m.checker = checker
	m.blobs = blobs
	m.history = history
}

// Manager returns the viewer manager
func (m *Module) Manager() *Manager {
	return m.manager
}

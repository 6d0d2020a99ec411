package filemodule

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:      "system.media.files",
		name:    "Media File Ledger",
		version: "1.0.0",
		core:    true,
	})
}

// Module tracks the usage state of every video and cover image blob
type Module struct {
	id          string
	name        string
	version     string
	core        bool
	db          *gorm.DB
	eventBus    events.EventBus
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

// Migrate handles database schema migrations
func (m *Module) Migrate(db *gorm.DB) error {
	log.Println("Migrating media file ledger schema")

	if err := db.AutoMigrate(&database.VideoFile{}, &database.DeletingCoverImageFile{}); err != nil {
		return fmt.Errorf("failed to migrate media file ledger schema: %w", err)
	}

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

	m.eventBus = events.GetGlobalEventBus()
	m.manager = NewManager(m.db, m.eventBus)
	m.initialized = true
	return nil
}

// Manager returns the ledger manager for use by other modules
func (m *Module) Manager() *Manager {
	return m.manager
}

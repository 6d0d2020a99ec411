package seasonmodule

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/modules/filemodule"
	"github.com/showline/showline/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:      "system.seasons",
		name:    "Season Publishing",
		version: "1.0.0",
		core:    true,
	})
}

// Module owns the publisher-facing studio API: season lifecycle, episode
// drafts and uploads, publishing, ordering, and grade scheduling.
type Module struct {
	id          string
	name        string
	version     string
	core        bool
	db          *gorm.DB
	eventBus    events.EventBus
	checker     auth.CapabilityChecker
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
	log.Println("Migrating season publishing schema")

	if err := db.AutoMigrate(
		&database.Season{},
		&database.SeasonGrade{},
		&database.EpisodeDraft{},
		&database.Episode{},
	); err != nil {
		return fmt.Errorf("failed to migrate season publishing schema: %w", err)
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

	cfg := config.Get()
	m.eventBus = events.GetGlobalEventBus()
	if m.checker == nil {
		m.checker = auth.NewServiceChecker(cfg.Auth.ServiceURL, cfg.Auth.Timeout)
	}

	fileModule, ok := modulemanager.GetModule("system.media.files")
	if !ok {
		return fmt.Errorf("season module requires the media file ledger")
	}
	files := fileModule.(*filemodule.Module).Manager()

	m.manager = NewManager(m.db, m.eventBus, files, cfg.Publishing)
	m.initialized = true
	return nil
}

// SetCapabilityChecker overrides the auth collaborator; used by tests and by
// the server when it constructs a shared checker.
func (m *Module) SetCapabilityChecker(checker auth.CapabilityChecker) {
	m.checker = checker
}

// Manager returns the season manager for use by other modules
func (m *Module) Manager() *Manager {
	return m.manager
}

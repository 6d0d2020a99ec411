package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Blob storage configuration
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Capability/session exchange service
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Publishing rules and limits
	Publishing PublishingConfig `yaml:"publishing" json:"publishing"`

	// Consumer read path collaborators
	Viewer ViewerConfig `yaml:"viewer" json:"viewer"`

	// Cover image processing configuration
	Assets AssetConfig `yaml:"assets" json:"assets"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string        `yaml:"host" json:"host" env:"SHOWLINE_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" json:"port" env:"SHOWLINE_PORT" default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" env:"SHOWLINE_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" env:"SHOWLINE_WRITE_TIMEOUT" default:"30s"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"SHOWLINE_MAX_HEADER_BYTES" default:"1048576"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" env:"SHOWLINE_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds database connection options
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	Host         string `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port         int    `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username     string `yaml:"username" json:"username" env:"POSTGRES_USER" default:"showline"`
	Password     string `yaml:"password" json:"password" env:"POSTGRES_PASSWORD"`
	Database     string `yaml:"database" json:"database" env:"POSTGRES_DB" default:"showline"`
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"SHOWLINE_DATA_DIR" default:"/app/showline-data"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"SHOWLINE_DATABASE_PATH"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// StorageConfig holds blob storage settings. Bucket names are injected here
// rather than referenced as ambient globals.
type StorageConfig struct {
	Endpoint         string        `yaml:"endpoint" json:"endpoint" env:"STORAGE_ENDPOINT"`
	Region           string        `yaml:"region" json:"region" env:"STORAGE_REGION" default:"auto"`
	AccessKey        string        `yaml:"access_key" json:"access_key" env:"STORAGE_ACCESS_KEY"`
	SecretKey        string        `yaml:"secret_key" json:"secret_key" env:"STORAGE_SECRET_KEY"`
	VideoBucket      string        `yaml:"video_bucket" json:"video_bucket" env:"STORAGE_VIDEO_BUCKET" default:"showline-videos"`
	CoverImageBucket string        `yaml:"cover_image_bucket" json:"cover_image_bucket" env:"STORAGE_COVER_BUCKET" default:"showline-covers"`
	SignedURLTTL     time.Duration `yaml:"signed_url_ttl" json:"signed_url_ttl" env:"STORAGE_SIGNED_URL_TTL" default:"4h"`
}

// AuthConfig points at the external capability/session exchange service
type AuthConfig struct {
	ServiceURL string        `yaml:"service_url" json:"service_url" env:"AUTH_SERVICE_URL" default:"http://localhost:8081"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"AUTH_TIMEOUT" default:"5s"`
}

// PublishingConfig holds the numeric rules of the publishing core
type PublishingConfig struct {
	// GradeChangeLeadTime is the minimum gap between "now" and the effective
	// timestamp of a scheduled grade change on a published season.
	GradeChangeLeadTime time.Duration `yaml:"grade_change_lead_time" json:"grade_change_lead_time" env:"SHOWLINE_GRADE_LEAD_TIME" default:"24h"`
	MaxVideoSize        int64         `yaml:"max_video_size" json:"max_video_size" env:"SHOWLINE_MAX_VIDEO_SIZE" default:"10737418240"`
	PageSizeCap         int           `yaml:"page_size_cap" json:"page_size_cap" env:"SHOWLINE_PAGE_SIZE_CAP" default:"100"`
}

// ViewerConfig points at the watch-history service used for continuation
// lookups on the consumer read paths
type ViewerConfig struct {
	HistoryServiceURL string        `yaml:"history_service_url" json:"history_service_url" env:"HISTORY_SERVICE_URL" default:"http://localhost:8082"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" env:"HISTORY_TIMEOUT" default:"5s"`
}

// AssetConfig holds cover image processing configuration
type AssetConfig struct {
	MaxFileSize    int64 `yaml:"max_file_size" json:"max_file_size" env:"SHOWLINE_MAX_COVER_SIZE" default:"10485760"`
	DefaultQuality int   `yaml:"default_quality" json:"default_quality" env:"SHOWLINE_COVER_QUALITY" default:"90"`
	MaxWidth       int   `yaml:"max_width" json:"max_width" env:"SHOWLINE_COVER_MAX_WIDTH" default:"1920"`
	MaxHeight      int   `yaml:"max_height" json:"max_height" env:"SHOWLINE_COVER_MAX_HEIGHT" default:"1080"`
}

// ConfigManager handles loading, validation and access to the configuration
type ConfigManager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1MB
			EnableCORS:     true,
		},
		Database: DatabaseConfig{
			Type:       "sqlite",
			Host:       "localhost",
			Port:       5432,
			Username:   "showline",
			Database:   "showline",
			DataDir:    "/app/showline-data",
			LogQueries: false,
		},
		Storage: StorageConfig{
			Region:           "auto",
			VideoBucket:      "showline-videos",
			CoverImageBucket: "showline-covers",
			SignedURLTTL:     4 * time.Hour,
		},
		Auth: AuthConfig{
			ServiceURL: "http://localhost:8081",
			Timeout:    5 * time.Second,
		},
		Publishing: PublishingConfig{
			GradeChangeLeadTime: 24 * time.Hour,
			MaxVideoSize:        10 * 1024 * 1024 * 1024, // 10GB
			PageSizeCap:         100,
		},
		Viewer: ViewerConfig{
			HistoryServiceURL: "http://localhost:8082",
			Timeout:           5 * time.Second,
		},
		Assets: AssetConfig{
			MaxFileSize:    10 * 1024 * 1024, // 10MB
			DefaultQuality: 90,
			MaxWidth:       1920,
			MaxHeight:      1080,
		},
	}
}

// LoadConfig loads configuration from file (if present) and environment
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.configPath = configPath

	// Start with default configuration
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
		log.Printf("✅ Configuration loaded from file: %s", configPath)
	}

	// Override with environment variables
	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Apply derived configurations
	applyDerivedConfig(newConfig)

	cm.config = newConfig
	log.Printf("✅ Configuration loaded successfully")
	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	// Return a copy to prevent external modifications
	configCopy := *cm.config
	return &configCopy
}

// Helper methods

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		// Handle nested structs recursively
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Publishing.GradeChangeLeadTime <= 0 {
		return fmt.Errorf("invalid grade change lead time: %s", config.Publishing.GradeChangeLeadTime)
	}

	if config.Publishing.PageSizeCap < 1 {
		return fmt.Errorf("invalid page size cap: %d", config.Publishing.PageSizeCap)
	}

	if config.Assets.MaxFileSize <= 0 {
		return fmt.Errorf("invalid max cover file size: %d", config.Assets.MaxFileSize)
	}

	return nil
}

func applyDerivedConfig(config *Config) {
	// Set derived database path if not explicitly set
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "showline.db")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

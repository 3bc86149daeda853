package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "routeplay.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	DumpPath     string
	DumpInterval time.Duration
}

// StorageConfig selects and configures the route store.
type StorageConfig struct {
	Type     string // memory, sqlite, postgres or api
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	CacheTTL time.Duration
}

// OTelConfig holds the OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// PlaybackConfig holds the timing of the playback loop.
type PlaybackConfig struct {
	StartDelay       time.Duration
	SegmentPause     time.Duration
	LoopDelay        time.Duration
	Ground           time.Duration
	Air              time.Duration
	FrameInterval    time.Duration
	PickupProgress   int
	AirProgress      int
	DeliveryProgress int
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("timezone", "America/Sao_Paulo")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.secret", "")

	viper.SetDefault("playback.startDelay", "1500ms")
	viper.SetDefault("playback.segmentPause", "500ms")
	viper.SetDefault("playback.loopDelay", "4s")
	viper.SetDefault("playback.ground", "3s")
	viper.SetDefault("playback.air", "8s")
	viper.SetDefault("playback.pickupProgress", 10)
	viper.SetDefault("playback.airProgress", 50)
	viper.SetDefault("playback.deliveryProgress", 100)
	viper.SetDefault("frame.interval", "16ms")

	viper.SetDefault("layout.sidebar", true)
	viper.SetDefault("layout.flightCards", 4)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.cacheTTL", "5m")
	viper.SetDefault("storage.memory.outputDir", "./routes")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpPath", "./routes.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "routeplay")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "routeplay")
	viper.SetDefault("influx.sampleInterval", "1s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "routeplay")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "10s")
}

// GetStorageConfig returns the storage.* settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		CacheTTL: viper.GetDuration("storage.cacheTTL"),
	}
}

// GetOTelConfig returns the otel.* settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetPlaybackConfig returns the playback.* and frame.* settings.
func GetPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		StartDelay:       viper.GetDuration("playback.startDelay"),
		SegmentPause:     viper.GetDuration("playback.segmentPause"),
		LoopDelay:        viper.GetDuration("playback.loopDelay"),
		Ground:           viper.GetDuration("playback.ground"),
		Air:              viper.GetDuration("playback.air"),
		FrameInterval:    viper.GetDuration("frame.interval"),
		PickupProgress:   viper.GetInt("playback.pickupProgress"),
		AirProgress:      viper.GetInt("playback.airProgress"),
		DeliveryProgress: viper.GetInt("playback.deliveryProgress"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

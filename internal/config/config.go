package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorldConfig struct {
	Name            string        `yaml:"name"`
	Seed            int64         `yaml:"seed"`
	TicksPerSecond  int           `yaml:"ticks_per_second"`
	RandomTickSpeed int           `yaml:"random_tick_speed"` // Отрицательное значение отключает случайные тики
	MaxUpdateDepth  int           `yaml:"max_update_depth"`
	PreloadRadius   int           `yaml:"preload_radius"` // Радиус в чанках вокруг спавна
	SpawnY          int           `yaml:"spawn_y"`
	SaveInterval    time.Duration `yaml:"save_interval"`
	IOConcurrency   int           `yaml:"io_concurrency"`
}

type StorageConfig struct {
	DataPath      string        `yaml:"data_path"` // Пусто: база в памяти
	RedisURL      string        `yaml:"redis_url"` // Пусто: кеш в памяти процесса
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // Пусто: шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort       int           `yaml:"rest_port"`
	EnableMetrics  bool          `yaml:"enable_metrics"`
	DeltaRetention time.Duration `yaml:"delta_retention"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Name:            "overworld",
			Seed:            1,
			TicksPerSecond:  20,
			RandomTickSpeed: 3,
			MaxUpdateDepth:  64,
			PreloadRadius:   2,
			SpawnY:          64,
			SaveInterval:    time.Minute,
			IOConcurrency:   4,
		},
		Storage: StorageConfig{
			CacheTTL: 5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Stream:    "BLOCKTICK",
			Retention: 24,
			Buffer:    1024,
		},
		Server: ServerConfig{
			EnableMetrics:  true,
			DeltaRetention: time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blocktick",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKTICK_REST_PORT", 8088)
}

// GetDataPath возвращает каталог данных: config -> env -> пусто (память)
func (s *StorageConfig) GetDataPath() string {
	return getStringWithEnvFallback(s.DataPath, "BLOCKTICK_DATA_PATH")
}

// GetRedisURL возвращает адрес Redis: config -> env
func (s *StorageConfig) GetRedisURL() string {
	return getStringWithEnvFallback(s.RedisURL, "BLOCKTICK_REDIS_URL")
}

// GetURL возвращает адрес NATS: config -> env
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "BLOCKTICK_NATS_URL")
}

// RetentionDuration переводит часы хранения в time.Duration
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

func getStringWithEnvFallback(configValue, envVar string) string {
	if configValue != "" {
		return configValue
	}
	return os.Getenv(envVar)
}

// Validate проверяет значения, которые нельзя исправить умолчаниями
func (c *Config) Validate() error {
	if c.World.TicksPerSecond <= 0 || c.World.TicksPerSecond > 1000 {
		return fmt.Errorf("world.ticks_per_second вне диапазона: %d", c.World.TicksPerSecond)
	}
	if c.World.MaxUpdateDepth <= 0 {
		return fmt.Errorf("world.max_update_depth должен быть положительным: %d", c.World.MaxUpdateDepth)
	}
	if c.World.PreloadRadius < 0 {
		return fmt.Errorf("world.preload_radius отрицательный: %d", c.World.PreloadRadius)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV BLOCKTICK_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BLOCKTICK_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AutoPort is the serial port sentinel that triggers discovery.
const AutoPort = "AUTO"

// Config is built once at startup and handed to every constructor by value or pointer.
// Nothing mutates it after Load returns.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Serial   SerialConfig   `mapstructure:"serial"`
	Heater   HeaterConfig   `mapstructure:"heater"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Buffers  BufferConfig   `mapstructure:"buffers"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Analog   AnalogConfig   `mapstructure:"analog"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	Events   EventsConfig   `mapstructure:"events"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// SerialConfig carries the endpoint settings and the link retry policy.
type SerialConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Port              string        `mapstructure:"port"`
	BaudRate          int           `mapstructure:"baud_rate"`
	DataBits          int           `mapstructure:"data_bits"`
	StopBits          int           `mapstructure:"stop_bits"`
	Parity            string        `mapstructure:"parity"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ProbeAttempts     int           `mapstructure:"probe_attempts"`
	ProbeDelay        time.Duration `mapstructure:"probe_delay"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	StopTimeout       time.Duration `mapstructure:"stop_timeout"`
}

type HeaterConfig struct {
	TempMin           float64       `mapstructure:"temp_min"`
	TempMax           float64       `mapstructure:"temp_max"`
	InitialTemp       float64       `mapstructure:"initial_temp"`
	EcoTemp           float64       `mapstructure:"eco_temp"`
	CleanTemp         float64       `mapstructure:"clean_temp"`
	CleanThresholdC   float64       `mapstructure:"clean_threshold_c"`
	CleanTriggerHours float64       `mapstructure:"clean_trigger_hours"`
	CleanExitDuration time.Duration `mapstructure:"clean_exit_duration"`
}

type ChartConfig struct {
	Limit          int           `mapstructure:"limit"`
	RedrawInterval time.Duration `mapstructure:"redraw_interval"`
	MaxSkips       int           `mapstructure:"max_skips"`
}

// BufferConfig holds the append-time caps of the bounded collections.
type BufferConfig struct {
	DataLog int `mapstructure:"data_log"`
	Chart   int `mapstructure:"chart"`
	Analog  int `mapstructure:"analog"`
	Errors  int `mapstructure:"errors"`
}

// TrimPolicy is the sweeper rule for one collection.
type TrimPolicy struct {
	HighWater int `mapstructure:"high_water"`
	Retain    int `mapstructure:"retain"`
	Emergency int `mapstructure:"emergency"`
}

type SweeperConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	MemoryInterval time.Duration `mapstructure:"memory_interval"`
	MemoryLimitMB  float64       `mapstructure:"memory_limit_mb"`
	DataLog        TrimPolicy    `mapstructure:"data_log"`
	Chart          TrimPolicy    `mapstructure:"chart"`
	Analog         TrimPolicy    `mapstructure:"analog"`
	Errors         TrimPolicy    `mapstructure:"errors"`
}

type AnalogConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	All5Min      float64       `mapstructure:"all5_min"`
	All5Max      float64       `mapstructure:"all5_max"`
	All0Min      float64       `mapstructure:"all0_min"`
	All0Max      float64       `mapstructure:"all0_max"`
}

type ConsumerConfig struct {
	Tick            time.Duration `mapstructure:"tick"`
	PersistInterval time.Duration `mapstructure:"persist_interval"`
}

// EventsConfig bounds the event journal. Zero MaxAge or MaxRows disables that bound;
// a zero ErrorInterval stores every ERROR event.
type EventsConfig struct {
	MaxAge        time.Duration `mapstructure:"max_age"`
	MaxRows       int           `mapstructure:"max_rows"`
	ErrorInterval time.Duration `mapstructure:"error_interval"`
}

var (
	errRetainAboveHighWater = errors.New("retain must be below high_water")
	errEmergencyAboveRetain = errors.New("emergency must not exceed retain")
	errTempBounds           = errors.New("heater temp_min must be below temp_max")
	errNonPositive          = errors.New("value must be positive")
	errNegative             = errors.New("value must not be negative")
)

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "heater.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("serial.enabled", true)
	v.SetDefault("serial.port", AutoPort)
	v.SetDefault("serial.baud_rate", 250000)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.read_timeout", 100*time.Millisecond)
	v.SetDefault("serial.stale_timeout", 15*time.Second)
	v.SetDefault("serial.max_retries", 10)
	v.SetDefault("serial.reconnect_delay", 2*time.Second)
	v.SetDefault("serial.reconnect_interval", 30*time.Second)
	v.SetDefault("serial.poll_interval", 50*time.Millisecond)
	v.SetDefault("serial.probe_attempts", 10)
	v.SetDefault("serial.probe_delay", 100*time.Millisecond)
	v.SetDefault("serial.probe_timeout", 2*time.Second)
	v.SetDefault("serial.stop_timeout", 5*time.Second)

	v.SetDefault("heater.temp_min", 30.0)
	v.SetDefault("heater.temp_max", 75.0)
	v.SetDefault("heater.initial_temp", 30.0)
	v.SetDefault("heater.eco_temp", 55.0)
	v.SetDefault("heater.clean_temp", 75.0)
	v.SetDefault("heater.clean_threshold_c", 75.0)
	v.SetDefault("heater.clean_trigger_hours", 72.0)
	v.SetDefault("heater.clean_exit_duration", 180*time.Second)

	v.SetDefault("chart.limit", 200)
	v.SetDefault("chart.redraw_interval", 2*time.Second)
	v.SetDefault("chart.max_skips", 3)

	v.SetDefault("buffers.data_log", 20000)
	v.SetDefault("buffers.chart", 250)
	v.SetDefault("buffers.analog", 5000)
	v.SetDefault("buffers.errors", 500)

	v.SetDefault("sweeper.interval", 5*time.Minute)
	v.SetDefault("sweeper.memory_interval", 30*time.Second)
	v.SetDefault("sweeper.memory_limit_mb", 500.0)
	setPolicyDefaults(v, "sweeper.data_log", 15000, 10000, 500)
	setPolicyDefaults(v, "sweeper.chart", 225, 200, 200)
	setPolicyDefaults(v, "sweeper.analog", 2500, 1000, 200)
	setPolicyDefaults(v, "sweeper.errors", 250, 100, 50)

	v.SetDefault("analog.enabled", false)
	v.SetDefault("analog.poll_interval", 500*time.Millisecond)
	v.SetDefault("analog.all5_min", 4.5)
	v.SetDefault("analog.all5_max", 5.0)
	v.SetDefault("analog.all0_min", 0.0)
	v.SetDefault("analog.all0_max", 0.44)

	v.SetDefault("consumer.tick", 500*time.Millisecond)
	v.SetDefault("consumer.persist_interval", 10*time.Second)

	v.SetDefault("events.max_age", 30*24*time.Hour)
	v.SetDefault("events.max_rows", 200000)
	v.SetDefault("events.error_interval", time.Minute)
}

func setPolicyDefaults(v *viper.Viper, prefix string, high, retain, emergency int) {
	v.SetDefault(prefix+".high_water", high)
	v.SetDefault(prefix+".retain", retain)
	v.SetDefault(prefix+".emergency", emergency)
}

// Load reads configs/config.yml (when present) under dir, applies HEATERMON_* environment
// overrides and defaults, and validates the result.
func Load(dir string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix("HEATERMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate rejects combinations the components cannot honour.
func (c *Config) Validate() error {
	if c.Heater.TempMin >= c.Heater.TempMax {
		return errTempBounds
	}
	for name, p := range map[string]TrimPolicy{
		"data_log": c.Sweeper.DataLog,
		"chart":    c.Sweeper.Chart,
		"analog":   c.Sweeper.Analog,
		"errors":   c.Sweeper.Errors,
	} {
		if p.Retain >= p.HighWater {
			return fmt.Errorf("sweeper.%s: %w", name, errRetainAboveHighWater)
		}
		if p.Emergency > p.Retain {
			return fmt.Errorf("sweeper.%s: %w", name, errEmergencyAboveRetain)
		}
	}
	for name, n := range map[string]int{
		"buffers.data_log":   c.Buffers.DataLog,
		"buffers.chart":      c.Buffers.Chart,
		"buffers.analog":     c.Buffers.Analog,
		"buffers.errors":     c.Buffers.Errors,
		"chart.limit":        c.Chart.Limit,
		"serial.max_retries": c.Serial.MaxRetries,
	} {
		if n <= 0 {
			return fmt.Errorf("%s: %w", name, errNonPositive)
		}
	}
	if c.Consumer.Tick <= 0 || c.Sweeper.Interval <= 0 || c.Sweeper.MemoryInterval <= 0 {
		return fmt.Errorf("consumer.tick/sweeper intervals: %w", errNonPositive)
	}
	if c.Events.MaxAge < 0 || c.Events.MaxRows < 0 || c.Events.ErrorInterval < 0 {
		return fmt.Errorf("events: %w", errNegative)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/mcls"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/transfers"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrNoConfigFile = errors.New("config file not found")

// Config is the configuration shared by the preprocessing and the engine binaries.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Routing  RoutingConfig  `yaml:"routing"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr" validate:"required"`
	SwaggerHost string `yaml:"swagger_host" validate:"required"`
	// concurrent requests served before the rest wait, 0 is unlimited
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" validate:"gte=0"`
	// separate listener for /metrics, empty serves it on ListenAddr
	MetricsAddr string `yaml:"metrics_addr"`
}

type DataConfig struct {
	OsmFile string `yaml:"osm_file" validate:"required"`
	// feed id -> GTFS zip
	GtfsFeeds map[string]string `yaml:"gtfs_feeds" validate:"required,min=1,dive,keys,required,endkeys,required"`
	Dir       string            `yaml:"dir" validate:"required"`
	// street components smaller than this are not walkable
	MinNetworkSize int `yaml:"min_network_size" validate:"gte=0"`
}

type RoutingConfig struct {
	WalkSpeedKmh float64 `yaml:"walk_speed_kmh" validate:"gt=0,lte=30"`
	// walk speed used while interpolating transfers between platforms
	TransferWalkSpeedKmh      float64 `yaml:"transfer_walk_speed_kmh" validate:"gt=0,lte=30"`
	MaxTransferWalkSeconds    int     `yaml:"max_transfer_walk_seconds" validate:"gte=0"`
	MaxVisitedNodes           int     `yaml:"max_visited_nodes" validate:"gt=0"`
	LimitStreetTimeSeconds    int     `yaml:"limit_street_time_seconds" validate:"gte=0"`
	MaxProfileDurationSeconds int     `yaml:"max_profile_duration_seconds" validate:"gte=0"`
	LimitSolutions            int     `yaml:"limit_solutions" validate:"gte=0"`
	BetaTransfers             float64 `yaml:"beta_transfers" validate:"gte=0"`
	BetaStreetTime            float64 `yaml:"beta_street_time" validate:"gte=0"`
	// route type -> seconds added to the weight of boarding it
	BoardingPenaltySeconds map[int]int `yaml:"boarding_penalty_seconds" validate:"dive,gte=0"`
	LeastWaitEnter         bool        `yaml:"least_wait_enter"`
	SnapMaxDistanceMeters  float64     `yaml:"snap_max_distance_meters" validate:"gt=0"`

	TripBasedMaxRounds     int `yaml:"trip_based_max_rounds" validate:"gt=0,lte=10"`
	MaxTripTransferSeconds int `yaml:"max_trip_transfer_seconds" validate:"gte=0"`
	TripTransferCacheDays  int `yaml:"trip_transfer_cache_days" validate:"gt=0"`
	Workers                int `yaml:"workers" validate:"gte=0"`
}

type RealtimeConfig struct {
	// feed id -> GTFS-RT trip updates url
	FeedURLs            map[string]string `yaml:"feed_urls" validate:"dive,url"`
	PollIntervalSeconds int               `yaml:"poll_interval_seconds" validate:"gte=0"`
	StaleAfterSeconds   int               `yaml:"stale_after_seconds" validate:"gte=0"`
	NatsURL             string            `yaml:"nats_url" validate:"omitempty,url"`
	NatsSubject         string            `yaml:"nats_subject" validate:"required_with=NatsURL"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Console    bool   `yaml:"console"`
	File       bool   `yaml:"file"`
	FilePath   string `yaml:"file_path" validate:"required_if=File true"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:  ":5000",
			SwaggerHost: "localhost:5000",
		},
		Data: DataConfig{
			OsmFile:        "solo_jogja.osm.pbf",
			Dir:            "./data",
			MinNetworkSize: 200,
		},
		Routing: RoutingConfig{
			WalkSpeedKmh:              explorer.DefaultWalkSpeedKmh,
			TransferWalkSpeedKmh:      explorer.DefaultWalkSpeedKmh,
			MaxTransferWalkSeconds:    int(transfers.DefaultMaxTransferWalkTime.Seconds()),
			MaxVisitedNodes:           mcls.DefaultMaxVisitedNodes,
			LimitStreetTimeSeconds:    30 * 60,
			MaxProfileDurationSeconds: 60 * 60,
			SnapMaxDistanceMeters:     1000,
			TripBasedMaxRounds:        tripbased.DefaultMaxRounds,
			MaxTripTransferSeconds:    tripbased.DefaultMaxTransferTime,
			TripTransferCacheDays:     tripbased.DefaultCacheSize,
		},
		Realtime: RealtimeConfig{
			PollIntervalSeconds: 30,
			StaleAfterSeconds:   60 * 60,
			NatsSubject:         "gtfsrt",
		},
		Log: LogConfig{
			Level:      "info",
			Console:    true,
			FilePath:   "navigatorx-pt.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load reads the first yaml file of paths that exists over the defaults, applies the environment
// overrides (a .env file is loaded when present) and validates the result.
func Load(paths ...string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var data []byte
	var err error = ErrNoConfigFile
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %v: %w", paths, err)
	}
	return Parse(data)
}

// Parse decodes a yaml document over the defaults, applies the environment overrides and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	v := validator.New()
	sections := []struct {
		name    string
		section interface{}
	}{
		{"server", cfg.Server},
		{"data", cfg.Data},
		{"routing", cfg.Routing},
		{"realtime", cfg.Realtime},
		{"log", cfg.Log},
	}
	for _, s := range sections {
		if err := v.Struct(s.section); err != nil {
			return fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}
	return nil
}

// applyEnv lets NAVX_* variables override the file.
func applyEnv(cfg *Config) error {
	cfg.Server.ListenAddr = getenvDefault("NAVX_LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.SwaggerHost = getenvDefault("NAVX_SWAGGER_HOST", cfg.Server.SwaggerHost)
	cfg.Data.OsmFile = getenvDefault("NAVX_OSM_FILE", cfg.Data.OsmFile)
	cfg.Data.Dir = getenvDefault("NAVX_DATA_DIR", cfg.Data.Dir)
	cfg.Realtime.NatsURL = firstNonEmpty(os.Getenv("NAVX_NATS_URL"), os.Getenv("NATS_URL"), cfg.Realtime.NatsURL)
	cfg.Realtime.NatsSubject = getenvDefault("NAVX_NATS_SUBJECT", cfg.Realtime.NatsSubject)
	cfg.Log.Level = strings.ToLower(getenvDefault("NAVX_LOG_LEVEL", cfg.Log.Level))

	if v := os.Getenv("NAVX_WALK_SPEED_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid NAVX_WALK_SPEED_KMH: %q", v)
		}
		cfg.Routing.WalkSpeedKmh = f
	}
	if v := os.Getenv("NAVX_MAX_VISITED_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid NAVX_MAX_VISITED_NODES: %q", v)
		}
		cfg.Routing.MaxVisitedNodes = n
	}
	if v := os.Getenv("NAVX_POLL_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return fmt.Errorf("invalid NAVX_POLL_INTERVAL_SEC: %q", v)
		}
		cfg.Realtime.PollIntervalSeconds = sec
	}
	if v := os.Getenv("NAVX_MAX_CONCURRENT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid NAVX_MAX_CONCURRENT_REQUESTS: %q", v)
		}
		cfg.Server.MaxConcurrentRequests = n
	}
	if v := os.Getenv("NAVX_LEAST_WAIT_ENTER"); v != "" {
		cfg.Routing.LeastWaitEnter = parseBool(v)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (c RoutingConfig) RouterConfig() ptrouter.Config {
	penalties := make(map[int]int64, len(c.BoardingPenaltySeconds))
	for routeType, sec := range c.BoardingPenaltySeconds {
		penalties[routeType] = int64(sec) * 1000
	}
	return ptrouter.Config{
		WalkSpeedKmh:               c.WalkSpeedKmh,
		MaxVisitedNodes:            c.MaxVisitedNodes,
		LimitStreetTime:            time.Duration(c.LimitStreetTimeSeconds) * time.Second,
		MaxProfileDuration:         time.Duration(c.MaxProfileDurationSeconds) * time.Second,
		LimitSolutions:             c.LimitSolutions,
		BetaTransfers:              c.BetaTransfers,
		BetaStreetTime:             c.BetaStreetTime,
		BoardingPenaltyByRouteType: penalties,
		MaxTripBasedRounds:         c.TripBasedMaxRounds,
		LeastWaitEnter:             c.LeastWaitEnter,
	}
}

func (c RoutingConfig) InterpolationConfig() transfers.Config {
	return transfers.Config{
		MaxTransferWalkTime: time.Duration(c.MaxTransferWalkSeconds) * time.Second,
		WalkSpeedKmh:        c.TransferWalkSpeedKmh,
		Workers:             c.Workers,
	}
}

func (c RoutingConfig) TripTransferConfig() tripbased.TransferConfig {
	return tripbased.TransferConfig{
		MaxTransferTime: c.MaxTripTransferSeconds,
		CacheSize:       c.TripTransferCacheDays,
		Workers:         c.Workers,
	}
}

func (c RealtimeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c RealtimeConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

func (c LogConfig) LoggerConfig() logger.LoggerConfig {
	lc := logger.DefaultLoggerConfig()
	if level, err := zerolog.ParseLevel(c.Level); err == nil {
		lc.Level = level
	}
	lc.Console = c.Console
	lc.File = c.File
	lc.FilePath = c.FilePath
	lc.MaxSizeMB = c.MaxSizeMB
	lc.MaxBackups = c.MaxBackups
	lc.MaxAgeDays = c.MaxAgeDays
	lc.Compress = c.Compress
	return lc
}

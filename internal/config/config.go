package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lakehopper/mapclient/internal/document"
)

const (
	TransportSocket = "socket"
	TransportBridge = "bridge"
)

type Config struct {
	Port             int           `envconfig:"PORT" default:"8080"`
	Transport        string        `envconfig:"TRANSPORT" default:"socket"`
	BackendURL       string        `envconfig:"BACKEND_URL" default:"ws://localhost:8000"`
	DialTimeout      time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	SocketReadLimit  int64         `envconfig:"SOCKET_READ_LIMIT" default:"16777216"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	OperatorPassword string        `envconfig:"OPERATOR_PASSWORD_HASH"`
	AssetDir         string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	AllowedOrigins   string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat        string        `envconfig:"LOG_FORMAT" default:"text"`
	InitialLat       float64       `envconfig:"INITIAL_LAT" default:"50.98"`
	InitialLng       float64       `envconfig:"INITIAL_LNG" default:"4.52"`
	NotificationTTL  time.Duration `envconfig:"NOTIFICATION_TTL" default:"4s"`
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSocket, TransportBridge:
	default:
		return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportSocket, TransportBridge, c.Transport)
	}
	if c.Transport == TransportSocket && c.BackendURL == "" {
		return errors.New("BACKEND_URL is required for the socket transport")
	}
	if c.JWTSecret != "" && c.OperatorPassword == "" {
		return errors.New("OPERATOR_PASSWORD_HASH is required when JWT_SECRET is set")
	}
	if c.InitialLat < -90 || c.InitialLat > 90 || c.InitialLng < -180 || c.InitialLng > 180 {
		return fmt.Errorf("initial location %v, %v out of range", c.InitialLat, c.InitialLng)
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginHosts returns the origins without scheme, as websocket origin
// patterns expect.
func (c *Config) OriginHosts() []string {
	origins := c.Origins()
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}

func (c *Config) InitialLocation() document.LatLng {
	return document.LatLng{Lat: c.InitialLat, Lng: c.InitialLng}
}

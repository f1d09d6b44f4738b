package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string `env:"APP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL string `env:"DATABASE_URL"`

	AI      AIConfig
	Media   MediaConfig
	Session SessionConfig
	HTTP    HTTPConfig
}

// AIConfig selects and configures the image and chat backends.
type AIConfig struct {
	Provider       string `env:"AI_PROVIDER" envDefault:"gemini"`
	ChatProvider   string `env:"CHAT_PROVIDER" envDefault:"gemini"`
	TimeoutSeconds int    `env:"AI_TIMEOUT_SECONDS" envDefault:"90"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiImageModel string `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	GeminiChatModel  string `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	VisionModel      string `env:"GEMINI_VISION_MODEL"`

	// ServiceAccountFile enables OAuth for the REST Gemini chat client.
	ServiceAccountFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	Vertex VertexConfig
}

// VertexConfig describes the Imagen deployment used when AI_PROVIDER=imagen.
type VertexConfig struct {
	ProjectID          string `env:"VERTEX_PROJECT_ID"`
	Location           string `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	Model              string `env:"VERTEX_IMAGEN_MODEL" envDefault:"imagen-3.0-capability-001"`
	APIKey             string `env:"VERTEX_API_KEY"`
	ServiceAccountJSON string `env:"VERTEX_SERVICE_ACCOUNT_JSON"`
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION"`
	Endpoint        string `env:"S3_ENDPOINT"`
	PublicURL       string `env:"S3_PUBLIC_URL"`
	KeyPrefix       string `env:"S3_KEY_PREFIX"`
	ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	LocalDir        string `env:"MEDIA_LOCAL_DIR"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"7340032"`
	TTLMinutes     int   `env:"SESSION_TTL_MINUTES" envDefault:"60"`
	MaxSessions    int   `env:"MAX_SESSIONS" envDefault:"500"`
}

// HTTPConfig carries transport level knobs.
type HTTPConfig struct {
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, path := range dotenvPaths {
		// Missing files are fine; real env vars win over the file.
		_ = godotenv.Load(path)
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.AI.ChatProvider = strings.ToLower(strings.TrimSpace(c.AI.ChatProvider))
	c.Media.KeyPrefix = strings.Trim(c.Media.KeyPrefix, "/")
	var origins []string
	for _, o := range c.HTTP.AllowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.HTTP.AllowedOrigins = origins
}

// Validate reports configuration that cannot produce a working service.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: APP_PORT cannot be empty")
	}
	switch c.AI.Provider {
	case "gemini", "imagen":
	default:
		return fmt.Errorf("config: unknown AI_PROVIDER %q", c.AI.Provider)
	}
	switch c.AI.ChatProvider {
	case "gemini", "gemini-rest", "openai":
	default:
		return fmt.Errorf("config: unknown CHAT_PROVIDER %q", c.AI.ChatProvider)
	}
	if c.Session.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// AITimeout is the per-call deadline applied to AI backends.
func (c Config) AITimeout() time.Duration {
	if c.AI.TimeoutSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle session is kept.
func (c Config) SessionTTL() time.Duration {
	if c.Session.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

package structs

import "time"

type Config struct {
	Server    *ServerConfig
	Cors      *CorsConfig
	Database  *DatabaseConfig
	Cache     *CacheConfig
	Auth      *AuthConfig
	Email     *EmailConfig
	Import    *ImportConfig
	Stats     *StatsConfig
	RateLimit *RateLimitConfig
}

type ServerConfig struct {
	AppName        string        // StoreAdmin
	Environment    string        // development, production
	Port           string        // :8082
	ReadTimeout    time.Duration // in seconds
	WriteTimeout   time.Duration // in seconds
	IdleTimeout    time.Duration // in seconds
	MaxHeaderBytes int           // in bytes
}

type CorsConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      bool
	MaxConns     int
	MinConns     int
	MaxLifetime  time.Duration
	MaxIdleTime  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	QueryTimeout time.Duration // bound applied to every row-store call
	NotifyChan   string        // LISTEN/NOTIFY channel for table changes
}

type CacheConfig struct {
	Address         string
	Username        string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxIdleConns    int
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

type AuthConfig struct {
	AccessTokenSecret string
}

type EmailConfig struct {
	Enabled bool
	ApiKey  string
	From    string
}

type ImportConfig struct {
	VerifyImages   bool
	ImageTimeout   time.Duration
	MaxUploadBytes int64
}

type StatsConfig struct {
	Timezone string        // IANA name used for "today"
	CacheTTL time.Duration // dashboard snapshot TTL
	Debounce time.Duration // delay before recomputing after a change burst
}

type RateLimitConfig struct {
	Enabled      bool
	AdminLimit   int
	AdminWindow  time.Duration
	ImportLimit  int
	ImportWindow time.Duration
}

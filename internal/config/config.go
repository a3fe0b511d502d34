package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// GuardBackendPostgres answers existence checks from the local listings table.
	GuardBackendPostgres = "postgres"
	// GuardBackendRemote answers existence checks from the hosted REST backend.
	GuardBackendRemote = "remote"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database and cache
// connections, the redirect sanitizer, the listing route guard and graceful
// shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// PprofEnabled mounts net/http/pprof under /debug/pprof/
		PprofEnabled bool `env:"HTTP_PPROF_ENABLED" env-default:"false" yaml:"pprofEnabled"`
		// CORSAllowedOrigins lists the origins allowed to call the API; "*" allows any
		CORSAllowedOrigins []string `env:"HTTP_CORS_ALLOWED_ORIGINS" env-default:"https://emvi.app,https://www.emvi.app" env-separator:"," yaml:"corsAllowedOrigins"` //nolint: lll
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"navguard" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Redis configures the existence-check cache
	Redis struct {
		// Enabled turns the existence cache on
		Enabled bool `env:"REDIS_ENABLED" env-default:"true" yaml:"enabled"`
		// Addr is the host:port of the redis server
		Addr string `env:"REDIS_ADDR" env-default:"localhost:6379" yaml:"addr"`
		// Password for redis authentication
		Password string `env:"REDIS_PASSWORD" yaml:"password"`
		// DB selects the redis logical database
		DB int `env:"REDIS_DB" env-default:"0" yaml:"db"`
		// ExistenceTTL is how long a positive existence result is cached
		ExistenceTTL time.Duration `env:"REDIS_EXISTENCE_TTL" env-default:"5m" yaml:"existenceTTL"`
		// NegativeTTL is how long a negative existence result is cached
		NegativeTTL time.Duration `env:"REDIS_NEGATIVE_TTL" env-default:"30s" yaml:"negativeTTL"`
	} `yaml:"redis"`

	// Redirect configures the redirect sanitizer
	Redirect struct {
		// TrustedDomain is the only host accepted in absolute redirect targets
		TrustedDomain string `env:"REDIRECT_TRUSTED_DOMAIN" env-default:"emvi.app" yaml:"trustedDomain"`
		// FallbackPath is returned whenever a target is rejected
		FallbackPath string `env:"REDIRECT_FALLBACK_PATH" env-default:"/jobs" yaml:"fallbackPath"`
		// MaxLength is the maximum accepted target length in characters
		MaxLength int `env:"REDIRECT_MAX_LENGTH" env-default:"200" yaml:"maxLength"`
		// AllowedPrefixes are the path prefixes a target may point into
		AllowedPrefixes []string `env:"REDIRECT_ALLOWED_PREFIXES" env-default:"/jobs,/artists,/salons,/blog,/dashboard,/post-job" env-separator:"," yaml:"allowedPrefixes"` //nolint: lll
		// SignInPrefixes are rejected to prevent redirect loops through sign-in
		SignInPrefixes []string `env:"REDIRECT_SIGN_IN_PREFIXES" env-default:"/signin,/auth/signin,/sign-in" env-separator:"," yaml:"signInPrefixes"` //nolint: lll
		// NestedParams are query parameters stripped from accepted targets
		NestedParams []string `env:"REDIRECT_NESTED_PARAMS" env-default:"redirect,redirect_uri,redirect_to,redirectTo,return_to,returnTo,next,callbackUrl" env-separator:"," yaml:"nestedParams"` //nolint: lll
		// CookieName is the cookie remembering the post-sign-in target
		CookieName string `env:"REDIRECT_COOKIE_NAME" env-default:"post_signin_redirect" yaml:"cookieName"`
		// CookieTTL is the lifetime of the post-sign-in cookie
		CookieTTL time.Duration `env:"REDIRECT_COOKIE_TTL" env-default:"10m" yaml:"cookieTTL"`
		// CookieSecure marks the post-sign-in cookie Secure
		CookieSecure bool `env:"REDIRECT_COOKIE_SECURE" env-default:"true" yaml:"cookieSecure"`
	} `yaml:"redirect"`

	// Guard configures the listing route guard
	Guard struct {
		// Backend selects the existence checker: postgres or remote
		Backend string `env:"GUARD_BACKEND" env-default:"postgres" yaml:"backend"`
		// RemoteBaseURL is the hosted backend URL, required for the remote backend
		RemoteBaseURL string `env:"GUARD_REMOTE_BASE_URL" yaml:"remoteBaseURL"`
		// RemoteAPIKey is sent as the apikey header to the hosted backend
		RemoteAPIKey string `env:"GUARD_REMOTE_API_KEY" yaml:"remoteAPIKey"`
		// CheckTimeout bounds a single existence check
		CheckTimeout time.Duration `env:"GUARD_CHECK_TIMEOUT" env-default:"5s" yaml:"checkTimeout"`
		// LoadingAfter serves the loading page when a check is slower; 0 disables it
		LoadingAfter time.Duration `env:"GUARD_LOADING_AFTER" env-default:"0s" yaml:"loadingAfter"`
	} `yaml:"guard"`

	// Listings configures listing expiration jobs
	Listings struct {
		// SweepInterval is how often expired listings are swept
		SweepInterval time.Duration `env:"LISTINGS_SWEEP_INTERVAL" env-default:"15m" yaml:"sweepInterval"`
		// MaxAttempts is the maximum number of attempts for expiration jobs
		MaxAttempts int `env:"LISTINGS_MAX_ATTEMPTS" env-default:"5" yaml:"maxAttempts"`
		// MaxWorkers is the number of concurrent expiration workers
		MaxWorkers int `env:"LISTINGS_MAX_WORKERS" env-default:"10" yaml:"maxWorkers"`
	} `yaml:"listings"`

	// JWT contains the RSA key pair used for editor tokens
	JWT struct {
		// PublicKey verifies bearer tokens on editor endpoints (PEM)
		PublicKey string `env:"JWT_PUBLIC_KEY" yaml:"publicKey"`
		// PrivateKey signs tokens minted by the jwt command (PEM)
		PrivateKey string `env:"JWT_PRIVATE_KEY" yaml:"privateKey"`
	} `yaml:"jwt"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values cleanenv cannot express as defaults.
func (c *Config) Validate() error {
	var errs []error

	switch c.Guard.Backend {
	case GuardBackendPostgres:
	case GuardBackendRemote:
		if c.Guard.RemoteBaseURL == "" {
			errs = append(errs, errors.New("guard.remoteBaseURL is required for the remote backend"))
		} else if u, err := url.Parse(c.Guard.RemoteBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("guard.remoteBaseURL %q is not an absolute URL", c.Guard.RemoteBaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown guard backend %q", c.Guard.Backend))
	}

	if c.Redirect.MaxLength <= 0 {
		errs = append(errs, errors.New("redirect.maxLength must be positive"))
	}
	if len(c.Redirect.AllowedPrefixes) == 0 {
		errs = append(errs, errors.New("redirect.allowedPrefixes must not be empty"))
	}
	if c.Guard.CheckTimeout < 0 || c.Guard.LoadingAfter < 0 {
		errs = append(errs, errors.New("guard timeouts must not be negative"))
	}
	if c.JWT.PublicKey == "" {
		errs = append(errs, errors.New("jwt.publicKey is required"))
	} else if _, err := jwt.ParseRSAPublicKeyFromPEM([]byte(c.JWT.PublicKey)); err != nil {
		errs = append(errs, fmt.Errorf("jwt.publicKey is not a PEM encoded RSA public key: %w", err))
	}
	if c.Listings.SweepInterval <= 0 {
		errs = append(errs, errors.New("listings.sweepInterval must be positive"))
	}

	return errors.Join(errs...)
}

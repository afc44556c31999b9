package main

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"time"

	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/krypto"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
}

// emailConfig is the configuration for outgoing email.
type emailConfig struct {
	driver        string
	from          email.Address
	postmarkURL   *url.URL
	postmarkToken krypto.Secret
	messageStream string
}

// config is the configuration for the server command.
type config struct {
	http        httpConfig
	email       emailConfig
	dbFile      string
	baseURL     *url.URL
	signingKey  krypto.Key
	tokenIssuer string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	tokenExpiry time.Duration
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
		},
		email: emailConfig{
			driver:        "log",
			from:          "noreply@sharefood.example",
			postmarkURL:   mustParseURL("https://api.postmarkapp.com/email"),
			messageStream: "outbound",
		},
		dbFile:      "sharefood.db",
		baseURL:     mustParseURL("http://localhost:8888"),
		tokenIssuer: "sharefood",
		accessTTL:   time.Hour,
		refreshTTL:  time.Hour * 24 * 14,
		tokenExpiry: time.Hour,
	}
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"DB_FILE": func(v string, c *config) error {
		c.dbFile = v
		return nil
	},
	"BASE_URL": func(v string, c *config) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		c.baseURL = u
		return nil
	},
	"SIGNING_KEY": func(v string, c *config) error {
		key, err := krypto.ParseKey(v)
		if err != nil {
			return err
		}
		c.signingKey = key
		return nil
	},
	"TOKEN_ISSUER": func(v string, c *config) error {
		c.tokenIssuer = v
		return nil
	},
	"ACCESS_TOKEN_TTL": func(v string, c *config) error {
		return confDuration(v, &c.accessTTL, time.Second, math.MaxInt64)
	},
	"REFRESH_TOKEN_TTL": func(v string, c *config) error {
		return confDuration(v, &c.refreshTTL, time.Second, math.MaxInt64)
	},
	"VERIFICATION_TOKEN_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.tokenExpiry, time.Second, math.MaxInt64)
	},
	"EMAIL_DRIVER": func(v string, c *config) error {
		if v != "log" && v != "postmark" {
			return fmt.Errorf("unknown email driver %q", v)
		}
		c.email.driver = v
		return nil
	},
	"EMAIL_FROM": func(v string, c *config) error {
		addr, err := email.ParseAddress(v)
		if err != nil {
			return err
		}
		c.email.from = addr
		return nil
	},
	"POSTMARK_API_URL": func(v string, c *config) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		c.email.postmarkURL = u
		return nil
	},
	"POSTMARK_SERVER_TOKEN": func(v string, c *config) error {
		c.email.postmarkToken = krypto.NewSecret(v)
		return nil
	},
	"POSTMARK_MESSAGE_STREAM": func(v string, c *config) error {
		c.email.messageStream = v
		return nil
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				return c, fmt.Errorf("invalid env variable %s: %w", key, err)
			}
		}
	}

	if len(c.signingKey.SecretValue()) == 0 {
		return c, errors.New("SIGNING_KEY env variable is required")
	}

	if c.email.driver == "postmark" && len(c.email.postmarkToken.SecretValue()) == 0 {
		return c, errors.New("POSTMARK_SERVER_TOKEN env variable is required for the postmark driver")
	}

	return c, nil
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

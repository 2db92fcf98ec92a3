package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// LogConfig is shared by every entry point.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// Dialog configures the slot-filling code hook.
type Dialog struct {
	QueueURL   string `env:"QUEUE_URL" env-required:"true"`
	IntentName string `env:"INTENT_NAME" env-default:"DiningSuggestionsIntent"`
	TimeZone   string `env:"TIME_ZONE" env-default:"America/New_York"`
	Log        LogConfig

	loc *time.Location
}

// Worker configures the queue consumer that searches and emails.
type Worker struct {
	AWSRegion        string        `env:"AWS_REGION" env-required:"true"`
	SearchEndpoint   string        `env:"SEARCH_ENDPOINT" env-required:"true"`
	SearchIndex      string        `env:"SEARCH_INDEX" env-default:"restaurants"`
	SearchField      string        `env:"SEARCH_FIELD" env-default:"restaurant_type"`
	SearchSize       int           `env:"SEARCH_SIZE" env-default:"5"`
	RestaurantTable  string        `env:"RESTAURANT_TABLE" env-default:"yelp-restaurants"`
	LedgerTable      string        `env:"LEDGER_TABLE" env-required:"true"`
	LedgerTTL        time.Duration `env:"LEDGER_TTL" env-default:"168h"`
	LedgerLease      time.Duration `env:"LEDGER_LEASE" env-default:"15m"`
	ParamPrefix      string        `env:"PARAM_PREFIX" env-required:"true"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" env-default:"5"`
	Log              LogConfig
}

// Relay configures the chat front-end proxy.
type Relay struct {
	BotID      string `env:"BOT_ID" env-required:"true"`
	BotAliasID string `env:"BOT_ALIAS_ID" env-required:"true"`
	LocaleID   string `env:"LOCALE_ID" env-default:"en_US"`
	Log        LogConfig
}

func LoadDialog() (*Dialog, error) {
	var cfg Dialog
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func LoadWorker() (*Worker, error) {
	var cfg Worker
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func LoadRelay() (*Relay, error) {
	var cfg Relay
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Dialog) Validate() error {
	if strings.TrimSpace(c.QueueURL) == "" {
		return fmt.Errorf("queue_url must not be blank")
	}
	if strings.TrimSpace(c.IntentName) == "" {
		return fmt.Errorf("intent_name must not be blank")
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.TimeZone))
	if err != nil {
		return fmt.Errorf("time_zone %q: %w", c.TimeZone, err)
	}
	c.loc = loc
	return nil
}

// Location is the zone used to interpret relative dining dates. It is only
// set after Validate succeeds.
func (c *Dialog) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c *Worker) Validate() error {
	if strings.TrimSpace(c.AWSRegion) == "" {
		return fmt.Errorf("aws_region must not be blank")
	}
	if strings.TrimSpace(c.LedgerTable) == "" || strings.TrimSpace(c.RestaurantTable) == "" {
		return fmt.Errorf("table names must not be blank")
	}
	if c.SearchSize <= 0 {
		return fmt.Errorf("search_size must be > 0 (got %d)", c.SearchSize)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch_concurrency must be > 0 (got %d)", c.FetchConcurrency)
	}
	if c.LedgerTTL <= 0 {
		return fmt.Errorf("ledger_ttl must be > 0 (got %s)", c.LedgerTTL)
	}
	if c.LedgerLease <= 0 || c.LedgerLease >= c.LedgerTTL {
		return fmt.Errorf("ledger_lease must be > 0 and shorter than ledger_ttl (got %s)", c.LedgerLease)
	}
	if !strings.HasPrefix(c.SearchEndpoint, "https://") && !strings.HasPrefix(c.SearchEndpoint, "http://") {
		return fmt.Errorf("search_endpoint must be an http(s) URL (got %q)", c.SearchEndpoint)
	}
	if !strings.HasPrefix(c.ParamPrefix, "/") {
		return fmt.Errorf("param_prefix must start with / (got %q)", c.ParamPrefix)
	}
	return nil
}

func (c *Relay) Validate() error {
	if strings.TrimSpace(c.BotID) == "" || strings.TrimSpace(c.BotAliasID) == "" {
		return fmt.Errorf("bot_id and bot_alias_id must not be blank")
	}
	if strings.TrimSpace(c.LocaleID) == "" {
		return fmt.Errorf("locale_id must not be blank")
	}
	return nil
}

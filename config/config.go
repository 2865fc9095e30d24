package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken     string `env:"TELEGRAM_BOT_TOKEN,required"`
	OwnerTelegramID   int64  `env:"OWNER_TELEGRAM_ID,required"`
	PartnerTelegramID int64  `env:"PARTNER_TELEGRAM_ID"`
	DatabasePath      string `env:"DATABASE_PATH" envDefault:"./data/gamecal.db"`
	TimezoneName      string `env:"TIMEZONE" envDefault:"Asia/Seoul"`
	MorningTime       string `env:"MORNING_TIME" envDefault:"08:00"`
	EveningTime       string `env:"EVENING_TIME" envDefault:"21:00"`
	WebhookURL        string `env:"WEBHOOK_URL"`
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	APIUsername       string `env:"API_USERNAME"`
	APIPassword       string `env:"API_PASSWORD"`

	// Calendar sources. Either, both or none may be set.
	CalDAVURL      string `env:"CALDAV_URL"`
	CalDAVUsername string `env:"CALDAV_USERNAME"`
	CalDAVPassword string `env:"CALDAV_PASSWORD"`
	CalDAVCalendar string `env:"CALDAV_CALENDAR"`
	ICSURL         string `env:"ICS_URL"`

	WidgetLimit int    `env:"WIDGET_LIMIT" envDefault:"6"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	Timezone *time.Location
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	if _, err := time.Parse("15:04", cfg.MorningTime); err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME %q: want HH:MM", cfg.MorningTime)
	}
	if _, err := time.Parse("15:04", cfg.EveningTime); err != nil {
		return nil, fmt.Errorf("invalid EVENING_TIME %q: want HH:MM", cfg.EveningTime)
	}
	if cfg.WidgetLimit < 0 {
		return nil, fmt.Errorf("WIDGET_LIMIT must not be negative")
	}

	return cfg, nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID || (c.PartnerTelegramID != 0 && telegramID == c.PartnerTelegramID)
}

// Recipients returns the chats that receive scheduled messages.
func (c *Config) Recipients() []int64 {
	ids := []int64{c.OwnerTelegramID}
	if c.PartnerTelegramID != 0 {
		ids = append(ids, c.PartnerTelegramID)
	}
	return ids
}

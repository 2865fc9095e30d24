package config

import (
	"os"
	"reflect"
	"testing"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("OWNER_TELEGRAM_ID", "42")
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OwnerTelegramID != 42 || cfg.DatabasePath != "./data/gamecal.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Timezone == nil || cfg.Timezone.String() != "Asia/Seoul" {
		t.Fatalf("timezone = %v", cfg.Timezone)
	}
	if cfg.MorningTime != "08:00" || cfg.EveningTime != "21:00" || cfg.WidgetLimit != 6 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{"TELEGRAM_BOT_TOKEN": "", "OWNER_TELEGRAM_ID": "1"}},
		{"bad owner", map[string]string{"OWNER_TELEGRAM_ID": "abc"}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"bad morning", map[string]string{"MORNING_TIME": "25:00"}},
		{"negative widget", map[string]string{"WIDGET_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRecipients(t *testing.T) {
	cfg := &Config{OwnerTelegramID: 1}
	if !reflect.DeepEqual(cfg.Recipients(), []int64{1}) {
		t.Fatalf("got %v", cfg.Recipients())
	}
	if cfg.IsAllowedUser(0) {
		t.Fatal("zero id must not be allowed when no partner is set")
	}

	cfg.PartnerTelegramID = 2
	if !reflect.DeepEqual(cfg.Recipients(), []int64{1, 2}) {
		t.Fatalf("got %v", cfg.Recipients())
	}
	if !cfg.IsAllowedUser(2) || cfg.IsAllowedUser(3) {
		t.Fatal("allowed users mismatch")
	}
}

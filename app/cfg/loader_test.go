package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:          "./test.db",
		Port:            "8080",
		SuggestionsFile: "./suggestions.yml",
		FetchTimeout:    10,
		UserAgent:       "Test Agent",
		Timezone:        "UTC",
		Debug:           true,
		Version:         "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.SuggestionsFile != "./suggestions.yml" {
		t.Errorf("Expected suggestions file './suggestions.yml', got '%s'", cfg.SuggestionsFile)
	}
	if cfg.FetchTimeout != 10 {
		t.Errorf("Expected fetch timeout 10, got %d", cfg.FetchTimeout)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("Expected UTC to be a valid timezone, got error: %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}

package main

import (
	"os"
	"testing"

	"github.com/meridian-ai/ragcore/internal/config"
)

func TestGetPort_Default(t *testing.T) {
	os.Unsetenv("PORT")
	cfg := &config.Config{Port: 8080}
	if got := getPort(cfg); got != "8080" {
		t.Errorf("getPort() = %q, want %q", got, "8080")
	}
}

func TestGetPort_FromEnv(t *testing.T) {
	t.Setenv("PORT", "3000")
	cfg := &config.Config{Port: 8080}
	if got := getPort(cfg); got != "3000" {
		t.Errorf("getPort() = %q, want %q", got, "3000")
	}
}

func TestGetPort_FallsBackToConfig(t *testing.T) {
	os.Unsetenv("PORT")
	cfg := &config.Config{Port: 9090}
	if got := getPort(cfg); got != "9090" {
		t.Errorf("getPort() = %q, want %q", got, "9090")
	}
}

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version must not be empty")
	}
}

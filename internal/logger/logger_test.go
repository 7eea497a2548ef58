package logger

import (
	"testing"

	"github.com/sirupsen/logrus"

	"riderhub/internal/config"
)

func TestNewLevelAndFormat(t *testing.T) {
	log := New(config.LoggerConfig{Level: "debug", Format: "text"})
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", log.Formatter)
	}

	log = New(config.LoggerConfig{Level: "nonsense"})
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected fallback to info, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter, got %T", log.Formatter)
	}
}

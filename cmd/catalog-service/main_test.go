package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLogger(t *testing.T) {
	setupLogger()

	if log.GetLevel() != log.InfoLevel {
		t.Errorf("log level = %v, want info", log.GetLevel())
	}

	formatter, ok := log.StandardLogger().Formatter.(*log.TextFormatter)
	if !ok {
		t.Fatalf("formatter = %T, want *log.TextFormatter", log.StandardLogger().Formatter)
	}
	if !formatter.FullTimestamp {
		t.Error("ожидается FullTimestamp=true")
	}
}

package main

import (
	"os"
	"testing"

	"github.com/sells-group/tooltrack-cli/internal/config"
)

func TestMain(m *testing.M) {
	cfg = &config.Config{}
	os.Exit(m.Run())
}

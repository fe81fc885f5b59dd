package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogIsUsableBeforeInit(t *testing.T) {
	if Log == nil {
		t.Fatal("Log must be ready at declaration, not only after Init")
	}

	var buf bytes.Buffer
	Log.SetOutput(&buf)
	defer Log.SetOutput(os.Stderr)

	Log.WithField("component", "test").Warn("startup warning")
	if !strings.Contains(buf.String(), "startup warning") {
		t.Errorf("log output missing message: %s", buf.String())
	}
}

func TestInitAppliesJSONFormatterAndLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	Init()

	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSONFormatter", Log.Formatter)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Log.GetLevel())
	}
}

func TestInitFallsBackToInfoOnBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	Init()

	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info fallback", Log.GetLevel())
	}
}

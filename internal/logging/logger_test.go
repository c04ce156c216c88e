package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
		"off":     zerolog.Disabled,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Component("matching").Info().Int("count", 3).Msg("ranked")
	Logger().Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"component":"matching"`) || !strings.Contains(out, `"count":3`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line emitted at info level: %s", out)
	}
}

func TestLogger_ReturnsCopy(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	l := Logger()
	*l = l.Level(zerolog.Disabled)
	l.Info().Msg("muted")

	Logger().Info().Msg("global")

	out := buf.String()
	if strings.Contains(out, "muted") || !strings.Contains(out, "global") {
		t.Fatalf("unexpected output: %s", out)
	}
}

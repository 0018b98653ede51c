package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestResolveLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		conf Config
		want zerolog.Level
	}{
		{conf: Config{}, want: zerolog.InfoLevel},
		{conf: Config{Debug: true}, want: zerolog.DebugLevel},
		{conf: Config{Level: "WARN", Debug: true}, want: zerolog.WarnLevel},
		{conf: Config{Level: "nonsense"}, want: zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := resolveLevel(&tc.conf); got != tc.want {
			t.Fatalf("resolveLevel(%+v) = %s, want %s", tc.conf, got, tc.want)
		}
	}
}

func TestInitWriter(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	InitWriter(&buf, Config{Debug: false})

	log.Debug().Msg("hidden")
	log.Info().Str("conversation_id", "c1").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line must be filtered at info level: %s", out)
	}
	if !strings.Contains(out, `"conversation_id":"c1"`) {
		t.Fatalf("expected structured field in output: %s", out)
	}
}

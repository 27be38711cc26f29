package logging_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/dsd/internal/logging"
)

func Test_ParseLevel_Accepts_Known_Names_When_Any_Case(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want logrus.Level
	}{
		{in: "debug", want: logrus.DebugLevel},
		{in: "INFO", want: logrus.InfoLevel},
		{in: "warn", want: logrus.WarnLevel},
		{in: "Warning", want: logrus.WarnLevel},
		{in: " error ", want: logrus.ErrorLevel},
	}

	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}

		if got != tt.want {
			t.Errorf("ParseLevel(%q)=%v, want=%v", tt.in, got, tt.want)
		}
	}
}

func Test_ParseLevel_Returns_ErrInvalidLevel_When_Unknown(t *testing.T) {
	t.Parallel()

	_, err := logging.ParseLevel("verbose")
	if !errors.Is(err, logging.ErrInvalidLevel) {
		t.Fatalf("err=%v, want ErrInvalidLevel", err)
	}
}

func Test_New_Filters_Below_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := logging.New(&buf, logrus.WarnLevel)
	l.Debug("hidden")
	l.WithField("name", "gpio").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at warn level: %q", out)
	}

	if !strings.Contains(out, "shown") || !strings.Contains(out, "name=gpio") {
		t.Errorf("warn message missing: %q", out)
	}
}

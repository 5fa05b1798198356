package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{
		"PORT", "UPLOAD_DIR", "OUTPUT_DIR", "SESSION_TTL", "SWEEP_INTERVAL", "MAX_UPLOAD_MB", "RENDER_SCALE",
		"SOFFICE_BIN", "PDFTOPPM_BIN", "CONVERT_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if c.MaxUploadBytes() != 25<<20 {
		t.Errorf("MaxUploadBytes = %d", c.MaxUploadBytes())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("RENDER_SCALE", "2")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("UPLOAD_DIR", "/tmp/in")

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Port != 9090 || c.SessionTTL != 90*time.Second || c.RenderScale != 2 || c.LogFormat != "json" || c.UploadDir != "/tmp/in" {
		t.Errorf("config = %+v", c)
	}
}

func TestLoadErrorsNameVariable(t *testing.T) {
	tests := map[string]string{
		"PORT":          "eighty",
		"SESSION_TTL":   "soon",
		"RENDER_SCALE":  "-1",
		"LOG_FORMAT":    "xml",
		"MAX_UPLOAD_MB": "0",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("err = %v, want mention of %s", err, name)
			}
		})
	}
}

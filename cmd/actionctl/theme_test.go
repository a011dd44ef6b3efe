package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npratt/actionctl/internal/prefs"
)

func openTestStore(t *testing.T) *prefs.Store {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.yaml"), nil, nil)
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}
	return store
}

func TestChangeTheme(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		darkDefault bool
		want        string
	}{
		{"show default light", []string{""}, false, "theme: light"},
		{"show default dark", []string{""}, true, "theme: dark"},
		{"set dark", []string{"dark"}, false, "theme: dark"},
		{"set light", []string{"light"}, true, "theme: light"},
		{"toggle from default", []string{"toggle"}, false, "theme: dark"},
		{"toggle twice", []string{"toggle", "toggle"}, false, "theme: light"},
		{"set then show", []string{"dark", ""}, false, "theme: dark"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openTestStore(t)
			var out bytes.Buffer
			for _, arg := range tt.args {
				out.Reset()
				if err := changeTheme(&out, store, arg, tt.darkDefault); err != nil {
					t.Fatalf("changeTheme(%q): %v", arg, err)
				}
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChangeTheme_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	store, err := prefs.Open(path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := changeTheme(&bytes.Buffer{}, store, "dark", false); err != nil {
		t.Fatal(err)
	}

	reopened, err := prefs.Open(path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Bool(prefs.KeyDarkMode, false) {
		t.Error("dark mode should persist across opens")
	}
}

func TestChangeTheme_Unknown(t *testing.T) {
	err := changeTheme(&bytes.Buffer{}, openTestStore(t), "purple", false)
	if err == nil || !strings.Contains(err.Error(), "unknown theme") {
		t.Errorf("changeTheme(purple) = %v, want unknown theme error", err)
	}
}

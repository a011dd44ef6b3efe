package prefs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/npratt/actionctl/internal/events"
)

func openTemp(t *testing.T, router *events.Router) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path, router, nil)
	require.NoError(t, err)
	return s, path
}

func readFile(t *testing.T, path string) map[string]bool {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := make(map[string]bool)
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestMissingFileUsesDefaults(t *testing.T) {
	s, path := openTemp(t, nil)

	assert.False(t, s.Bool(KeyDarkMode, false))
	assert.True(t, s.Bool(KeyDarkMode, true))
	assert.Empty(t, s.Values())
	assert.Equal(t, path, s.Path())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "open does not create the file")
}

func TestSetBoolPersists(t *testing.T) {
	s, path := openTemp(t, nil)

	require.NoError(t, s.SetBool(KeyDarkMode, true))
	assert.True(t, s.Bool(KeyDarkMode, false))
	assert.Equal(t, map[string]bool{KeyDarkMode: true}, readFile(t, path))

	reopened, err := Open(path, nil, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Bool(KeyDarkMode, false))
}

func TestToggle(t *testing.T) {
	s, path := openTemp(t, nil)

	v, err := s.Toggle(KeyDarkMode, false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = s.Toggle(KeyDarkMode, false)
	require.NoError(t, err)
	assert.False(t, v)

	assert.Equal(t, map[string]bool{KeyDarkMode: false}, readFile(t, path))
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dark_mode: [not a bool"), 0644))

	s, err := Open(path, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Values())

	require.NoError(t, s.SetBool(KeyDarkMode, true))
	assert.Equal(t, map[string]bool{KeyDarkMode: true}, readFile(t, path))
}

func TestWritesMergeKeysFromOtherProcesses(t *testing.T) {
	s, path := openTemp(t, nil)
	require.NoError(t, s.SetBool(KeyDarkMode, true))

	other, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, other.SetBool("compact", true))

	require.NoError(t, s.SetBool(KeyDarkMode, false))
	assert.Equal(t, map[string]bool{KeyDarkMode: false, "compact": true}, readFile(t, path))
	assert.True(t, s.Bool("compact", false), "merged key visible locally")
}

func TestSetBoolEmitsOnChange(t *testing.T) {
	router := events.NewRouter(10, nil)
	defer router.Close()
	ch := router.SubscribeTypes(events.EventPrefChanged)

	s, _ := openTemp(t, router)
	require.NoError(t, s.SetBool(KeyDarkMode, true))
	require.NoError(t, s.SetBool(KeyDarkMode, true))

	select {
	case ev := <-ch:
		pe := ev.(*events.PrefChangedEvent)
		assert.Equal(t, KeyDarkMode, pe.Key)
		assert.True(t, pe.Value)
		assert.Equal(t, events.SourcePrefs, pe.Source())
	case <-time.After(time.Second):
		t.Fatal("expected prefs.changed event")
	}
	assert.Empty(t, ch, "unchanged value emits nothing")
}

func TestConcurrentToggles(t *testing.T) {
	s, path := openTemp(t, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Toggle(KeyDarkMode, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, s.Bool(KeyDarkMode, true), "even number of toggles")
	assert.Equal(t, map[string]bool{KeyDarkMode: false}, readFile(t, path))
}

func TestReload(t *testing.T) {
	s, path := openTemp(t, nil)
	require.NoError(t, s.SetBool(KeyDarkMode, true))

	require.NoError(t, os.WriteFile(path, []byte("dark_mode: false\ncompact: true\n"), 0644))
	changed, err := s.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"compact", KeyDarkMode}, changed)
	assert.False(t, s.Bool(KeyDarkMode, true))

	changed, err = s.Reload()
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestWatchReportsExternalEdits(t *testing.T) {
	s, path := openTemp(t, nil)
	require.NoError(t, s.SetBool(KeyDarkMode, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type change struct {
		key   string
		value bool
	}
	changes := make(chan change, 10)
	require.NoError(t, s.Watch(ctx, func(key string, value bool) {
		changes <- change{key, value}
	}))

	other, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, other.SetBool(KeyDarkMode, true))

	select {
	case c := <-changes:
		assert.Equal(t, change{KeyDarkMode, true}, c)
	case <-time.After(2 * time.Second):
		t.Fatal("expected watch callback")
	}
	assert.True(t, s.Bool(KeyDarkMode, false))
}

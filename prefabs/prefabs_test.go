package prefabs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedPrefabsValidate(t *testing.T) {
	names := Names()
	require.ElementsMatch(t, []string{"tower", "helix", "mine", "mothership", "scripted_drone"}, names)

	l := Loader{}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			spec, err := LoadBehaviorSpec(l, name)
			require.NoError(t, err)
			assert.Equal(t, name, spec.Name)
			assert.NotEmpty(t, spec.Initial)
		})
	}
}

func TestScriptedPrefabScriptResolves(t *testing.T) {
	spec, err := LoadBehaviorSpec(Loader{}, "scripted_drone")
	require.NoError(t, err)

	src, err := Loader{}.LoadScript(spec.Script)
	require.NoError(t, err)
	assert.Contains(t, string(src), "update")
}

func TestValidate(t *testing.T) {
	base := func() BehaviorSpec {
		return BehaviorSpec{
			Name:    "probe",
			Kind:    "tower",
			Initial: "find_target",
			States:  []string{"find_target", "attack"},
			Events:  []string{"enemy_targeted"},
			Transitions: map[string]map[string]string{
				"find_target": {"enemy_targeted": "attack"},
				"attack":      {"killed": "die"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*BehaviorSpec)
		wantErr bool
	}{
		{name: "valid", mutate: func(*BehaviorSpec) {}},
		{name: "builtin initial", mutate: func(s *BehaviorSpec) { s.Initial = "idle" }},
		{name: "missing name", mutate: func(s *BehaviorSpec) { s.Name = "" }, wantErr: true},
		{name: "missing kind", mutate: func(s *BehaviorSpec) { s.Kind = "" }, wantErr: true},
		{name: "unknown initial", mutate: func(s *BehaviorSpec) { s.Initial = "hover" }, wantErr: true},
		{name: "undeclared from", mutate: func(s *BehaviorSpec) {
			s.Transitions["hover"] = map[string]string{"enemy_targeted": "attack"}
		}, wantErr: true},
		{name: "undeclared event", mutate: func(s *BehaviorSpec) {
			s.Transitions["attack"]["target_killed"] = "find_target"
		}, wantErr: true},
		{name: "undeclared target", mutate: func(s *BehaviorSpec) {
			s.Transitions["find_target"]["enemy_targeted"] = "hover"
		}, wantErr: true},
		{name: "script missing", mutate: func(s *BehaviorSpec) { s.Kind = "scripted" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoaderDiskOverride(t *testing.T) {
	dir := t.TempDir()
	override := []byte("name: tower\nkind: tower\ninitial: idle\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tower.yaml"), override, 0o644))

	l := Loader{Dir: dir}
	spec, err := LoadBehaviorSpec(l, "tower")
	require.NoError(t, err)
	assert.Equal(t, "idle", spec.Initial)

	_, ok := l.ModTime("tower")
	assert.True(t, ok)
	_, ok = l.ModTime("helix")
	assert.False(t, ok)

	// Files missing on disk still come from the embedded set.
	spec, err = LoadBehaviorSpec(l, "prefabs/helix.yaml")
	require.NoError(t, err)
	assert.Equal(t, "helix", spec.Kind)
}

func TestLoaderUnknownPrefab(t *testing.T) {
	_, err := Loader{}.Load("nope")
	assert.True(t, errors.Is(err, ErrUnknownPrefab))

	_, err = Loader{}.LoadScript("nope.tengo")
	assert.True(t, errors.Is(err, ErrUnknownPrefab))
}

func TestCleanPaths(t *testing.T) {
	assert.Equal(t, "tower.yaml", cleanPrefabPath("tower"))
	assert.Equal(t, "tower.yaml", cleanPrefabPath("prefabs/tower.yaml"))
	assert.Equal(t, "scripts/drone.tengo", cleanScriptPath("drone.tengo"))
	assert.Equal(t, "scripts/drone.tengo", cleanScriptPath("prefabs/scripts/drone.tengo"))
	assert.Equal(t, "", cleanScriptPath(""))
}

func TestPrefabName(t *testing.T) {
	assert.Equal(t, "helix", PrefabName(filepath.Join("a", "b", "helix.yaml")))
	assert.Equal(t, "drone", PrefabName("scripts/drone.tengo"))
}

func TestWatcherReportsEdits(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "tower.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: tower\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, "tower", PrefabName(name))
	case <-time.After(2 * time.Second):
		t.Fatal("no watcher event")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())

	_, ok := <-w.Events
	assert.False(t, ok)
}

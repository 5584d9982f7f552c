package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jhump/autovalue/processor"
)

func TestIsSourceChange(t *testing.T) {
	testCases := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: "/src/person.go", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/src/person_test.go", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/src/person.go", Op: fsnotify.Remove}, true},
		{"chmod", fsnotify.Event{Name: "/src/person.go", Op: fsnotify.Chmod}, false},
		{"not go", fsnotify.Event{Name: "/src/README.md", Op: fsnotify.Write}, false},
		{"generated", fsnotify.Event{Name: "/src/person_autovalue.go", Op: fsnotify.Write}, false},
		{"generated test", fsnotify.Event{Name: "/src/pair_autovalue_test.go", Op: fsnotify.Write}, false},
		{"registry", fsnotify.Event{Name: "/src/" + processor.RegistryFileName, Op: fsnotify.Create}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isSourceChange(tc.ev))
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := viper.New()
		cfg, err := newConfig(v, []string{"./..."}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []string{"./..."}, cfg.Patterns)
		assert.False(t, cfg.Tests)
		assert.Empty(t, cfg.OutputDir)
		assert.Zero(t, cfg.Workers)
		assert.Nil(t, cfg.DefaultCacheHashCode)
		assert.NotEmpty(t, cfg.Processors)
	})
	t.Run("overrides", func(t *testing.T) {
		dir := t.TempDir()
		v := viper.New()
		v.Set(keyTests, true)
		v.Set(keyOutputDir, dir)
		v.Set(keyWorkers, 3)
		v.Set(keyCacheHashCode, false)
		v.Set(keySkipRegistry, true)
		cfg, err := newConfig(v, []string{"."}, zap.NewNop())
		require.NoError(t, err)
		assert.True(t, cfg.Tests)
		assert.Equal(t, dir, cfg.OutputDir)
		assert.Equal(t, 3, cfg.Workers)
		require.NotNil(t, cfg.DefaultCacheHashCode)
		assert.False(t, *cfg.DefaultCacheHashCode)
		assert.True(t, cfg.SkipRegistry)
	})
	t.Run("negative workers", func(t *testing.T) {
		v := viper.New()
		v.Set(keyWorkers, -1)
		_, err := newConfig(v, []string{"."}, zap.NewNop())
		assert.ErrorContains(t, err, "must not be negative")
	})
	t.Run("output dir is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "out")
		require.NoError(t, os.WriteFile(file, nil, 0666))
		v := viper.New()
		v.Set(keyOutputDir, file)
		_, err := newConfig(v, []string{"."}, zap.NewNop())
		assert.ErrorContains(t, err, "is not a directory")
	})
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "autovalue.yaml")
	require.NoError(t, os.WriteFile(file, []byte("workers: 2\nskip-registry: true\n"), 0666))

	v := viper.New()
	v.Set(keyConfig, file)
	require.NoError(t, readConfig(v))
	assert.Equal(t, 2, v.GetInt(keyWorkers))
	assert.True(t, v.GetBool(keySkipRegistry))

	missing := viper.New()
	missing.Set(keyConfig, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, readConfig(missing))
}

package browser

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durapage/durapage/internal/config"
	"github.com/durapage/durapage/internal/plugin"
	"github.com/durapage/durapage/pkg/logger"
)

func TestResolveBrowserPath(t *testing.T) {
	type args struct {
		override   string
		candidates func(*testing.T) []string
		lookPath   func() (string, bool)
	}
	tests := []struct {
		name       string
		args       args
		assertions func(*assert.Assertions, string, error)
	}{
		{
			name: "override wins over candidates",
			args: args{
				override: "/opt/custom/chrome",
				candidates: func(t *testing.T) []string {
					return []string{"/nonexistent/chrome"}
				},
				lookPath: func() (string, bool) {
					return "", false
				},
			},
			assertions: func(assertions *assert.Assertions, path string, err error) {
				assertions.Nil(err)
				assertions.Equal("/opt/custom/chrome", path)
			},
		},
		{
			name: "first existing candidate is picked",
			args: args{
				candidates: func(t *testing.T) []string {
					dir := t.TempDir()
					existing := filepath.Join(dir, "chromium")
					require.NoError(t, os.WriteFile(existing, []byte("stub"), 0755))
					return []string{filepath.Join(dir, "missing"), existing}
				},
				lookPath: func() (string, bool) {
					return "", false
				},
			},
			assertions: func(assertions *assert.Assertions, path string, err error) {
				assertions.Nil(err)
				assertions.Contains(path, "chromium")
			},
		},
		{
			name: "system lookup used as fallback",
			args: args{
				candidates: func(t *testing.T) []string {
					return []string{"/nonexistent/chrome"}
				},
				lookPath: func() (string, bool) {
					return "/discovered/chrome", true
				},
			},
			assertions: func(assertions *assert.Assertions, path string, err error) {
				assertions.Nil(err)
				assertions.Equal("/discovered/chrome", path)
			},
		},
		{
			name: "failure when no browser is found",
			args: args{
				candidates: func(t *testing.T) []string {
					return []string{"/nonexistent/chrome"}
				},
				lookPath: func() (string, bool) {
					return "", false
				},
			},
			assertions: func(assertions *assert.Assertions, path string, err error) {
				assertions.NotNil(err)
				notFound := &NotFoundError{}
				assertions.ErrorAs(err, &notFound)
				assertions.Len(notFound.Candidates, 1)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalLookPath := lookPath
			lookPath = tt.args.lookPath
			t.Cleanup(func() {
				lookPath = originalLookPath
			})
			path, err := resolveBrowserPath(tt.args.override, tt.args.candidates(t))
			tt.assertions(assert.New(t), path, err)
		})
	}
}

func TestUserAgentOrDefault(t *testing.T) {
	assertions := assert.New(t)
	assertions.Equal(defaultUserAgent, userAgentOrDefault(""))
	assertions.Equal("custom-agent", userAgentOrDefault("custom-agent"))
}

func TestAttachExtensions(t *testing.T) {
	type args struct {
		setup func(*testing.T, string, *config.Config)
	}
	tests := []struct {
		name       string
		args       args
		assertions func(*assert.Assertions, string, []string)
	}{
		{
			name: "available plugin directories are attached",
			args: args{
				setup: func(t *testing.T, baseDir string, conf *config.Config) {
					require.NoError(t, os.Mkdir(filepath.Join(baseDir, plugin.NameTurnstilePatch), 0755))
					require.NoError(t, os.Mkdir(filepath.Join(baseDir, plugin.NameFingerprint), 0755))
				},
			},
			assertions: func(assertions *assert.Assertions, baseDir string, paths []string) {
				assertions.Equal([]string{
					filepath.Join(baseDir, plugin.NameTurnstilePatch),
					filepath.Join(baseDir, plugin.NameFingerprint),
				}, paths)
			},
		},
		{
			name: "unavailable plugins are skipped",
			args: args{
				setup: func(t *testing.T, baseDir string, conf *config.Config) {
					require.NoError(t, os.Mkdir(filepath.Join(baseDir, plugin.NameFingerprint), 0755))
				},
			},
			assertions: func(assertions *assert.Assertions, baseDir string, paths []string) {
				assertions.Equal([]string{filepath.Join(baseDir, plugin.NameFingerprint)}, paths)
			},
		},
		{
			name: "local extension directory is attached when present",
			args: args{
				setup: func(t *testing.T, baseDir string, conf *config.Config) {
					conf.Plugins.CFBypass = pointerOf(false)
					conf.Plugins.Fingerprint = pointerOf(false)
					require.NoError(t, os.Mkdir(filepath.Join(baseDir, localExtensionDir), 0755))
				},
			},
			assertions: func(assertions *assert.Assertions, baseDir string, paths []string) {
				assertions.Equal([]string{filepath.Join(baseDir, localExtensionDir)}, paths)
			},
		},
		{
			name: "nothing to attach",
			args: args{
				setup: func(t *testing.T, baseDir string, conf *config.Config) {
					conf.Plugins.CFBypass = pointerOf(false)
					conf.Plugins.Fingerprint = pointerOf(false)
				},
			},
			assertions: func(assertions *assert.Assertions, baseDir string, paths []string) {
				assertions.Empty(paths)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseDir := t.TempDir()
			conf, err := config.NewFromMap(map[string]interface{}{
				"PLUGINS_DIR":     baseDir,
				"PLUGINS_UAPATCH": false,
			})
			require.NoError(t, err)
			tt.args.setup(t, baseDir, conf)
			log := logger.NewLogger(io.Discard)
			// consent is declined so missing plugins trigger no downloads
			provisioner := plugin.NewProvisioner(baseDir, nil, func(string) bool { return false }, log)
			paths := attachExtensions(context.Background(), conf, provisioner, log)
			tt.assertions(assert.New(t), baseDir, paths)
		})
	}
}

func pointerOf[T any](v T) *T {
	return &v
}

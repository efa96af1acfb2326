package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/husk-dev/husk/pkg/config"
)

func TestGetPath(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	require.NoError(t, set.Parse(nil))
	assert.Equal(t, ".", getPath(cli.NewContext(nil, set, nil)))

	set = flag.NewFlagSet("test", 0)
	require.NoError(t, set.Parse([]string{"/src"}))
	assert.Equal(t, "/src", getPath(cli.NewContext(nil, set, nil)))
}

func TestGenerateDefaultConfig(t *testing.T) {
	content, err := generateDefaultConfig()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "# Husk configuration"))
	for _, want := range []string{"[analysis]", "[thresholds]", "confidence = 60"} {
		assert.Contains(t, content, want)
	}

	// the generated file must load back to the defaults
	path := filepath.Join(t.TempDir(), "husk.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Thresholds.Confidence, cfg.Thresholds.Confidence)
	assert.Equal(t, config.DefaultConfig().Output.Format, cfg.Output.Format)
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "husk.toml")
	app := &cli.App{Commands: []*cli.Command{initCmd()}}

	require.NoError(t, app.Run([]string{"husk", "init", "-o", path}))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = app.Run([]string{"husk", "init", "-o", path})
	require.Error(t, err, "existing file should not be overwritten without --force")
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, app.Run([]string{"husk", "init", "-o", path, "--force"}))
}

package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	fsys := afero.NewMemMapFs()
	logs := &bytes.Buffer{}

	cfg, err := Initialize(fsys, "/home/user/.config/bropesh", log.New(logs, "", 0))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Contains(t, logs.String(), "/home/user/.config/bropesh/config.yaml")

	// Check that the config is valid
	loaded, err := Load(fsys, "/home/user/.config/bropesh")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	t.Run("existing config is kept", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fsys, "/home/user/.config/bropesh/config.yaml", []byte("max_args: 8\n"), 0600))

		_, err := Initialize(fsys, "/home/user/.config/bropesh", log.New(logs, "", 0))
		assert.True(t, errors.Is(err, fs.ErrExist), "got %v", err)

		loaded, err := Load(fsys, "/home/user/.config/bropesh")
		require.NoError(t, err)
		assert.Equal(t, 8, loaded.MaxArgs)
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		_, err := Initialize(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cfg", log.New(logs, "", 0))
		assert.Error(t, err)
	})
}

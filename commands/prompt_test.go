package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleShell_Prompt() {
	s := &Shell{User: "alice", Hostname: "box", Home: "/"}
	wd, _ := os.Getwd()
	fmt.Println(s.Prompt() == fmt.Sprintf("<alice@box: %s> ", wd))

	// Output: true
}

func TestTildePath(t *testing.T) {
	cases := []struct {
		dir, home string
		expected  string
	}{
		{"/home/alice", "/home/alice", "~"},
		{"/home/alice/src", "/home/alice", "~/src"},
		{"/home/alicex", "/home/alice", "/home/alicex"},
		{"/tmp", "/home/alice", "/tmp"},
		{"/usr", "/", "/usr"},
		{"/usr", "", "/usr"},
	}

	for _, tc := range cases {
		t.Run(tc.dir+" in "+tc.home, func(t *testing.T) {
			assert.Equal(t, tc.expected, tildePath(tc.dir, tc.home))
		})
	}
}

func TestShell_Prompt(t *testing.T) {
	home := chdir(t, t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(home, "src"), 0700))

	s := &Shell{User: "alice", Hostname: "box", Home: home}
	assert.Equal(t, "<alice@box: ~> ", s.Prompt())

	require.NoError(t, os.Chdir(filepath.Join(home, "src")))
	assert.Equal(t, "<alice@box: ~/src> ", s.Prompt())

	t.Run("fallbacks", func(t *testing.T) {
		s := &Shell{Home: home}
		assert.Equal(t, "<unknown@unknown_host: ~/src> ", s.Prompt())
	})
}

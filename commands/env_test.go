package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnv(t *testing.T) {
	environ := []string{"PATH=/bin", "HOME=/root", "EMPTY="}

	assert.Equal(t, environ, mergeEnv(environ, nil))

	merged := mergeEnv(environ, map[string]string{
		"HOME":  "/home/alice",
		"ZZZ":   "last",
		"EXTRA": "1",
	})
	assert.Equal(t, []string{"PATH=/bin", "EMPTY=", "EXTRA=1", "HOME=/home/alice", "ZZZ=last"}, merged)
}

package launcher

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/josephlewis42/bropesh/core/shell"
	"github.com/josephlewis42/bropesh/core/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	RunChildIfRequested()
	os.Exit(m.Run())
}

type recordingSupervisor struct {
	mu         sync.Mutex
	foreground []int
	cleared    int
	background []int
}

func (r *recordingSupervisor) SetForeground(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.foreground = append(r.foreground, pid)
}

func (r *recordingSupervisor) ClearForeground() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recordingSupervisor) TrackBackground(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = append(r.background, pid)
}

type testLauncher struct {
	*Launcher
	dir    string
	stdout *os.File
	stderr *os.File
	notes  *bytes.Buffer
}

func newTestLauncher(t *testing.T, supervisor Supervisor) *testLauncher {
	t.Helper()

	dir := t.TempDir()
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() {
		stdout.Close()
		stderr.Close()
		devNull.Close()
	})

	l, err := New(supervisor)
	require.NoError(t, err)
	l.Stdin = devNull
	l.Stdout = stdout
	l.Stderr = stderr

	notes := &bytes.Buffer{}
	l.Out = notes

	return &testLauncher{Launcher: l, dir: dir, stdout: stdout, stderr: stderr, notes: notes}
}

func (tl *testLauncher) path(name string) string {
	return filepath.Join(tl.dir, name)
}

func (tl *testLauncher) readStderr(t *testing.T) string {
	t.Helper()
	out, err := os.ReadFile(tl.stderr.Name())
	require.NoError(t, err)
	return string(out)
}

func requirePrograms(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func mustParse(t *testing.T, line string) *shell.Command {
	t.Helper()
	cmd, err := shell.Parse(line)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	return cmd
}

func TestLaunch_foreground(t *testing.T) {
	requirePrograms(t, "sh")

	cases := map[string]struct {
		line   string
		status int
	}{
		"success":  {`sh -c "exit 0"`, 0},
		"failure":  {`sh -c "exit 3"`, 3},
		"signaled": {`sh -c "kill -INT $$"`, 130},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			supervisor := &recordingSupervisor{}
			tl := newTestLauncher(t, supervisor)

			outcome := tl.Launch(mustParse(t, tc.line))
			assert.Equal(t, Foreground, outcome.Kind)
			assert.Equal(t, tc.status, outcome.Status)
			assert.NoError(t, outcome.Err)

			assert.Equal(t, []int{outcome.Pid}, supervisor.foreground)
			assert.Equal(t, 1, supervisor.cleared)
			assert.Empty(t, supervisor.background)
		})
	}
}

func TestLaunch_redirection(t *testing.T) {
	requirePrograms(t, "echo", "cat")

	t.Run("output", func(t *testing.T) {
		tl := newTestLauncher(t, nil)
		out := tl.path("out.txt")
		require.NoError(t, os.WriteFile(out, []byte("old contents that are much longer\n"), 0600))

		outcome := tl.Launch(mustParse(t, "echo hello world > "+out))
		require.Equal(t, 0, outcome.Status)

		contents, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "hello world\n", string(contents))
	})

	t.Run("output mode", func(t *testing.T) {
		old := unix.Umask(0)
		defer unix.Umask(old)

		tl := newTestLauncher(t, nil)
		out := tl.path("new.txt")
		tl.Launch(mustParse(t, "echo x > "+out))

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("input and output", func(t *testing.T) {
		tl := newTestLauncher(t, nil)
		in, out := tl.path("in.txt"), tl.path("out.txt")
		require.NoError(t, os.WriteFile(in, []byte("line one\nline two\n"), 0600))

		outcome := tl.Launch(mustParse(t, "cat < "+in+" > "+out))
		require.Equal(t, 0, outcome.Status)

		contents, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "line one\nline two\n", string(contents))
	})

	t.Run("missing input file", func(t *testing.T) {
		supervisor := &recordingSupervisor{}
		tl := newTestLauncher(t, supervisor)

		outcome := tl.Launch(mustParse(t, "cat < "+tl.path("does-not-exist")))
		assert.Equal(t, Foreground, outcome.Kind)
		assert.Equal(t, 1, outcome.Status)
		assert.Contains(t, tl.readStderr(t), "bropesh: failed to open input file:")
		assert.Equal(t, 1, supervisor.cleared)
	})

	t.Run("unwritable output file", func(t *testing.T) {
		tl := newTestLauncher(t, nil)

		outcome := tl.Launch(mustParse(t, "echo hi > "+tl.path("no/such/dir/out.txt")))
		assert.Equal(t, Foreground, outcome.Kind)
		assert.Equal(t, 1, outcome.Status)
		assert.Contains(t, tl.readStderr(t), "bropesh: failed to open output file:")
	})
}

func TestLaunch_execFailure(t *testing.T) {
	tl := newTestLauncher(t, nil)

	outcome := tl.Launch(mustParse(t, "bropesh-no-such-program --flag"))
	assert.Equal(t, Foreground, outcome.Kind)
	assert.Equal(t, 1, outcome.Status)
	assert.Equal(t,
		"bropesh: error running command \"bropesh-no-such-program\": no such file or directory\n",
		tl.readStderr(t))
}

func TestLaunch_environment(t *testing.T) {
	requirePrograms(t, "env")

	tl := newTestLauncher(t, nil)
	tl.Env = append(os.Environ(), "BROPESH_TEST_VAR=visible")
	out := tl.path("env.txt")

	outcome := tl.Launch(mustParse(t, "env > "+out))
	require.Equal(t, 0, outcome.Status)

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "BROPESH_TEST_VAR=visible")
	assert.NotContains(t, string(contents), envChild+"=")
	assert.NotContains(t, string(contents), envStdout+"=")
}

func TestLaunch_background(t *testing.T) {
	requirePrograms(t, "sleep")

	supervisor := &recordingSupervisor{}
	tl := newTestLauncher(t, supervisor)

	start := time.Now()
	outcome := tl.Launch(mustParse(t, "sleep 1 &"))
	assert.Less(t, int64(time.Since(start)), int64(time.Second), "background launch must not block")

	require.Equal(t, Background, outcome.Kind)
	assert.Greater(t, outcome.Pid, 0)
	assert.Equal(t, []int{outcome.Pid}, supervisor.background)
	assert.Empty(t, supervisor.foreground)

	pid := outcome.Pid
	assert.Equal(t, fmt.Sprintf("[%d] %d\n", pid, pid), tl.notes.String())

	// Clean up the child ourselves, nothing else is reaping.
	var status unix.WaitStatus
	_, err := unix.Wait4(pid, &status, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ExitStatus(status))
}

func TestLaunch_interruptForwarding(t *testing.T) {
	requirePrograms(t, "sleep")

	coordinator := signals.New(nil, nil)
	tl := newTestLauncher(t, coordinator)

	cmd := mustParse(t, "sleep 30")
	done := make(chan Outcome, 1)
	go func() {
		done <- tl.Launch(cmd)
	}()

	require.Eventually(t, func() bool {
		_, ok := coordinator.Foreground()
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	// Give the child time to become sleep(1).
	time.Sleep(200 * time.Millisecond)
	coordinator.Interrupt()

	select {
	case outcome := <-done:
		assert.Equal(t, Foreground, outcome.Kind)
		assert.Equal(t, 128+int(syscall.SIGINT), outcome.Status)
	case <-time.After(10 * time.Second):
		t.Fatal("foreground child ignored the interrupt")
	}

	_, ok := coordinator.Foreground()
	assert.False(t, ok, "foreground slot must be cleared after the wait")
}

func TestLaunch_spawnFailure(t *testing.T) {
	tl := newTestLauncher(t, nil)
	tl.Self = tl.path("missing-binary")
	errOut := &bytes.Buffer{}
	tl.ErrOut = errOut

	outcome := tl.Launch(mustParse(t, "true"))
	assert.Equal(t, SpawnFailed, outcome.Kind)
	assert.Error(t, outcome.Err)
	assert.Contains(t, errOut.String(), "bropesh: fork failed:")
}

func TestLaunch_empty(t *testing.T) {
	tl := newTestLauncher(t, nil)
	assert.Equal(t, SpawnFailed, tl.Launch(&shell.Command{}).Kind)
	assert.Equal(t, SpawnFailed, tl.Launch(nil).Kind)
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 0, ExitStatus(unix.WaitStatus(0)))
	assert.Equal(t, 3, ExitStatus(unix.WaitStatus(3<<8)))
	assert.Equal(t, 137, ExitStatus(unix.WaitStatus(syscall.SIGKILL)))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "foreground", Foreground.String())
	assert.Equal(t, "background", Background.String())
	assert.Equal(t, "spawn-failed", SpawnFailed.String())
}

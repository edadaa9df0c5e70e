//go:build linux || darwin

package session

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/pty"
	"github.com/ferama/ptyrun/pkg/rio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pty.ExecHelperMain()
	os.Exit(m.Run())
}

func shConf(t *testing.T, script string) *conf.SessionConf {
	t.Helper()

	c, err := conf.NewSessionConf("sh", "-c", script)
	require.NoError(t, err)
	return c
}

func capture(t *testing.T, s *Session) string {
	t.Helper()

	require.NoError(t, s.Terminal().SetReadDeadline(time.Now().Add(10*time.Second)))
	var out bytes.Buffer
	_, err := s.CopyOutput(&out, nil)
	require.NoError(t, err)
	return out.String()
}

func TestExitCode(t *testing.T) {
	s, err := Start(shConf(t, "exit 3"))
	require.NoError(t, err)
	defer s.Close()

	capture(t, s)
	code, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.False(t, s.Running())
}

func TestOutputEnvAndSize(t *testing.T) {
	c := shConf(t, `printf "%s\n" "$GREETING"; stty size`)
	c.Env = []string{"GREETING=hello"}
	c.Cols, c.Rows = 120, 40

	s, err := Start(c)
	require.NoError(t, err)
	defer s.Close()

	out := capture(t, s)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "40 120")
}

func TestDefaultTerm(t *testing.T) {
	c := shConf(t, `echo "term=$TERM"`)
	c.CleanEnv = true

	s, err := Start(c)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, capture(t, s), "term="+conf.DefaultTerm)
}

func TestKill(t *testing.T) {
	s, err := Start(shConf(t, "sleep 30"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Kill())
	code, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, 128+9, code)

	assert.ErrorIs(t, s.Signal(os.Interrupt), ErrNotRunning)
	assert.ErrorIs(t, s.Kill(), ErrNotRunning)
}

func TestResize(t *testing.T) {
	s, err := Start(shConf(t, "sleep 30"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Resize(200, 50))
	cols, rows, err := s.Terminal().Size()
	require.NoError(t, err)
	assert.Equal(t, uint16(200), cols)
	assert.Equal(t, uint16(50), rows)
}

func TestExecHelperSession(t *testing.T) {
	c := shConf(t, "echo via-helper")
	c.ExecHelper = true

	s, err := Start(c)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, capture(t, s), "via-helper")
	code, err := s.Wait()
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestStartFailure(t *testing.T) {
	c, err := conf.NewSessionConf(os.DevNull)
	require.NoError(t, err)

	_, err = Start(c)
	var spawnErr *pty.SpawnError
	assert.ErrorAs(t, err, &spawnErr)
}

func TestManager(t *testing.T) {
	m := NewManager()

	id1, s1, err := m.Start(shConf(t, "sleep 30"))
	require.NoError(t, err)
	defer s1.Close()
	id2, s2, err := m.Start(shConf(t, "sleep 30"))
	require.NoError(t, err)
	defer s2.Close()

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.Len())

	got, err := m.Get(id1)
	require.NoError(t, err)
	assert.Same(t, s1, got)

	m.KillAll()
	require.Eventually(t, func() bool {
		return m.Len() == 0
	}, 10*time.Second, 20*time.Millisecond)

	_, err = m.Get(id1)
	assert.Error(t, err)
}

func requireSetsid(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
}

func TestOutputEndsWhenDetachedChildKeepsTerminal(t *testing.T) {
	requireSetsid(t)

	s, err := Start(shConf(t, "setsid sleep 5 & echo started"))
	require.NoError(t, err)
	defer s.Close()

	type copyResult struct {
		out string
		err error
	}
	resCh := make(chan copyResult, 1)
	go func() {
		var out bytes.Buffer
		_, err := s.CopyOutput(&out, nil)
		resCh <- copyResult{out.String(), err}
	}()

	select {
	case res := <-resCh:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "started")
	case <-time.After(3 * time.Second):
		t.Fatal("output copy still running after the leader exited")
	}
}

type bufferSink struct {
	mu   sync.Mutex
	bufs map[string]*bytes.Buffer
}

func (b *bufferSink) open(cfg *conf.SessionConf) (io.WriteCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := &bytes.Buffer{}
	b.bufs[cfg.Name] = buf
	return rio.NopWriteCloser(buf), nil
}

func TestRunBatch(t *testing.T) {
	cfg := &conf.Config{
		Workers: 2,
		Sessions: []*conf.SessionConf{
			shConf(t, "echo one"),
			shConf(t, "echo two; exit 2"),
			shConf(t, "echo three"),
		},
	}
	for i, name := range []string{"one", "two", "three"} {
		cfg.Sessions[i].Name = name
	}

	sink := &bufferSink{bufs: make(map[string]*bytes.Buffer)}
	var mu sync.Mutex
	progress := make(map[string]int64)
	progressFn := func(name string, ch chan int64) {
		for n := range ch {
			mu.Lock()
			progress[name] += n
			mu.Unlock()
		}
	}

	results := RunBatch(context.Background(), cfg, NewManager(), sink.open, progressFn)
	require.Len(t, results, 3)

	for i, name := range []string{"one", "two", "three"} {
		r := results[i]
		assert.Equal(t, name, r.Name)
		require.NoError(t, r.Err)
		assert.Contains(t, sink.bufs[name].String(), name)
		assert.Equal(t, int64(sink.bufs[name].Len()), r.Bytes)
		assert.Equal(t, r.Bytes, progress[name])
	}
	assert.True(t, results[0].OK())
	assert.Equal(t, 2, results[1].ExitCode)
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
}

func TestRunBatchCancel(t *testing.T) {
	cfg := &conf.Config{
		Workers: 1,
		Sessions: []*conf.SessionConf{
			shConf(t, "sleep 30"),
			shConf(t, "sleep 30"),
		},
	}
	cfg.Sessions[0].Name = "first"
	cfg.Sessions[1].Name = "second"

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	sink := &bufferSink{bufs: make(map[string]*bytes.Buffer)}
	done := make(chan []*Result)
	go func() {
		done <- RunBatch(ctx, cfg, NewManager(), sink.open, nil)
	}()

	var results []*Result
	select {
	case results = <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("batch not cancelled")
	}

	assert.False(t, results[0].OK())
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}

func TestRunBatchCancelWithDetachedChild(t *testing.T) {
	requireSetsid(t)

	cfg := &conf.Config{
		Workers:  1,
		Sessions: []*conf.SessionConf{shConf(t, "setsid sleep 6 & echo started; sleep 30")},
	}
	cfg.Sessions[0].Name = "detached"

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(500*time.Millisecond, cancel)

	sink := &bufferSink{bufs: make(map[string]*bytes.Buffer)}
	done := make(chan []*Result)
	go func() {
		done <- RunBatch(ctx, cfg, NewManager(), sink.open, nil)
	}()

	select {
	case results := <-done:
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)
		assert.Equal(t, 128+9, results[0].ExitCode)
	case <-time.After(3 * time.Second):
		t.Fatal("batch still running after cancel")
	}
}

package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "frontier-template-node")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestArgs(t *testing.T) {
	args := Options{}.Args()
	assert.Equal(t, []string{
		"--execution=Native",
		"--name=canonbrother",
		"--no-telemetry",
		"--no-prometheus",
		"--force-authoring",
		"--rpc-cors=all",
		"--alice",
		"--sealing=manual",
		"--in-peers=0",
		"--out-peers=0",
		"--port=19955",
		"--rpc-port=19944",
		"--ws-port=19933",
		"--tmp",
	}, args)

	args = Options{Wasm: true, RPCPort: 1, ExtraArgs: []string{"-ldebug"}}.Args()
	assert.Equal(t, "--execution=Wasm", args[0])
	assert.Contains(t, args, "--rpc-port=1")
	assert.Equal(t, "-ldebug", args[len(args)-1])
}

func TestReadyTimeout(t *testing.T) {
	assert.Equal(t, 18*time.Second, Options{}.ReadyTimeout())
	assert.Equal(t, time.Second, Options{SpawningTime: time.Second}.ReadyTimeout())
}

func TestStartWaitsForReadyMarker(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeBinary(t, fmt.Sprintf(`echo "$@" > %s
echo "Starting node"
echo "2024-01-01 Manual Seal Ready" >&2
exec sleep 30
`, argsFile))

	n, err := Start(context.Background(), Options{BinaryPath: bin, RPCPort: 20001, WSPort: 20002})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:20001", n.RPCURL())
	assert.Equal(t, "ws://127.0.0.1:20002", n.WSURL())
	assert.Contains(t, n.Logs(), "Starting node")

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--sealing=manual")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))
	select {
	case <-n.Exited():
	default:
		t.Fatal("node still running after Stop")
	}
	assert.NoError(t, n.Stop(ctx))
}

func TestStartTimeout(t *testing.T) {
	bin := fakeBinary(t, "echo booting\nexec sleep 30\n")

	start := time.Now()
	_, err := Start(context.Background(), Options{BinaryPath: bin, SpawningTime: 2500 * time.Millisecond})
	assert.ErrorIs(t, err, ErrLaunchFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStartProcessExits(t *testing.T) {
	bin := fakeBinary(t, "echo 'Error: port in use'\nexit 3\n")

	_, err := Start(context.Background(), Options{BinaryPath: bin})
	assert.ErrorIs(t, err, ErrLaunchFailed)
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{BinaryPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, ErrLaunchFailed)
}

func TestStartCancelled(t *testing.T) {
	bin := fakeBinary(t, "exec sleep 30\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Start(ctx, Options{BinaryPath: bin})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowLauncher struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (l *slowLauncher) Launch(ctx context.Context) (Instance, error) {
	n := l.active.Add(1)
	defer l.active.Add(-1)
	for {
		seen := l.maxSeen.Load()
		if n <= seen || l.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(l.delay)
	return nil, nil
}

func TestManagerSerializesStartup(t *testing.T) {
	m := NewManager()
	l := &slowLauncher{delay: 20 * time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Start(context.Background(), l)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), l.maxSeen.Load())
}

type blockingLauncher struct {
	started chan struct{}
	release chan struct{}
}

func (l *blockingLauncher) Launch(ctx context.Context) (Instance, error) {
	close(l.started)
	<-l.release
	return nil, nil
}

func TestManagerWaitHonoursContext(t *testing.T) {
	m := NewManager()
	l := &blockingLauncher{started: make(chan struct{}), release: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Start(context.Background(), l)
	}()
	<-l.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Start(ctx, l)
	assert.ErrorIs(t, err, context.Canceled)

	close(l.release)
	<-done
}

func TestContainerOptions(t *testing.T) {
	o := ContainerOptions{Network: Mainnet}
	cmd := o.Cmd()
	assert.Equal(t, "target/release/metachain", cmd[0])
	assert.Contains(t, cmd, "--sealing=manual")
	assert.Contains(t, cmd, "--port=9955")

	name := o.ContainerName()
	assert.True(t, strings.HasPrefix(name, "metachain-testcontainers-mainnet-"), name)
	assert.NotEqual(t, name, o.ContainerName())

	assert.Equal(t, 19955, Testnet.P2PPort())
	assert.Equal(t, DefaultImage, o.withDefaults().Image)
}

func TestLogBuffer(t *testing.T) {
	b := newLogBuffer(2)
	b.add("a")
	b.add("b")
	b.add("c")
	assert.Equal(t, "b\nc", b.String())
}

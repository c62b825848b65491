package node

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ReadyMarker is printed by a manual-seal node once it accepts engine_createBlock.
const ReadyMarker = "Manual Seal Ready"

const (
	DefaultRPCPort      = 19944
	DefaultWSPort       = 19933
	DefaultP2PPort      = 19955
	DefaultSpawningTime = 20 * time.Second
	DefaultName         = "canonbrother"

	readyMargin = 2 * time.Second
	maxLogLines = 2000
)

var ErrLaunchFailed = errors.New("failed to launch node")

// Instance is a running dev node.
type Instance interface {
	RPCURL() string
	WSURL() string
	Logs() string
	Stop(ctx context.Context) error
}

// Launcher starts a dev node and returns once it is ready.
type Launcher interface {
	Launch(ctx context.Context) (Instance, error)
}

// Options configures a locally spawned node binary.
type Options struct {
	BinaryPath   string
	Name         string
	Wasm         bool
	RPCPort      int
	WSPort       int
	P2PPort      int
	SpawningTime time.Duration
	DisplayLog   bool
	ExtraArgs    []string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.RPCPort == 0 {
		o.RPCPort = DefaultRPCPort
	}
	if o.WSPort == 0 {
		o.WSPort = DefaultWSPort
	}
	if o.P2PPort == 0 {
		o.P2PPort = DefaultP2PPort
	}
	if o.SpawningTime == 0 {
		o.SpawningTime = DefaultSpawningTime
	}
	return o
}

// Args returns the node command line: manual sealing, no telemetry or prometheus, Alice as
// authority, open CORS, no peers, fixed ports and temporary storage.
func (o Options) Args() []string {
	o = o.withDefaults()
	execution := "Native"
	if o.Wasm {
		execution = "Wasm"
	}
	args := []string{
		"--execution=" + execution,
		"--name=" + o.Name,
		"--no-telemetry",
		"--no-prometheus",
		"--force-authoring",
		"--rpc-cors=all",
		"--alice",
		"--sealing=manual",
		"--in-peers=0",
		"--out-peers=0",
		fmt.Sprintf("--port=%d", o.P2PPort),
		fmt.Sprintf("--rpc-port=%d", o.RPCPort),
		fmt.Sprintf("--ws-port=%d", o.WSPort),
		"--tmp",
	}
	return append(args, o.ExtraArgs...)
}

// ReadyTimeout is how long Start waits for ReadyMarker.
func (o Options) ReadyTimeout() time.Duration {
	o = o.withDefaults()
	if o.SpawningTime <= readyMargin {
		return o.SpawningTime
	}
	return o.SpawningTime - readyMargin
}

func (o Options) Launch(ctx context.Context) (Instance, error) {
	return Start(ctx, o)
}

// Node is a node process spawned from a local binary.
type Node struct {
	opts Options
	cmd  *exec.Cmd
	logs *logBuffer

	exited  chan struct{}
	waitErr error
	stop    sync.Once
}

// Start spawns the node and blocks until it prints ReadyMarker. If the marker does not show
// up in time, or the process exits first, the command and its output are logged and
// ErrLaunchFailed is returned.
func Start(ctx context.Context, opts Options) (*Node, error) {
	opts = opts.withDefaults()
	cmd := exec.Command(opts.BinaryPath, opts.Args()...)
	bindToParent(cmd)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(ErrLaunchFailed, "%s: %v", opts.BinaryPath, err)
	}

	n := &Node{opts: opts, cmd: cmd, logs: newLogBuffer(maxLogLines), exited: make(chan struct{})}
	ready := make(chan struct{})
	go n.scan(pr, ready)
	go func() {
		n.waitErr = cmd.Wait()
		pw.Close()
		close(n.exited)
	}()

	timeout := opts.ReadyTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ready:
		logrus.Infof("node %s ready (rpc %d, ws %d)", opts.Name, opts.RPCPort, opts.WSPort)
		return n, nil
	case <-n.exited:
		n.dumpLogs()
		return nil, errors.Wrapf(ErrLaunchFailed, "process exited: %v", n.waitErr)
	case <-timer.C:
		n.dumpLogs()
		n.Stop(context.Background())
		return nil, errors.Wrapf(ErrLaunchFailed, "no %q after %s", ReadyMarker, timeout)
	case <-ctx.Done():
		n.Stop(context.Background())
		return nil, ctx.Err()
	}
}

func (n *Node) scan(r io.Reader, ready chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	signalled := false
	for scanner.Scan() {
		line := scanner.Text()
		if n.opts.DisplayLog {
			logrus.Info(line)
		}
		n.logs.add(line)
		if !signalled && strings.Contains(line, ReadyMarker) {
			signalled = true
			close(ready)
		}
	}
	// keep the pipe drained so the node never blocks on output
	io.Copy(io.Discard, r)
}

func (n *Node) dumpLogs() {
	logrus.Errorf("Failed to start dev node.")
	logrus.Errorf("Command: %s %s", n.opts.BinaryPath, strings.Join(n.opts.Args(), " "))
	logrus.Errorf("Logs:\n%s", n.logs.String())
}

func (n *Node) RPCURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", n.opts.RPCPort)
}

func (n *Node) WSURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d", n.opts.WSPort)
}

func (n *Node) Logs() string {
	return n.logs.String()
}

// Exited is closed once the process has terminated.
func (n *Node) Exited() <-chan struct{} {
	return n.exited
}

// Stop sends SIGTERM and waits for the process to exit. It kills the process if ctx ends
// first.
func (n *Node) Stop(ctx context.Context) error {
	var err error
	n.stop.Do(func() {
		select {
		case <-n.exited:
			return
		default:
		}
		if sigErr := n.cmd.Process.Signal(syscall.SIGTERM); sigErr != nil {
			logrus.Warnf("signal node: %v", sigErr)
		}
		select {
		case <-n.exited:
		case <-ctx.Done():
			n.cmd.Process.Kill()
			<-n.exited
			err = ctx.Err()
		}
	})
	return err
}

type logBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{max: max}
}

func (b *logBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

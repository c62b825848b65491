package node

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage     = "defi/metachain:master"
	ContainerPrefix  = "metachain-testcontainers-"
	defaultStartup   = 20 * time.Second
	defaultNodeBuild = "metachain"
)

type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// P2PPort is the peer port exposed for each network.
func (n Network) P2PPort() int {
	if n == Mainnet {
		return 9955
	}
	return 19955
}

// ContainerOptions configures a node running inside a docker container.
type ContainerOptions struct {
	Image          string
	Network        Network
	BinaryName     string
	StartupTimeout time.Duration
}

func (o ContainerOptions) withDefaults() ContainerOptions {
	if o.Image == "" {
		o.Image = DefaultImage
	}
	if o.Network == "" {
		o.Network = Testnet
	}
	if o.BinaryName == "" {
		o.BinaryName = defaultNodeBuild
	}
	if o.StartupTimeout == 0 {
		o.StartupTimeout = defaultStartup
	}
	return o
}

func (o ContainerOptions) Cmd() []string {
	o = o.withDefaults()
	return []string{
		"target/release/" + o.BinaryName,
		"--sealing=manual",
		"--execution=Native",
		"--no-telemetry",
		"--no-prometheus",
		"--force-authoring",
		"--rpc-cors=all",
		"--rpc-external",
		"--ws-external",
		"--alice",
		"--in-peers=0",
		"--out-peers=0",
		fmt.Sprintf("--port=%d", o.Network.P2PPort()),
		fmt.Sprintf("--rpc-port=%d", DefaultRPCPort),
		fmt.Sprintf("--ws-port=%d", DefaultWSPort),
		"--tmp",
	}
}

// ContainerName is unique per call.
func (o ContainerOptions) ContainerName() string {
	o = o.withDefaults()
	return fmt.Sprintf("%s%s-%s", ContainerPrefix, o.Network, strings.Split(uuid.NewString(), "-")[0])
}

func (o ContainerOptions) Launch(ctx context.Context) (Instance, error) {
	o = o.withDefaults()
	rpcPort := nat.Port(fmt.Sprintf("%d/tcp", DefaultRPCPort))
	wsPort := nat.Port(fmt.Sprintf("%d/tcp", DefaultWSPort))
	req := testcontainers.ContainerRequest{
		Image:        o.Image,
		Name:         o.ContainerName(),
		Cmd:          o.Cmd(),
		ExposedPorts: []string{fmt.Sprintf("%d/tcp", o.Network.P2PPort()), string(rpcPort), string(wsPort)},
		WaitingFor:   wait.ForLog(ReadyMarker).WithStartupTimeout(o.StartupTimeout),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, errors.Wrapf(ErrLaunchFailed, "container %s: %v", o.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		c.Terminate(ctx)
		return nil, err
	}
	rpcMapped, err := c.MappedPort(ctx, rpcPort)
	if err != nil {
		c.Terminate(ctx)
		return nil, err
	}
	wsMapped, err := c.MappedPort(ctx, wsPort)
	if err != nil {
		c.Terminate(ctx)
		return nil, err
	}
	return &Container{
		container: c,
		rpcURL:    fmt.Sprintf("http://%s:%s", host, rpcMapped.Port()),
		wsURL:     fmt.Sprintf("ws://%s:%s", host, wsMapped.Port()),
	}, nil
}

// Container is a node running in docker.
type Container struct {
	container testcontainers.Container
	rpcURL    string
	wsURL     string
}

func (c *Container) RPCURL() string { return c.rpcURL }
func (c *Container) WSURL() string  { return c.wsURL }

func (c *Container) Logs() string {
	rc, err := c.container.Logs(context.Background())
	if err != nil {
		return ""
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	return string(b)
}

func (c *Container) Stop(ctx context.Context) error {
	return c.container.Terminate(ctx)
}

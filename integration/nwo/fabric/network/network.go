/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/commands"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/hyperledger-labs/fabnet/integration/nwo/runner"
	"github.com/hyperledger-labs/fabnet/pkg/utils"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var logger = logging.MustGetLogger("fabnet.network")

type State int32

const (
	Down State = iota
	Starting
	Up
	Stopping
)

func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case Starting:
		return "starting"
	case Up:
		return "up"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	DefaultComposeTimeout = 5 * time.Minute
	DefaultReadyTimeout   = 2 * time.Minute
	DefaultReadyDelay     = 250 * time.Millisecond
	DefaultReadyMaxDelay  = 5 * time.Second
)

// Handle identifies a running network.
type Handle struct {
	Project string
	Network string
}

// DialFunc opens a connection, as net.Dialer.DialContext does.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Network drives the container lifecycle of the fabric network described by a topology.
type Network struct {
	Topology  *topology.Topology
	Workspace *workspace.Workspace
	Runner    api.CommandRunner

	// ReadyHost is where the published orderer and peer ports are probed
	ReadyHost     string
	ReadyTimeout  time.Duration
	ReadyDelay    time.Duration
	ReadyMaxDelay time.Duration
	Dial          DialFunc

	state  atomic.Int32
	handle *Handle
}

func New(t *topology.Topology, ws *workspace.Workspace, r api.CommandRunner) *Network {
	d := &net.Dialer{Timeout: 2 * time.Second}
	return &Network{
		Topology:      t,
		Workspace:     ws,
		Runner:        r,
		ReadyHost:     "127.0.0.1",
		ReadyTimeout:  DefaultReadyTimeout,
		ReadyDelay:    DefaultReadyDelay,
		ReadyMaxDelay: DefaultReadyMaxDelay,
		Dial:          d.DialContext,
	}
}

func (n *Network) State() State {
	return State(n.state.Load())
}

func (n *Network) setState(s State) {
	old := State(n.state.Swap(int32(s)))
	if old != s {
		logger.Debugf("network [%s] %s -> %s", n.Topology.Name(), old, s)
	}
}

// Handle returns the handle of the running network, nil if it is not up.
func (n *Network) Handle() *Handle {
	if n.State() != Up {
		return nil
	}
	return n.handle
}

// Up starts the containers and blocks until the orderer and every peer accept
// connections on their published ports.
func (n *Network) Up(ctx context.Context) (*Handle, error) {
	composeFile := n.Workspace.ComposePath()
	if _, err := os.Stat(composeFile); err != nil {
		return nil, api.NewError(api.ErrNetworkStartFailed, "compose up", errors.Wrapf(err, "compose file not available"))
	}

	n.setState(Starting)
	logger.Infof("starting network [%s]", n.Topology.Name())
	res, err := n.Runner.Run(ctx, common.NewSpec("docker-compose", commands.ComposeUp{
		File:    composeFile,
		Project: n.Topology.Name(),
		Dir:     n.Workspace.Root,
	}, DefaultComposeTimeout))
	if err != nil {
		return nil, api.NewError(api.ErrNetworkStartFailed, "compose up", err)
	}
	if !res.Success() {
		return nil, api.NewError(api.ErrNetworkStartFailed, "compose up", errors.Errorf("exit code %d: %s", res.ExitCode, res.Output()))
	}

	if err := n.waitReady(ctx); err != nil {
		return nil, err
	}

	n.handle = &Handle{Project: n.Topology.Name(), Network: n.Topology.Name()}
	n.setState(Up)
	logger.Infof("network [%s] is up", n.Topology.Name())
	return n.handle, nil
}

type endpoint struct {
	name    string
	address string
}

func (n *Network) endpoints() []endpoint {
	eps := []endpoint{{
		name:    n.Topology.Orderer.Host(),
		address: net.JoinHostPort(n.ReadyHost, fmt.Sprint(n.Topology.Orderer.Port)),
	}}
	for _, p := range n.Topology.Peers() {
		eps = append(eps, endpoint{name: p.Host(), address: net.JoinHostPort(n.ReadyHost, fmt.Sprint(p.Port))})
	}
	return eps
}

func (n *Network) waitReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, n.ReadyTimeout)
	defer cancel()

	eps := n.endpoints()
	errs := runner.ForEach(readyCtx, len(eps), eps, func(ctx context.Context, ep endpoint) error {
		r := utils.NewRetryRunner(utils.Infinitely, n.ReadyDelay, true).WithMaxDelay(n.ReadyMaxDelay)
		return r.Run(ctx, func(ctx context.Context) error {
			conn, err := n.Dial(ctx, "tcp", ep.address)
			if err != nil {
				return err
			}
			logger.Debugf("[%s] accepts connections on [%s]", ep.name, ep.address)
			return conn.Close()
		})
	})

	var pending []string
	for i, err := range errs {
		if err != nil {
			pending = append(pending, eps[i].name)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "readiness wait interrupted")
	}
	return api.NewError(api.ErrTimeout, "network readiness",
		errors.Errorf("%v not reachable within %s", pending, n.ReadyTimeout))
}

// Down stops and removes the containers of the network. It can be called in any
// state; a missing compose file means there is nothing to stop. When compose
// fails the network stays Stopping.
func (n *Network) Down(ctx context.Context, removeVolumes bool) error {
	composeFile := n.Workspace.ComposePath()
	if _, err := os.Stat(composeFile); os.IsNotExist(err) {
		logger.Warnf("compose file [%s] not found, nothing to stop", composeFile)
		n.setState(Down)
		return nil
	}

	n.setState(Stopping)
	res, err := n.Runner.Run(ctx, common.NewSpec("docker-compose", commands.ComposeDown{
		File:    composeFile,
		Project: n.Topology.Name(),
		Dir:     n.Workspace.Root,
		Volumes: removeVolumes,
	}, DefaultComposeTimeout))
	n.handle = nil
	if err != nil {
		return errors.Wrapf(err, "failed stopping network [%s]", n.Topology.Name())
	}
	if !res.Success() {
		return errors.Errorf("failed stopping network [%s]: exit code %d: %s", n.Topology.Name(), res.ExitCode, res.Output())
	}
	n.setState(Down)
	return nil
}

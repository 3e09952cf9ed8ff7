/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/commands"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/network"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/hyperledger-labs/fabnet/integration/nwo/runner"
	"github.com/hyperledger-labs/fabnet/pkg/utils"
	errors2 "github.com/hyperledger-labs/fabnet/pkg/utils/errors"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.chaincode")

const (
	DefaultReadyTimeout = 2 * time.Minute
	DefaultReadyDelay   = time.Second
)

// Orchestrator installs, instantiates and calls legacy chaincodes.
type Orchestrator struct {
	Topology *topology.Topology
	CLI      *network.CLI
	// Runtime is used to detect and await chaincode containers; when nil both checks are skipped
	Runtime api.ContainerRuntime
	Limit   int

	ReadyTimeout time.Duration
	ReadyDelay   time.Duration

	mu           sync.Mutex
	instantiated map[string]string
}

func New(t *topology.Topology, cli *network.CLI, rt api.ContainerRuntime) *Orchestrator {
	return &Orchestrator{
		Topology:     t,
		CLI:          cli,
		Runtime:      rt,
		Limit:        runner.DefaultLimit,
		ReadyTimeout: DefaultReadyTimeout,
		ReadyDelay:   DefaultReadyDelay,
		instantiated: map[string]string{},
	}
}

// DeployResult is the outcome of a deployment.
type DeployResult struct {
	Installed    []*topology.Peer
	Instantiated *topology.Peer
	Report       *api.Report
}

// Deploy installs cc on targets, the chaincode targets of the topology when empty,
// and instantiates it once through the first peer that installed it.
// Deploy aborts with ErrChaincodeInstallFailed only when no peer installed the chaincode.
func (o *Orchestrator) Deploy(ctx context.Context, cc *topology.Chaincode, targets []*topology.Peer) (*DeployResult, error) {
	if len(targets) == 0 {
		targets = o.Topology.ChaincodeTargets(cc)
	}
	installed, report := o.InstallAll(ctx, cc, targets)
	result := &DeployResult{Installed: installed, Report: report}
	if len(installed) == 0 {
		err := api.NewError(api.ErrChaincodeInstallFailed, "deploy "+cc.Name,
			errors.Errorf("no peer out of %d installed the chaincode", len(targets)))
		report.Fatal = err
		return result, err
	}

	if err := o.Instantiate(ctx, cc, installed[0]); err != nil {
		report.Fatal = err
		return result, err
	}
	result.Instantiated = installed[0]
	return result, nil
}

// InstallAll installs cc on every target concurrently. It returns the peers that
// have the chaincode installed, in target order, and a report holding one failure
// per peer that does not.
func (o *Orchestrator) InstallAll(ctx context.Context, cc *topology.Chaincode, targets []*topology.Peer) ([]*topology.Peer, *api.Report) {
	report := &api.Report{}
	errs := runner.ForEach(ctx, o.Limit, targets, func(ctx context.Context, p *topology.Peer) error {
		return o.Install(ctx, cc, p)
	})

	var installed []*topology.Peer
	for i, err := range errs {
		if err == nil {
			installed = append(installed, targets[i])
			continue
		}
		logger.Warnf("install of [%s:%s] on [%s] failed: %s", cc.Name, cc.Version, targets[i].ID(), err)
		report.AddFailure(api.Failure{Target: targets[i].ID(), Step: "install " + cc.Name, Err: err})
	}
	logger.Infof("chaincode [%s:%s] installed on %d/%d peers", cc.Name, cc.Version, len(installed), len(targets))
	return installed, report
}

// Install installs cc on p. A chaincode already installed counts as a success.
func (o *Orchestrator) Install(ctx context.Context, cc *topology.Chaincode, p *topology.Peer) error {
	res, err := o.CLI.PeerAdminSession(ctx, p, commands.ChaincodeInstallLegacy{
		NetworkPrefix: o.Topology.Name(),
		Name:          cc.Name,
		Version:       cc.Version,
		Path:          cc.Path,
		Lang:          cc.Lang,
	})
	if err != nil {
		return api.NewError(api.ErrChaincodeInstallFailed, p.ID(), err)
	}
	if res.Success() {
		return nil
	}
	if strings.Contains(res.Output(), "already exists") {
		logger.Debugf("[%s:%s] already installed on [%s]", cc.Name, cc.Version, p.ID())
		return nil
	}
	return api.NewError(api.ErrChaincodeInstallFailed, p.ID(),
		errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output())))
}

func instanceKey(cc *topology.Chaincode) string {
	return cc.Channel + "/" + cc.Name
}

// Instantiate instantiates cc on its channel through p and waits for the chaincode
// container to run. A second instantiate of the same chaincode on the same channel,
// or one while a container of the chaincode is running, fails with ErrDuplicateInstantiate.
func (o *Orchestrator) Instantiate(ctx context.Context, cc *topology.Chaincode, p *topology.Peer) error {
	op := "instantiate " + cc.Name
	if err := o.checkDuplicate(ctx, cc); err != nil {
		return err
	}

	o.mu.Lock()
	if _, ok := o.instantiated[instanceKey(cc)]; ok {
		o.mu.Unlock()
		return o.duplicate(cc, o.instantiated[instanceKey(cc)], "instantiated by this run")
	}
	// reserved until the outcome is known
	o.instantiated[instanceKey(cc)] = cc.Version
	o.mu.Unlock()

	err := o.instantiate(ctx, cc, p)
	if err != nil {
		o.mu.Lock()
		delete(o.instantiated, instanceKey(cc))
		o.mu.Unlock()
		if errors2.HasCause(err, api.ErrDuplicateInstantiate) {
			return err
		}
		return api.NewError(api.ErrChaincodeInstantiateFailed, op, err)
	}
	logger.Infof("chaincode [%s:%s] instantiated on [%s] through [%s]", cc.Name, cc.Version, cc.Channel, p.ID())

	return o.awaitContainer(ctx, cc, p)
}

func (o *Orchestrator) instantiate(ctx context.Context, cc *topology.Chaincode, p *topology.Peer) error {
	res, err := o.CLI.PeerAdminSession(ctx, p, commands.ChaincodeInstantiateLegacy{
		NetworkPrefix: o.Topology.Name(),
		ChannelID:     cc.Channel,
		Orderer:       o.CLI.OrdererAddress(),
		Name:          cc.Name,
		Version:       cc.Version,
		Ctor:          commands.Ctor(cc.InitArgs...),
		Policy:        cc.Policy,
		Lang:          cc.Lang,
		OrdererTLS:    o.CLI.OrdererTLS(),
	})
	if err != nil {
		return err
	}
	if res.Success() {
		return nil
	}
	if strings.Contains(res.Output(), "already exists") {
		return o.duplicate(cc, "", "reported by the peer")
	}
	return errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output()))
}

// checkDuplicate looks for a running container of cc spawned by any peer of the topology.
func (o *Orchestrator) checkDuplicate(ctx context.Context, cc *topology.Chaincode) error {
	if o.Runtime == nil {
		return nil
	}
	containers, err := o.Runtime.ListContainers(ctx, false)
	if err != nil {
		logger.Warnf("cannot list containers, skipping duplicate detection: %s", err)
		return nil
	}
	for _, c := range containers {
		for _, name := range c.Names {
			for _, p := range o.Topology.Peers() {
				prefix := "dev-" + p.Host() + "-" + cc.Name + "-"
				if strings.HasPrefix(name, prefix) {
					running := strings.SplitN(strings.TrimPrefix(name, prefix), "-", 2)[0]
					return o.duplicate(cc, running, "container "+name+" is running")
				}
			}
		}
	}
	return nil
}

func (o *Orchestrator) duplicate(cc *topology.Chaincode, existing, reason string) error {
	msg := reason
	if existing != "" {
		msg += ", " + compareVersions(existing, cc.Version)
	}
	return api.NewError(api.ErrDuplicateInstantiate, cc.Channel+"/"+cc.Name, errors.New(msg))
}

func compareVersions(existing, requested string) string {
	ev, err1 := version.NewVersion(existing)
	rv, err2 := version.NewVersion(requested)
	if err1 != nil || err2 != nil {
		return "existing version " + existing + ", requested " + requested
	}
	switch {
	case rv.GreaterThan(ev):
		return "requested version " + requested + " is newer than " + existing + ": upgrade instead"
	case rv.LessThan(ev):
		return "requested version " + requested + " is older than " + existing
	default:
		return "version " + existing + " already running"
	}
}

// awaitContainer polls the runtime until the chaincode container of p runs.
func (o *Orchestrator) awaitContainer(ctx context.Context, cc *topology.Chaincode, p *topology.Peer) error {
	if o.Runtime == nil {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, o.ReadyTimeout)
	defer cancel()

	prefix := cc.ContainerPrefix(p)
	err := utils.NewRetryRunner(utils.Infinitely, o.ReadyDelay, false).Run(waitCtx, func(ctx context.Context) error {
		containers, err := o.Runtime.ListContainers(ctx, false)
		if err != nil {
			return err
		}
		for _, c := range containers {
			for _, name := range c.Names {
				if strings.HasPrefix(name, prefix) && c.Running() {
					logger.Debugf("chaincode container [%s] is running", name)
					return nil
				}
			}
		}
		return errors.Errorf("no running container [%s*]", prefix)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "waiting for chaincode container interrupted")
	}
	return api.NewError(api.ErrTimeout, "await "+prefix, errors.Errorf("container not running after %s", o.ReadyTimeout))
}

// Query evaluates the chaincode on p and returns its trimmed output.
func (o *Orchestrator) Query(ctx context.Context, cc *topology.Chaincode, p *topology.Peer, args ...string) (string, error) {
	res, err := o.CLI.PeerAdminSession(ctx, p, commands.ChaincodeQuery{
		NetworkPrefix: o.Topology.Name(),
		ChannelID:     cc.Channel,
		Name:          cc.Name,
		Ctor:          commands.Ctor(args...),
	})
	if err == nil && !res.Success() {
		err = errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output()))
	}
	if err != nil {
		return "", api.NewError(api.ErrChaincodeCallFailed, "query "+cc.Name, err)
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Invoke submits a transaction through p, endorsed by endorsers (p alone when empty),
// and waits for it to be committed.
func (o *Orchestrator) Invoke(ctx context.Context, cc *topology.Chaincode, p *topology.Peer, endorsers []*topology.Peer, args ...string) (string, error) {
	if len(endorsers) == 0 {
		endorsers = []*topology.Peer{p}
	}
	var addresses, rootCerts []string
	for _, e := range endorsers {
		addresses = append(addresses, e.Address())
		rootCerts = append(rootCerts, o.CLI.PeerTLSRootCert(e))
	}

	res, err := o.CLI.PeerAdminSession(ctx, p, commands.ChaincodeInvoke{
		NetworkPrefix:    o.Topology.Name(),
		ChannelID:        cc.Channel,
		Orderer:          o.CLI.OrdererAddress(),
		Name:             cc.Name,
		Ctor:             commands.Ctor(args...),
		PeerAddresses:    addresses,
		TLSRootCertFiles: rootCerts,
		WaitForEvent:     true,
		OrdererTLS:       o.CLI.OrdererTLS(),
	})
	if err == nil && !res.Success() {
		err = errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output()))
	}
	if err != nil {
		return "", api.NewError(api.ErrChaincodeCallFailed, "invoke "+cc.Name, err)
	}
	// the peer CLI logs the invoke result on stderr
	return strings.TrimSpace(res.Output()), nil
}

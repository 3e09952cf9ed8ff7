/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nwo

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/artifacts"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/chaincode"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/channel"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/cleanup"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/network"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/hyperledger-labs/fabnet/pkg/utils"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
	"github.com/tedsuo/ifrit"
)

var logger = logging.MustGetLogger("fabnet.nwo")

// NWO bootstraps and tears down a fabric network described by a topology.
// It runs as an ifrit.Runner: a signal stops the bootstrap before the next step.
type NWO struct {
	Topology  *topology.Topology
	Workspace *workspace.Workspace

	Artifacts  *artifacts.Stage
	Network    *network.Network
	Channels   *channel.Orchestrator
	Chaincodes *chaincode.Orchestrator
	Cleaner    *cleanup.Reconciler

	Steps []Step
	// Resume skips the steps recorded as completed in the progress file
	Resume bool
	// Out receives the values read by the smoke test
	Out   io.Writer
	RunID string

	deployed map[string]*topology.Peer
	report   *api.Report
}

// New wires the components on top of the given command runner and container runtime.
// rt can be nil, in which case chaincode containers are neither awaited nor cleaned.
func New(t *topology.Topology, ws *workspace.Workspace, r api.CommandRunner, rt api.ContainerRuntime) *NWO {
	cli := network.NewCLI(t, r)
	nw := network.New(t, ws, r)
	n := &NWO{
		Topology:   t,
		Workspace:  ws,
		Artifacts:  artifacts.New(r),
		Network:    nw,
		Channels:   channel.New(t, cli),
		Chaincodes: chaincode.New(t, cli, rt),
		Cleaner:    cleanup.New(ws, nw, rt),
		Out:        os.Stdout,
		RunID:      utils.GenerateUUID(),
		deployed:   map[string]*topology.Peer{},
	}
	n.Steps = n.DefaultSteps()
	return n
}

// DefaultSteps returns artifacts -> network-up -> channel-bootstrap -> chaincode-deploy -> smoke-test.
func (n *NWO) DefaultSteps() []Step {
	return []Step{
		{Name: ArtifactsStep, Run: n.generate},
		{Name: NetworkUpStep, DependsOn: []string{ArtifactsStep}, Run: n.networkUp},
		{Name: ChannelBootstrapStep, DependsOn: []string{NetworkUpStep}, Run: n.bootstrapChannels},
		{Name: ChaincodeDeployStep, DependsOn: []string{ChannelBootstrapStep}, Run: n.deployChaincodes},
		{Name: SmokeTestStep, DependsOn: []string{ChaincodeDeployStep}, Run: n.smokeTest},
	}
}

// Run implements ifrit.Runner by running every step.
func (n *NWO) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	return RunFunc(func(ctx context.Context) error {
		_, err := n.Start(ctx)
		return err
	}).Run(signals, ready)
}

// RunFunc adapts f to an ifrit.Runner. The first signal cancels the context of f,
// which stops before the next step; an external process already running completes.
func RunFunc(f func(ctx context.Context) error) ifrit.Runner {
	return ifrit.RunFunc(func(signals <-chan os.Signal, ready chan<- struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case sig := <-signals:
				logger.Warnf("received [%s], stopping before the next step", sig)
				cancel()
			case <-ctx.Done():
			}
		}()
		close(ready)
		return f(ctx)
	})
}

// Report returns the report of the last Start or Generate.
func (n *NWO) Report() *api.Report {
	return n.report
}

// Start runs every step.
func (n *NWO) Start(ctx context.Context) (*api.Report, error) {
	steps, err := Order(n.Steps)
	if err != nil {
		return nil, err
	}
	return n.execute(ctx, steps)
}

// Generate renders the configuration tree and generates crypto material and channel artifacts only.
func (n *NWO) Generate(ctx context.Context) (*api.Report, error) {
	steps, err := Closure(n.Steps, ArtifactsStep)
	if err != nil {
		return nil, err
	}
	return n.execute(ctx, steps)
}

// Clean brings the workspace and the containers back to the Down state.
func (n *NWO) Clean(ctx context.Context) (*api.Report, error) {
	logger.Infof("cleaning network [%s] in [%s]", n.Topology.Name(), n.Workspace.Root)
	return n.Cleaner.Reconcile(ctx)
}

func (n *NWO) execute(ctx context.Context, steps []Step) (*api.Report, error) {
	report := &api.Report{}
	n.report = report
	if err := n.Topology.Validate(); err != nil {
		report.Fatal = err
		return report, err
	}

	progress, err := n.loadProgress()
	if err != nil {
		report.Fatal = err
		return report, err
	}
	progress.RunID = n.RunID
	progress.Network = n.Topology.Name()

	logger.Infof("run [%s]: %d steps on network [%s]", n.RunID, len(steps), n.Topology.Name())
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			report.Fatal = errors.Wrapf(err, "interrupted before step [%s]", s.Name)
			return report, report.Fatal
		}
		if n.Resume && progress.Done(s.Name) {
			logger.Infof("step [%s] already completed, skipping", s.Name)
			report.Skipped = append(report.Skipped, s.Name)
			continue
		}

		logger.Infof("step [%s]...", s.Name)
		if err := s.Run(ctx, report); err != nil {
			logger.Errorf("step [%s] failed: %s", s.Name, err)
			report.Fatal = errors.WithMessagef(err, "step [%s]", s.Name)
			return report, report.Fatal
		}
		logger.Infof("step [%s]...done", s.Name)
		report.Completed = append(report.Completed, s.Name)

		progress.MarkDone(s.Name)
		if err := progress.Save(n.Workspace.ProgressPath()); err != nil {
			logger.Warnf("cannot record progress: %s", err)
		}
	}
	return report, nil
}

func (n *NWO) loadProgress() (*Progress, error) {
	if !n.Resume {
		return &Progress{}, nil
	}
	p, err := LoadProgress(n.Workspace.ProgressPath())
	if err != nil {
		return nil, err
	}
	if p.Network != "" && p.Network != n.Topology.Name() {
		logger.Warnf("progress belongs to network [%s], starting over", p.Network)
		return &Progress{}, nil
	}
	if len(p.Completed) != 0 {
		logger.Infof("resuming run [%s], completed steps %v", p.RunID, p.Completed)
	}
	return p, nil
}

func (n *NWO) generate(ctx context.Context, _ *api.Report) error {
	if err := os.MkdirAll(n.Workspace.Root, 0o755); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, "workspace", err)
	}
	if err := artifacts.Render(n.Workspace.RenderedPath(), n.Workspace.CryptoConfigPath(), n.Topology.GenerateCryptoConfig); err != nil {
		return err
	}
	if err := artifacts.Render(n.Workspace.RenderedPath(), n.Workspace.ConfigTxPath(), n.Topology.GenerateConfigTx); err != nil {
		return err
	}

	if err := n.Artifacts.GenerateCrypto(ctx, n.Workspace.CryptoConfigPath(), n.Workspace.CryptoDir()); err != nil {
		return err
	}
	for _, c := range n.Topology.Channels {
		var mspIDs []string
		for _, o := range n.Topology.ChannelOrganizations(c) {
			mspIDs = append(mspIDs, o.MSPID)
		}
		err := n.Artifacts.GenerateChannelArtifacts(ctx, artifacts.ChannelRequest{
			Workspace:      n.Workspace,
			SystemChannel:  n.Topology.SystemChannel(),
			GenesisProfile: n.Topology.GenesisProfile,
			Channel:        c.Name,
			ChannelProfile: c.Profile,
			MSPIDs:         mspIDs,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *NWO) networkUp(ctx context.Context, _ *api.Report) error {
	_, err := n.Network.Up(ctx)
	return err
}

func (n *NWO) bootstrapChannels(ctx context.Context, report *api.Report) error {
	for _, c := range n.Topology.Channels {
		res, err := n.Channels.Bootstrap(ctx, c.Name)
		if res != nil {
			report.Failures = append(report.Failures, res.Report.Failures...)
			report.Warnings = append(report.Warnings, res.Report.Warnings...)
		}
		if ctx.Err() != nil {
			return errors.WithMessagef(ctx.Err(), "bootstrap %s interrupted", c.Name)
		}
		if err != nil {
			return err
		}
		if len(res.Joined) == 0 {
			return api.NewError(api.ErrPeerJoinFailed, "bootstrap "+c.Name, errors.New("no peer joined the channel"))
		}
	}
	return nil
}

func (n *NWO) deployChaincodes(ctx context.Context, report *api.Report) error {
	for _, cc := range n.Topology.Chaincodes {
		res, err := n.Chaincodes.Deploy(ctx, cc, nil)
		if res != nil {
			report.Failures = append(report.Failures, res.Report.Failures...)
			report.Warnings = append(report.Warnings, res.Report.Warnings...)
		}
		if ctx.Err() != nil {
			return errors.WithMessagef(ctx.Err(), "deploy %s interrupted", cc.Name)
		}
		if err != nil {
			return err
		}
		n.deployed[cc.Name] = res.Instantiated
	}
	return nil
}

// smokeTest queries, invokes and queries again every chaincode having smoke test arguments.
func (n *NWO) smokeTest(ctx context.Context, _ *api.Report) error {
	for _, cc := range n.Topology.Chaincodes {
		if len(cc.QueryArgs) == 0 {
			continue
		}
		p := n.deployed[cc.Name]
		if p == nil {
			targets := n.Topology.ChaincodeTargets(cc)
			if len(targets) == 0 {
				continue
			}
			p = targets[0]
		}

		query := func() error {
			v, err := n.Chaincodes.Query(ctx, cc, p, cc.QueryArgs...)
			if err != nil {
				return err
			}
			fmt.Fprintf(n.Out, "%s %s on %s: %s\n", cc.Name, strings.Join(cc.QueryArgs, " "), p.ID(), v)
			return nil
		}
		if err := query(); err != nil {
			return err
		}
		if len(cc.InvokeArgs) == 0 {
			continue
		}
		if _, err := n.Chaincodes.Invoke(ctx, cc, p, n.endorsers(cc), cc.InvokeArgs...); err != nil {
			return err
		}
		fmt.Fprintf(n.Out, "%s %s on %s: committed\n", cc.Name, strings.Join(cc.InvokeArgs, " "), p.ID())
		if err := query(); err != nil {
			return err
		}
	}
	return nil
}

// endorsers returns the first target peer of every organization holding the chaincode.
func (n *NWO) endorsers(cc *topology.Chaincode) []*topology.Peer {
	var res []*topology.Peer
	seen := map[string]bool{}
	for _, p := range n.Topology.ChaincodeTargets(cc) {
		if !seen[p.Organization] {
			seen[p.Organization] = true
			res = append(res, p)
		}
	}
	return res
}

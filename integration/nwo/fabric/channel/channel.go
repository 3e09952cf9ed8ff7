/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"context"
	"strings"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/commands"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/network"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/hyperledger-labs/fabnet/integration/nwo/runner"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.channel")

// Orchestrator creates application channels, joins peers and sets anchor peers.
type Orchestrator struct {
	Topology *topology.Topology
	CLI      *network.CLI
	// Limit bounds the concurrent joins
	Limit int
}

func New(t *topology.Topology, cli *network.CLI) *Orchestrator {
	return &Orchestrator{Topology: t, CLI: cli, Limit: runner.DefaultLimit}
}

// Result is the outcome of a channel bootstrap.
type Result struct {
	Channel string
	// Existed is true when the channel was found already created
	Existed  bool
	Joined   []*topology.Peer
	Anchored []string
	Report   *api.Report
}

// Bootstrap creates the channel through the first peer of its first organization,
// joins every peer of the channel organizations and submits one anchor peers
// update per organization having at least one joined peer.
// Only a failed creation is fatal; join and anchor failures end up in the report.
func (o *Orchestrator) Bootstrap(ctx context.Context, channelName string) (*Result, error) {
	c := o.Topology.Channel(channelName)
	if c == nil {
		return nil, api.NewError(api.ErrInvalidTopology, "bootstrap", errors.Errorf("channel [%s] not found", channelName))
	}
	orgs := o.Topology.ChannelOrganizations(c)
	if len(orgs) == 0 || len(orgs[0].Peers) == 0 {
		return nil, api.NewError(api.ErrInvalidTopology, "bootstrap", errors.Errorf("channel [%s] has no peers", channelName))
	}

	result := &Result{Channel: c.Name, Report: &api.Report{}}
	existed, err := o.create(ctx, c, orgs[0].Peers[0])
	if err != nil {
		result.Report.Fatal = err
		return result, err
	}
	result.Existed = existed

	result.Joined = o.join(ctx, c, result.Report)
	result.Anchored = o.updateAnchors(ctx, c, orgs, result.Joined, result.Report)

	logger.Infof("channel [%s]: %d/%d peers joined, anchors set for %v",
		c.Name, len(result.Joined), len(o.Topology.ChannelPeers(c)), result.Anchored)
	return result, nil
}

func (o *Orchestrator) blockFile(c *topology.Channel) string {
	return c.Name + ".block"
}

// create returns true if the channel already existed.
func (o *Orchestrator) create(ctx context.Context, c *topology.Channel, creator *topology.Peer) (bool, error) {
	op := "create channel " + c.Name
	res, err := o.CLI.PeerAdminSession(ctx, creator, commands.ChannelCreate{
		NetworkPrefix: o.Topology.Name(),
		ChannelID:     c.Name,
		Orderer:       o.CLI.OrdererAddress(),
		File:          o.CLI.ArtifactPath(c.Name + ".tx"),
		OutputBlock:   o.blockFile(c),
		OrdererTLS:    o.CLI.OrdererTLS(),
	})
	if err != nil {
		return false, api.NewError(api.ErrChannelCreateFailed, op, err)
	}
	if res.Success() {
		logger.Infof("channel [%s] created", c.Name)
		return false, nil
	}
	createOutput := res.Output()

	// an existing channel makes create fail; its genesis block can still be fetched
	fetch, err := o.CLI.PeerAdminSession(ctx, creator, commands.ChannelFetch{
		NetworkPrefix: o.Topology.Name(),
		ChannelID:     c.Name,
		Block:         "0",
		Orderer:       o.CLI.OrdererAddress(),
		OutputFile:    o.blockFile(c),
		OrdererTLS:    o.CLI.OrdererTLS(),
	})
	if err == nil && fetch.Success() {
		logger.Infof("channel [%s] already exists", c.Name)
		return true, nil
	}
	return false, api.NewError(api.ErrChannelCreateFailed, op,
		errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(createOutput)))
}

func (o *Orchestrator) join(ctx context.Context, c *topology.Channel, report *api.Report) []*topology.Peer {
	peers := o.Topology.ChannelPeers(c)
	errs := runner.ForEach(ctx, o.Limit, peers, func(ctx context.Context, p *topology.Peer) error {
		res, err := o.CLI.PeerAdminSession(ctx, p, commands.ChannelJoin{
			NetworkPrefix: o.Topology.Name(),
			BlockPath:     o.blockFile(c),
		})
		if err != nil {
			return err
		}
		if res.Success() {
			return nil
		}
		if alreadyJoined(res.Output()) {
			logger.Debugf("[%s] already joined [%s]", p.ID(), c.Name)
			return nil
		}
		return errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output()))
	})

	var joined []*topology.Peer
	for i, err := range errs {
		if err == nil {
			joined = append(joined, peers[i])
			continue
		}
		logger.Warnf("[%s] failed joining [%s]: %s", peers[i].ID(), c.Name, err)
		report.AddFailure(api.Failure{
			Target: peers[i].ID(),
			Step:   "join " + c.Name,
			Err:    api.NewError(api.ErrPeerJoinFailed, peers[i].ID(), err),
		})
	}
	return joined
}

func alreadyJoined(output string) bool {
	return strings.Contains(output, "LedgerID already exists") || strings.Contains(output, "ledger already exists")
}

func (o *Orchestrator) updateAnchors(ctx context.Context, c *topology.Channel, orgs []*topology.Organization, joined []*topology.Peer, report *api.Report) []string {
	var anchored []string
	for _, org := range orgs {
		var submitter *topology.Peer
		for _, p := range joined {
			if p.Organization == org.Name {
				submitter = p
				break
			}
		}
		if submitter == nil {
			logger.Warnf("no peer of [%s] joined [%s], skipping anchor peers update", org.Name, c.Name)
			continue
		}

		res, err := o.CLI.PeerAdminSession(ctx, submitter, commands.ChannelUpdate{
			NetworkPrefix: o.Topology.Name(),
			ChannelID:     c.Name,
			Orderer:       o.CLI.OrdererAddress(),
			File:          o.CLI.ArtifactPath(org.MSPID + "anchors.tx"),
			OrdererTLS:    o.CLI.OrdererTLS(),
		})
		if err == nil && !res.Success() {
			err = errors.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output()))
		}
		if err != nil {
			logger.Warnf("anchor peers update of [%s] on [%s] failed: %s", org.Name, c.Name, err)
			report.AddWarning(api.Failure{
				Target: org.Name,
				Step:   "anchor " + c.Name,
				Err:    api.NewError(api.ErrAnchorUpdateFailed, org.MSPID, err),
			})
			continue
		}
		anchored = append(anchored, org.Name)
	}
	return anchored
}

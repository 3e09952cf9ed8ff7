/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/mocks"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/network"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func address(peer string) string {
	return "CORE_PEER_ADDRESS=" + peer
}

func newOrchestrator(r *mocks.Runner) *Orchestrator {
	top := topology.NewDefault()
	return New(top, network.NewCLI(top, r))
}

func ids(peers []*topology.Peer) []string {
	var res []string
	for _, p := range peers {
		res = append(res, p.ID())
	}
	return res
}

func anchorFiles(r *mocks.Runner) []string {
	var files []string
	for _, c := range r.CallsMatching("channel update") {
		for i, a := range c.Args {
			if a == "--file" {
				files = append(files, c.Args[i+1])
			}
		}
	}
	return files
}

func TestBootstrapTwoByTwo(t *testing.T) {
	r := &mocks.Runner{}
	o := newOrchestrator(r)

	res, err := o.Bootstrap(context.Background(), "mychannel")
	require.NoError(t, err)
	assert.False(t, res.Existed)
	assert.Empty(t, res.Report.Failures)
	assert.Empty(t, res.Report.Warnings)

	creates := r.CallsMatching("channel create")
	require.Len(t, creates, 1)
	line := mocks.CommandLine(creates[0])
	assert.Contains(t, line, address("peer0.org1.example.com:7051"))
	assert.Contains(t, line, "--file ./channel-artifacts/mychannel.tx")
	assert.Contains(t, line, "--tls true --cafile")

	assert.Len(t, r.CallsMatching("channel join", "-b mychannel.block"), 4)
	assert.ElementsMatch(t, []string{"peer0.org1", "peer1.org1", "peer0.org2", "peer1.org2"}, ids(res.Joined))

	assert.Equal(t, []string{"./channel-artifacts/Org1MSPanchors.tx", "./channel-artifacts/Org2MSPanchors.tx"}, anchorFiles(r))
	assert.Equal(t, []string{"org1", "org2"}, res.Anchored)
	assert.Empty(t, r.CallsMatching("channel fetch"))
}

func TestBootstrapJoinFailures(t *testing.T) {
	for _, tc := range []struct {
		name      string
		failing   []string
		anchored  []string
		submitter map[string]string
	}{
		{
			name:      "one peer of org1",
			failing:   []string{"peer0.org1.example.com:7051"},
			anchored:  []string{"org1", "org2"},
			submitter: map[string]string{"Org1MSPanchors.tx": "peer1.org1.example.com:8051", "Org2MSPanchors.tx": "peer0.org2.example.com:9051"},
		},
		{
			name:     "all peers of org2",
			failing:  []string{"peer0.org2.example.com:9051", "peer1.org2.example.com:10051"},
			anchored: []string{"org1"},
		},
		{
			name:     "every peer",
			failing:  []string{"peer0.org1.example.com:7051", "peer1.org1.example.com:8051", "peer0.org2.example.com:9051", "peer1.org2.example.com:10051"},
			anchored: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &mocks.Runner{}
			for _, p := range tc.failing {
				r.Fail(1, "Error: proposal failed", address(p), "channel join")
			}
			o := newOrchestrator(r)

			res, err := o.Bootstrap(context.Background(), "mychannel")
			require.NoError(t, err)

			failures := res.Report.FailuresOf(api.ErrPeerJoinFailed)
			assert.Len(t, failures, len(tc.failing))
			assert.Len(t, res.Report.Failures, len(tc.failing))
			assert.Len(t, res.Joined, 4-len(tc.failing))
			assert.Equal(t, tc.anchored, res.Anchored)
			assert.Len(t, r.CallsMatching("channel update"), len(tc.anchored))

			for file, peer := range tc.submitter {
				calls := r.CallsMatching("channel update", file)
				require.Len(t, calls, 1)
				assert.Contains(t, mocks.CommandLine(calls[0]), address(peer))
			}
		})
	}
}

func TestBootstrapExistingChannel(t *testing.T) {
	r := (&mocks.Runner{}).Fail(1, "Error: got unexpected status: BAD_REQUEST -- error applying config update", "channel create")
	o := newOrchestrator(r)

	res, err := o.Bootstrap(context.Background(), "mychannel")
	require.NoError(t, err)
	assert.True(t, res.Existed)

	fetches := r.CallsMatching("channel fetch 0 mychannel.block")
	require.Len(t, fetches, 1)
	assert.Len(t, r.CallsMatching("channel join"), 4)
}

func TestBootstrapCreateFailure(t *testing.T) {
	r := (&mocks.Runner{}).
		Fail(1, "Error: failed to create deliver client: orderer client failed to connect", "channel create").
		Fail(1, "Error: can't read the block", "channel fetch")
	o := newOrchestrator(r)

	res, err := o.Bootstrap(context.Background(), "mychannel")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrChannelCreateFailed)
	assert.Contains(t, err.Error(), "orderer client failed to connect")
	assert.Equal(t, err, res.Report.Fatal)
	assert.Empty(t, r.CallsMatching("channel join"))
}

func TestBootstrapAnchorFailureIsAWarning(t *testing.T) {
	r := (&mocks.Runner{}).Fail(1, "Error: bad signature", "channel update", "Org1MSPanchors.tx")
	o := newOrchestrator(r)

	res, err := o.Bootstrap(context.Background(), "mychannel")
	require.NoError(t, err)
	require.Len(t, res.Report.Warnings, 1)
	assert.ErrorIs(t, res.Report.Warnings[0].Err, api.ErrAnchorUpdateFailed)
	assert.Equal(t, "org1", res.Report.Warnings[0].Target)
	assert.Equal(t, []string{"org2"}, res.Anchored)
	assert.Empty(t, res.Report.Failures)
}

func TestBootstrapAlreadyJoined(t *testing.T) {
	r := (&mocks.Runner{}).Fail(1, "Error: proposal failed (err: cannot create ledger from genesis block: LedgerID already exists)", "channel join")
	o := newOrchestrator(r)

	res, err := o.Bootstrap(context.Background(), "mychannel")
	require.NoError(t, err)
	assert.Len(t, res.Joined, 4)
	assert.Empty(t, res.Report.Failures)
}

func TestBootstrapUnknownChannel(t *testing.T) {
	r := &mocks.Runner{}
	_, err := newOrchestrator(r).Bootstrap(context.Background(), "other")
	assert.ErrorIs(t, err, api.ErrInvalidTopology)
	assert.Empty(t, r.Calls())
}

func TestJoinsRunAsOrgAdmin(t *testing.T) {
	r := &mocks.Runner{}
	_, err := newOrchestrator(r).Bootstrap(context.Background(), "mychannel")
	require.NoError(t, err)

	for _, c := range r.CallsMatching("channel join", "peer1.org2.example.com:10051") {
		line := mocks.CommandLine(c)
		assert.Contains(t, line, "CORE_PEER_LOCALMSPID=Org2MSP")
		assert.True(t, strings.Contains(line, "users/Admin@org2.example.com/msp"))
	}
}

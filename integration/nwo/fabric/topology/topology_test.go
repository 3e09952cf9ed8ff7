/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestMSPID(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{"org1", "Org1MSP"},
		{"Org2", "Org2MSP"},
		{"ORG3", "Org3MSP"},
		{"my-org", "My-OrgMSP"},
		{"org1a", "Org1AMSP"},
		{"", "MSP"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MSPID(tc.name))
		})
	}
}

func TestDefault(t *testing.T) {
	top := NewDefault()
	require.NoError(t, top.Validate())

	assert.Equal(t, "byfn-sys-channel", top.SystemChannel())
	assert.Equal(t, "orderer.example.com:7050", top.Orderer.Address())

	var addresses []string
	for _, p := range top.Peers() {
		addresses = append(addresses, p.Address())
	}
	assert.Equal(t, []string{
		"peer0.org1.example.com:7051",
		"peer1.org1.example.com:8051",
		"peer0.org2.example.com:9051",
		"peer1.org2.example.com:10051",
	}, addresses)

	org1 := top.Organization("org1")
	require.NotNil(t, org1)
	assert.Equal(t, "Org1MSP", org1.MSPID)
	assert.Equal(t, "Admin@org1.example.com", org1.AdminUser())
	assert.Equal(t, []*Peer{org1.Peers[0]}, org1.AnchorPeers())

	cc := top.Chaincode("ex02")
	require.NotNil(t, cc)
	assert.Len(t, top.ChaincodeTargets(cc), 4)
	assert.Equal(t, "dev-peer0.org1.example.com-ex02-v1.0", cc.ContainerPrefix(org1.Peers[0]))
	assert.Equal(t, "peer1.org2", top.Peer("peer1.org2").ID())
}

func TestChaincodeTargets(t *testing.T) {
	top := NewDefault()
	cc := top.Chaincode("ex02")
	cc.Peers = []string{"peer1.org2", "peer0.org1"}
	require.NoError(t, top.Validate())

	targets := top.ChaincodeTargets(cc)
	require.Len(t, targets, 2)
	assert.Equal(t, "peer1.org2.example.com", targets[0].Host())
	assert.Equal(t, "peer0.org1.example.com", targets[1].Host())
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(t *Topology)
		problem string
	}{
		{
			name:    "duplicate msp id",
			mutate:  func(t *Topology) { t.Organizations[1].MSPID = "Org1MSP" },
			problem: "share msp id [Org1MSP]",
		},
		{
			name:    "msp id not derived from name",
			mutate:  func(t *Topology) { t.Organizations[0].MSPID = "AcmeMSP" },
			problem: "organization [org1] must use msp id [Org1MSP], got [AcmeMSP]",
		},
		{
			name:    "org shares the orderer msp id",
			mutate:  func(t *Topology) { t.Orderer.MSPID = "Org2MSP" },
			problem: "organization [org2] uses the orderer msp id [Org2MSP]",
		},
		{
			name:    "unknown consortium",
			mutate:  func(t *Topology) { t.Channels[0].Consortium = "OtherConsortium" },
			problem: "channel [mychannel] references unknown consortium [OtherConsortium]",
		},
		{
			name: "shared profile with different members",
			mutate: func(t *Topology) {
				t.AddOrganization("org3").AddPeer("peer0", 11051)
				t.AddChannel("other", "org2", "org3").Profile = DefaultChannelProf
				t.Normalize()
			},
			problem: "channels [mychannel] and [other] share profile [TwoOrgsChannel] with different members",
		},
		{
			name:    "duplicate port",
			mutate:  func(t *Topology) { t.Organizations[1].Peers[0].Port = 7051 },
			problem: "port 7051 used by both",
		},
		{
			name:    "port used by the orderer",
			mutate:  func(t *Topology) { t.Organizations[0].Peers[1].Port = 7050 },
			problem: "port 7050 used by both [orderer.example.com]",
		},
		{
			name:    "duplicate peer",
			mutate:  func(t *Topology) { t.Organizations[0].Peers[1].Name = "peer0" },
			problem: "duplicate peer [peer0.org1]",
		},
		{
			name:    "single org channel",
			mutate:  func(t *Topology) { t.Channels[0].Organizations = []string{"org1"} },
			problem: "needs at least two organizations",
		},
		{
			name:    "unknown org in channel",
			mutate:  func(t *Topology) { t.Channels[0].Organizations = append(t.Channels[0].Organizations, "org9") },
			problem: "unknown organization [org9]",
		},
		{
			name:    "unknown chaincode channel",
			mutate:  func(t *Topology) { t.Chaincodes[0].Channel = "other" },
			problem: "unknown channel [other]",
		},
		{
			name:    "unknown chaincode peer",
			mutate:  func(t *Topology) { t.Chaincodes[0].Peers = []string{"peer7.org1"} },
			problem: "unknown peer [peer7.org1]",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			top := NewDefault()
			tc.mutate(top)
			err := top.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrInvalidTopology)
			assert.Contains(t, err.Error(), tc.problem)
		})
	}
}

type cryptoConfig struct {
	OrdererOrgs []cryptoOrg `yaml:"OrdererOrgs"`
	PeerOrgs    []cryptoOrg `yaml:"PeerOrgs"`
}

type cryptoOrg struct {
	Name          string `yaml:"Name"`
	Domain        string `yaml:"Domain"`
	EnableNodeOUs bool   `yaml:"EnableNodeOUs"`
	Specs         []struct {
		Hostname string   `yaml:"Hostname"`
		SANS     []string `yaml:"SANS"`
	} `yaml:"Specs"`
	Users struct {
		Count int `yaml:"Count"`
	} `yaml:"Users"`
}

func TestGenerateCryptoConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDefault().GenerateCryptoConfig(&buf))

	var cfg cryptoConfig
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))

	require.Len(t, cfg.OrdererOrgs, 1)
	assert.Equal(t, "example.com", cfg.OrdererOrgs[0].Domain)
	assert.Equal(t, "orderer", cfg.OrdererOrgs[0].Specs[0].Hostname)

	require.Len(t, cfg.PeerOrgs, 2)
	var summary []string
	for _, o := range cfg.PeerOrgs {
		for _, s := range o.Specs {
			summary = append(summary, s.Hostname+"."+o.Domain)
		}
		assert.Equal(t, 1, o.Users.Count)
	}
	want := []string{"peer0.org1.example.com", "peer1.org1.example.com", "peer0.org2.example.com", "peer1.org2.example.com"}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("unexpected peers (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Org1", cfg.PeerOrgs[0].Name)
}

func TestGenerateConfigTx(t *testing.T) {
	top := NewDefault()
	var buf bytes.Buffer
	require.NoError(t, top.GenerateConfigTx(&buf))

	var got ConfigTx
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(top.ConfigTx(), &got); diff != "" {
		t.Errorf("configtx does not round trip (-want +got):\n%s", diff)
	}

	genesis := got.Profiles["TwoOrgsOrdererGenesis"]
	require.NotNil(t, genesis)
	assert.Equal(t, "solo", genesis.Orderer.OrdererType)
	assert.Equal(t, []string{"orderer.example.com:7050"}, genesis.Orderer.Addresses)
	assert.Equal(t, BatchSize{MaxMessageCount: 10, AbsoluteMaxBytes: 10 * 1024 * 1024, PreferredMaxBytes: 512 * 1024}, genesis.Orderer.BatchSize)
	assert.Equal(t, "crypto-config/ordererOrganizations/example.com/msp", genesis.Orderer.Organizations[0].MSPDir)
	require.Contains(t, genesis.Consortiums, "SampleConsortium")
	assert.Len(t, genesis.Consortiums["SampleConsortium"].Organizations, 2)

	channel := got.Profiles["TwoOrgsChannel"]
	require.NotNil(t, channel)
	assert.Equal(t, "SampleConsortium", channel.Consortium)
	orgs := channel.Application.Organizations
	require.Len(t, orgs, 2)
	assert.Equal(t, "Org1MSP", orgs[0].ID)
	assert.Equal(t, "crypto-config/peerOrganizations/org1.example.com/msp", orgs[0].MSPDir)
	assert.Equal(t, []*AnchorPeer{{Host: "peer0.org2.example.com", Port: 9051}}, orgs[1].AnchorPeers)
	assert.Equal(t, "OR('Org2MSP.admin')", orgs[1].Policies["Admins"].Rule)
}

func TestConfigTxProfilePerChannel(t *testing.T) {
	top := NewDefault()
	top.AddOrganization("org3").AddPeer("peer0", 11051)
	top.AddChannel("ch2", "org2", "org3")
	top.Normalize()
	require.NoError(t, top.Validate())

	ch2 := top.Channel("ch2")
	assert.Equal(t, "TwoOrgsChannel", top.Channel("mychannel").Profile)
	assert.Equal(t, "Ch2Channel", ch2.Profile)

	profiles := top.ConfigTx().Profiles
	require.Contains(t, profiles, ch2.Profile)
	var ids []string
	for _, o := range profiles[ch2.Profile].Application.Organizations {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"Org2MSP", "Org3MSP"}, ids)
	assert.Len(t, profiles[DefaultGenesis].Consortiums[DefaultConsortium].Organizations, 3)
}

func TestChannelsMayShareProfileWithSameMembers(t *testing.T) {
	top := NewDefault()
	top.AddChannel("twin", "org2", "org1").Profile = DefaultChannelProf
	top.Normalize()
	assert.NoError(t, top.Validate())
}

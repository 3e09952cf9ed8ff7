/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"strings"
)

const (
	DefaultDomain        = "example.com"
	DefaultConsortium    = "SampleConsortium"
	DefaultGenesis       = "TwoOrgsOrdererGenesis"
	DefaultChannelProf   = "TwoOrgsChannel"
	DefaultCLI           = "cli"
	DefaultCryptoBase    = "/opt/gopath/src/github.com/hyperledger/fabric/peer/crypto"
	DefaultArtifactsBase = "./channel-artifacts"
)

// Topology holds the basic information needed to generate fabric configuration
// files and to drive the peer CLI against a running network.
type Topology struct {
	TopologyName string `mapstructure:"name" yaml:"name,omitempty"`
	Domain       string `mapstructure:"domain" yaml:"domain,omitempty"`
	// Consortium names the system channel as <consortium>-sys-channel
	Consortium        string          `mapstructure:"consortium" yaml:"consortium,omitempty"`
	ChannelConsortium string          `mapstructure:"channel_consortium" yaml:"channel_consortium,omitempty"`
	GenesisProfile    string          `mapstructure:"genesis_profile" yaml:"genesis_profile,omitempty"`
	Orderer           *Orderer        `mapstructure:"orderer" yaml:"orderer,omitempty"`
	Organizations     []*Organization `mapstructure:"organizations" yaml:"organizations,omitempty"`
	Channels          []*Channel      `mapstructure:"channels" yaml:"channels,omitempty"`
	Chaincodes        []*Chaincode    `mapstructure:"chaincodes" yaml:"chaincodes,omitempty"`

	// CLI is the name of the container hosting the peer binary
	CLI string `mapstructure:"cli" yaml:"cli,omitempty"`
	// CryptoBase is where crypto-config is mounted inside the CLI container
	CryptoBase string `mapstructure:"crypto_base" yaml:"crypto_base,omitempty"`
	// ArtifactsBase is where channel-artifacts is mounted, relative to the CLI working dir
	ArtifactsBase string `mapstructure:"artifacts_base" yaml:"artifacts_base,omitempty"`
}

// NewDefault returns the two organization network: org1 and org2 with two peers each,
// one channel and the example02 chaincode.
func NewDefault() *Topology {
	t := &Topology{TopologyName: "byfn", Consortium: "byfn"}
	t.AddOrganization("org1").AddPeer("peer0", 7051).AddPeer("peer1", 8051)
	t.AddOrganization("org2").AddPeer("peer0", 9051).AddPeer("peer1", 10051)
	t.AddChannel("mychannel", "org1", "org2")
	t.AddChaincode(&Chaincode{
		Name:       "ex02",
		Version:    "v1.0",
		Path:       "github.com/chaincode/ex02",
		Lang:       "golang",
		Policy:     "OR ('Org1MSP.peer','Org2MSP.peer')",
		Channel:    "mychannel",
		InitArgs:   []string{"init", "a", "100", "b", "200"},
		QueryArgs:  []string{"query", "a"},
		InvokeArgs: []string{"invoke", "a", "b", "10"},
	})
	t.Normalize()
	return t
}

func (t *Topology) Name() string {
	return t.TopologyName
}

// SystemChannel returns the name of the orderer system channel.
func (t *Topology) SystemChannel() string {
	return t.Consortium + "-sys-channel"
}

type orgBuilder struct {
	o *Organization
}

func (ob *orgBuilder) AddPeer(name string, port uint16) *orgBuilder {
	ob.o.Peers = append(ob.o.Peers, &Peer{Name: name, Port: port, Organization: ob.o.Name})
	return ob
}

func (t *Topology) AddOrganization(name string) *orgBuilder {
	o := &Organization{Name: name}
	t.Organizations = append(t.Organizations, o)
	return &orgBuilder{o: o}
}

func (t *Topology) AddChannel(name string, orgs ...string) *Channel {
	c := &Channel{Name: name, Organizations: orgs}
	t.Channels = append(t.Channels, c)
	return c
}

// AddChaincode adds cc, replacing a chaincode with the same name.
func (t *Topology) AddChaincode(cc *Chaincode) {
	for i, chaincode := range t.Chaincodes {
		if chaincode.Name == cc.Name {
			t.Chaincodes[i] = cc
			return
		}
	}
	t.Chaincodes = append(t.Chaincodes, cc)
}

// channelProfile names the configtx profile of the i-th channel: the first
// channel keeps the BYFN profile name, later ones get their own.
func channelProfile(i int, channel string) string {
	if i == 0 {
		return DefaultChannelProf
	}
	return titleCase(channel) + "Channel"
}

// Normalize fills every unset field with its default and links peers to their organization.
func (t *Topology) Normalize() *Topology {
	if t.Domain == "" {
		t.Domain = DefaultDomain
	}
	if t.TopologyName == "" {
		t.TopologyName = "fabnet"
	}
	if t.Consortium == "" {
		t.Consortium = "byfn"
	}
	if t.ChannelConsortium == "" {
		t.ChannelConsortium = DefaultConsortium
	}
	if t.GenesisProfile == "" {
		t.GenesisProfile = DefaultGenesis
	}
	if t.CLI == "" {
		t.CLI = DefaultCLI
	}
	if t.CryptoBase == "" {
		t.CryptoBase = DefaultCryptoBase
	}
	if t.ArtifactsBase == "" {
		t.ArtifactsBase = DefaultArtifactsBase
	}

	if t.Orderer == nil {
		t.Orderer = &Orderer{}
	}
	o := t.Orderer
	if o.Name == "" {
		o.Name = "orderer"
	}
	if o.Domain == "" {
		o.Domain = t.Domain
	}
	if o.Port == 0 {
		o.Port = 7050
	}
	if o.MSPID == "" {
		o.MSPID = "OrdererMSP"
	}
	if o.BatchTimeout == "" {
		o.BatchTimeout = "2s"
	}
	if o.MaxMessageCount == 0 {
		o.MaxMessageCount = 10
	}
	if o.AbsoluteMaxBytes == 0 {
		o.AbsoluteMaxBytes = 10 * 1024 * 1024
	}
	if o.PreferredMaxBytes == 0 {
		o.PreferredMaxBytes = 512 * 1024
	}

	for _, org := range t.Organizations {
		if org.MSPID == "" {
			org.MSPID = MSPID(org.Name)
		}
		if org.Domain == "" {
			org.Domain = strings.ToLower(org.Name) + "." + t.Domain
		}
		if org.Users == 0 {
			org.Users = 1
		}
		for _, p := range org.Peers {
			p.Organization = org.Name
			p.Domain = org.Domain
		}
	}

	for i, c := range t.Channels {
		if c.Profile == "" {
			c.Profile = channelProfile(i, c.Name)
		}
		if c.Consortium == "" {
			c.Consortium = t.ChannelConsortium
		}
	}

	for _, cc := range t.Chaincodes {
		if cc.Lang == "" {
			cc.Lang = "golang"
		}
		if cc.Path == "" {
			cc.Path = "github.com/chaincode/" + cc.Name
		}
		if cc.Channel == "" && len(t.Channels) > 0 {
			cc.Channel = t.Channels[0].Name
		}
	}
	return t
}

func (t *Topology) Organization(name string) *Organization {
	for _, o := range t.Organizations {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (t *Topology) Channel(name string) *Channel {
	for _, c := range t.Channels {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Topology) Chaincode(name string) *Chaincode {
	for _, cc := range t.Chaincodes {
		if cc.Name == name {
			return cc
		}
	}
	return nil
}

// Peers returns every peer in organization then declaration order.
func (t *Topology) Peers() []*Peer {
	var peers []*Peer
	for _, o := range t.Organizations {
		peers = append(peers, o.Peers...)
	}
	return peers
}

// Peer looks a peer up by its <peer>.<org> identifier.
func (t *Topology) Peer(id string) *Peer {
	for _, p := range t.Peers() {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// ChannelOrganizations returns the organizations of the channel in channel declaration order.
func (t *Topology) ChannelOrganizations(c *Channel) []*Organization {
	var orgs []*Organization
	for _, name := range c.Organizations {
		if o := t.Organization(name); o != nil {
			orgs = append(orgs, o)
		}
	}
	return orgs
}

// ChannelPeers returns the peers of every organization of the channel.
func (t *Topology) ChannelPeers(c *Channel) []*Peer {
	var peers []*Peer
	for _, o := range t.ChannelOrganizations(c) {
		peers = append(peers, o.Peers...)
	}
	return peers
}

// ChaincodeTargets resolves the install targets of cc.
func (t *Topology) ChaincodeTargets(cc *Chaincode) []*Peer {
	if len(cc.Peers) == 0 {
		if c := t.Channel(cc.Channel); c != nil {
			return t.ChannelPeers(c)
		}
		return nil
	}
	var peers []*Peer
	for _, id := range cc.Peers {
		if p := t.Peer(id); p != nil {
			peers = append(peers, p)
		}
	}
	return peers
}

/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"fmt"
	"strings"
	"unicode"
)

// Orderer is the single solo orderer of the network.
type Orderer struct {
	Name   string `mapstructure:"name" yaml:"name,omitempty"`
	Domain string `mapstructure:"domain" yaml:"domain,omitempty"`
	Port   uint16 `mapstructure:"port" yaml:"port,omitempty"`
	// MSPID of the orderer organization
	MSPID             string `mapstructure:"msp_id" yaml:"msp_id,omitempty"`
	BatchTimeout      string `mapstructure:"batch_timeout" yaml:"batch_timeout,omitempty"`
	MaxMessageCount   uint32 `mapstructure:"max_message_count" yaml:"max_message_count,omitempty"`
	AbsoluteMaxBytes  uint32 `mapstructure:"absolute_max_bytes" yaml:"absolute_max_bytes,omitempty"`
	PreferredMaxBytes uint32 `mapstructure:"preferred_max_bytes" yaml:"preferred_max_bytes,omitempty"`
}

// Host returns the orderer hostname, e.g. orderer.example.com
func (o *Orderer) Host() string {
	return o.Name + "." + o.Domain
}

func (o *Orderer) Address() string {
	return fmt.Sprintf("%s:%d", o.Host(), o.Port)
}

// Organization models a peer organization. It includes the information needed
// to populate an MSP with cryptogen.
type Organization struct {
	Name   string  `mapstructure:"name" yaml:"name,omitempty"`
	MSPID  string  `mapstructure:"msp_id" yaml:"msp_id,omitempty"`
	Domain string  `mapstructure:"domain" yaml:"domain,omitempty"`
	Users  int     `mapstructure:"users" yaml:"users,omitempty"`
	Peers  []*Peer `mapstructure:"peers" yaml:"peers,omitempty"`
}

// AnchorPeers returns the peers flagged as anchors, or the first peer when none is.
func (o *Organization) AnchorPeers() []*Peer {
	var anchors []*Peer
	for _, p := range o.Peers {
		if p.Anchor {
			anchors = append(anchors, p)
		}
	}
	if len(anchors) == 0 && len(o.Peers) > 0 {
		anchors = append(anchors, o.Peers[0])
	}
	return anchors
}

// AdminUser returns the name of the admin identity generated by cryptogen.
func (o *Organization) AdminUser() string {
	return "Admin@" + o.Domain
}

// Peer defines a peer instance and its owning organization.
type Peer struct {
	Name   string `mapstructure:"name" yaml:"name,omitempty"`
	Port   uint16 `mapstructure:"port" yaml:"port,omitempty"`
	Anchor bool   `mapstructure:"anchor" yaml:"anchor,omitempty"`

	// set by Normalize
	Organization string `mapstructure:"-" yaml:"-"`
	Domain       string `mapstructure:"-" yaml:"-"`
}

// ID provides a unique identifier for a peer instance.
func (p *Peer) ID() string {
	return fmt.Sprintf("%s.%s", p.Name, p.Organization)
}

// Host returns the peer hostname, e.g. peer0.org1.example.com
func (p *Peer) Host() string {
	return p.Name + "." + p.Domain
}

func (p *Peer) Address() string {
	return fmt.Sprintf("%s:%d", p.Host(), p.Port)
}

// Channel is an application channel.
type Channel struct {
	Name          string   `mapstructure:"name" yaml:"name,omitempty"`
	Profile       string   `mapstructure:"profile" yaml:"profile,omitempty"`
	Consortium    string   `mapstructure:"consortium" yaml:"consortium,omitempty"`
	Organizations []string `mapstructure:"organizations" yaml:"organizations,omitempty"`
}

// Chaincode is a legacy (install and instantiate) chaincode deployed on a channel.
type Chaincode struct {
	Name     string   `mapstructure:"name" yaml:"name,omitempty"`
	Version  string   `mapstructure:"version" yaml:"version,omitempty"`
	Path     string   `mapstructure:"path" yaml:"path,omitempty"`
	Lang     string   `mapstructure:"lang" yaml:"lang,omitempty"`
	Policy   string   `mapstructure:"policy" yaml:"policy,omitempty"`
	Channel  string   `mapstructure:"channel" yaml:"channel,omitempty"`
	InitArgs []string `mapstructure:"init_args" yaml:"init_args,omitempty"`
	// Peers lists the install targets as <peer>.<org>; empty means every peer of the channel
	Peers []string `mapstructure:"peers" yaml:"peers,omitempty"`

	QueryArgs  []string `mapstructure:"query_args" yaml:"query_args,omitempty"`
	InvokeArgs []string `mapstructure:"invoke_args" yaml:"invoke_args,omitempty"`
}

// ContainerPrefix returns the prefix of the name docker gives to the chaincode
// container spawned by the given peer.
func (c *Chaincode) ContainerPrefix(p *Peer) string {
	return fmt.Sprintf("dev-%s-%s-%s", p.Host(), c.Name, c.Version)
}

// MSPID derives the MSP identifier of an organization from its name,
// title-casing every run of letters: org1 becomes Org1MSP.
func MSPID(orgName string) string {
	return titleCase(orgName) + "MSP"
}

func titleCase(name string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			sb.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return sb.String()
}

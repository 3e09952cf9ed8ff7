/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"fmt"
	"io"
	"path"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// The types below mirror the configtxgen input schema. Only what the solo
// orderer and the legacy application channel need is modelled.

type ConfigTx struct {
	Organizations []*ConfigTxOrganization `yaml:"Organizations,omitempty"`
	Profiles      map[string]*Profile     `yaml:"Profiles"`
}

type Profile struct {
	Consortium   string                 `yaml:"Consortium,omitempty"`
	Application  *Application           `yaml:"Application,omitempty"`
	Orderer      *OrdererConfig         `yaml:"Orderer,omitempty"`
	Consortiums  map[string]*Consortium `yaml:"Consortiums,omitempty"`
	Capabilities map[string]bool        `yaml:"Capabilities,omitempty"`
	Policies     map[string]*Policy     `yaml:"Policies,omitempty"`
}

type Policy struct {
	Type string `yaml:"Type"`
	Rule string `yaml:"Rule"`
}

type Consortium struct {
	Organizations []*ConfigTxOrganization `yaml:"Organizations"`
}

type Application struct {
	Organizations []*ConfigTxOrganization `yaml:"Organizations"`
	Capabilities  map[string]bool         `yaml:"Capabilities,omitempty"`
	Policies      map[string]*Policy      `yaml:"Policies,omitempty"`
}

type ConfigTxOrganization struct {
	Name        string             `yaml:"Name"`
	ID          string             `yaml:"ID"`
	MSPDir      string             `yaml:"MSPDir"`
	Policies    map[string]*Policy `yaml:"Policies,omitempty"`
	AnchorPeers []*AnchorPeer      `yaml:"AnchorPeers,omitempty"`
}

type AnchorPeer struct {
	Host string `yaml:"Host"`
	Port uint16 `yaml:"Port"`
}

type OrdererConfig struct {
	OrdererType   string                  `yaml:"OrdererType"`
	Addresses     []string                `yaml:"Addresses"`
	BatchTimeout  string                  `yaml:"BatchTimeout"`
	BatchSize     BatchSize               `yaml:"BatchSize"`
	Organizations []*ConfigTxOrganization `yaml:"Organizations"`
	Capabilities  map[string]bool         `yaml:"Capabilities,omitempty"`
	Policies      map[string]*Policy      `yaml:"Policies,omitempty"`
}

type BatchSize struct {
	MaxMessageCount   uint32 `yaml:"MaxMessageCount"`
	AbsoluteMaxBytes  uint32 `yaml:"AbsoluteMaxBytes"`
	PreferredMaxBytes uint32 `yaml:"PreferredMaxBytes"`
}

func implicitMetaPolicies() map[string]*Policy {
	return map[string]*Policy{
		"Readers": {Type: "ImplicitMeta", Rule: "ANY Readers"},
		"Writers": {Type: "ImplicitMeta", Rule: "ANY Writers"},
		"Admins":  {Type: "ImplicitMeta", Rule: "MAJORITY Admins"},
	}
}

func channelCapabilities() map[string]bool {
	return map[string]bool{"V1_4_3": true, "V1_3": false, "V1_1": false}
}

func (t *Topology) configTxOrganization(o *Organization) *ConfigTxOrganization {
	mspID := o.MSPID
	org := &ConfigTxOrganization{
		Name:   mspID,
		ID:     mspID,
		MSPDir: path.Join("crypto-config", "peerOrganizations", o.Domain, "msp"),
		Policies: map[string]*Policy{
			"Readers": {Type: "Signature", Rule: fmt.Sprintf("OR('%s.admin', '%s.peer', '%s.client')", mspID, mspID, mspID)},
			"Writers": {Type: "Signature", Rule: fmt.Sprintf("OR('%s.admin', '%s.client')", mspID, mspID)},
			"Admins":  {Type: "Signature", Rule: fmt.Sprintf("OR('%s.admin')", mspID)},
		},
	}
	for _, p := range o.AnchorPeers() {
		org.AnchorPeers = append(org.AnchorPeers, &AnchorPeer{Host: p.Host(), Port: p.Port})
	}
	return org
}

func (t *Topology) ordererOrganization() *ConfigTxOrganization {
	mspID := t.Orderer.MSPID
	return &ConfigTxOrganization{
		Name:   "OrdererOrg",
		ID:     mspID,
		MSPDir: path.Join("crypto-config", "ordererOrganizations", t.Orderer.Domain, "msp"),
		Policies: map[string]*Policy{
			"Readers": {Type: "Signature", Rule: fmt.Sprintf("OR('%s.member')", mspID)},
			"Writers": {Type: "Signature", Rule: fmt.Sprintf("OR('%s.member')", mspID)},
			"Admins":  {Type: "Signature", Rule: fmt.Sprintf("OR('%s.admin')", mspID)},
		},
	}
}

// ConfigTx builds the configtxgen input: one genesis profile for the system
// channel holding every organization in the consortium, and one profile per
// distinct channel profile holding the organizations of that channel.
func (t *Topology) ConfigTx() *ConfigTx {
	orgs := map[string]*ConfigTxOrganization{}
	var all []*ConfigTxOrganization
	for _, o := range t.Organizations {
		orgs[o.Name] = t.configTxOrganization(o)
		all = append(all, orgs[o.Name])
	}
	ordererOrg := t.ordererOrganization()

	ordererPolicies := implicitMetaPolicies()
	ordererPolicies["BlockValidation"] = &Policy{Type: "ImplicitMeta", Rule: "ANY Writers"}

	ctx := &ConfigTx{
		Organizations: append([]*ConfigTxOrganization{ordererOrg}, all...),
		Profiles: map[string]*Profile{
			t.GenesisProfile: {
				Policies:     implicitMetaPolicies(),
				Capabilities: channelCapabilities(),
				Orderer: &OrdererConfig{
					OrdererType:  "solo",
					Addresses:    []string{t.Orderer.Address()},
					BatchTimeout: t.Orderer.BatchTimeout,
					BatchSize: BatchSize{
						MaxMessageCount:   t.Orderer.MaxMessageCount,
						AbsoluteMaxBytes:  t.Orderer.AbsoluteMaxBytes,
						PreferredMaxBytes: t.Orderer.PreferredMaxBytes,
					},
					Organizations: []*ConfigTxOrganization{ordererOrg},
					Policies:      ordererPolicies,
					Capabilities:  map[string]bool{"V1_4_2": true, "V1_1": false},
				},
				Consortiums: map[string]*Consortium{
					t.ChannelConsortium: {Organizations: all},
				},
			},
		},
	}

	for _, c := range t.Channels {
		if _, ok := ctx.Profiles[c.Profile]; ok {
			continue
		}
		var members []*ConfigTxOrganization
		for _, name := range c.Organizations {
			if o, ok := orgs[name]; ok {
				members = append(members, o)
			}
		}
		ctx.Profiles[c.Profile] = &Profile{
			Consortium:   c.Consortium,
			Policies:     implicitMetaPolicies(),
			Capabilities: channelCapabilities(),
			Application: &Application{
				Organizations: members,
				Policies:      implicitMetaPolicies(),
				Capabilities:  map[string]bool{"V1_4_2": true, "V1_3": false, "V1_2": false, "V1_1": false},
			},
		}
	}
	return ctx
}

// GenerateConfigTx renders the configtxgen input for the topology.
func (t *Topology) GenerateConfigTx(w io.Writer) error {
	raw, err := yaml.Marshal(t.ConfigTx())
	if err != nil {
		return errors.Wrapf(err, "failed marshalling configtx")
	}
	if _, err := w.Write(raw); err != nil {
		return errors.Wrapf(err, "failed writing configtx")
	}
	return nil
}

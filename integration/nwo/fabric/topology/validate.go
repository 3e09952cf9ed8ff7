/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/pkg/errors"
)

// Validate checks the invariants of a normalized topology. Every violation is
// reported, wrapped in a single ErrInvalidTopology.
func (t *Topology) Validate() error {
	var problems []error
	fail := func(format string, args ...interface{}) {
		problems = append(problems, errors.Errorf(format, args...))
	}

	if len(t.Organizations) == 0 {
		fail("no organizations")
	}

	ports := map[uint16]string{}
	if t.Orderer != nil {
		ports[t.Orderer.Port] = t.Orderer.Host()
	}
	mspIDs := map[string]string{}
	names := map[string]bool{}
	for _, o := range t.Organizations {
		if o.Name == "" {
			fail("organization without name")
			continue
		}
		if names[o.Name] {
			fail("duplicate organization [%s]", o.Name)
		}
		names[o.Name] = true
		if want := MSPID(o.Name); o.MSPID != want {
			fail("organization [%s] must use msp id [%s], got [%s]", o.Name, want, o.MSPID)
		}
		if t.Orderer != nil && o.MSPID == t.Orderer.MSPID {
			fail("organization [%s] uses the orderer msp id [%s]", o.Name, o.MSPID)
		}
		if other, ok := mspIDs[o.MSPID]; ok {
			fail("organizations [%s] and [%s] share msp id [%s]", other, o.Name, o.MSPID)
		}
		mspIDs[o.MSPID] = o.Name
		if len(o.Peers) == 0 {
			fail("organization [%s] has no peers", o.Name)
		}

		peerNames := map[string]bool{}
		for _, p := range o.Peers {
			if p.Name == "" {
				fail("organization [%s] has a peer without name", o.Name)
				continue
			}
			if peerNames[p.Name] {
				fail("duplicate peer [%s]", p.ID())
			}
			peerNames[p.Name] = true
			if p.Port == 0 {
				fail("peer [%s] has no port", p.ID())
				continue
			}
			if other, ok := ports[p.Port]; ok {
				fail("port %d used by both [%s] and [%s]", p.Port, other, p.Host())
			}
			ports[p.Port] = p.Host()
		}
	}

	channels := map[string]bool{}
	profiles := map[string]*Channel{}
	for _, c := range t.Channels {
		if channels[c.Name] {
			fail("duplicate channel [%s]", c.Name)
		}
		channels[c.Name] = true
		if c.Consortium != t.ChannelConsortium {
			fail("channel [%s] references unknown consortium [%s]", c.Name, c.Consortium)
		}
		if other, ok := profiles[c.Profile]; ok {
			if !sameSet(other.Organizations, c.Organizations) || other.Consortium != c.Consortium {
				fail("channels [%s] and [%s] share profile [%s] with different members", other.Name, c.Name, c.Profile)
			}
		} else {
			profiles[c.Profile] = c
		}
		if len(c.Organizations) < 2 {
			fail("channel [%s] needs at least two organizations, has %d", c.Name, len(c.Organizations))
		}
		for _, name := range c.Organizations {
			if t.Organization(name) == nil {
				fail("channel [%s] references unknown organization [%s]", c.Name, name)
			}
		}
	}

	for _, cc := range t.Chaincodes {
		if cc.Name == "" || cc.Version == "" {
			fail("chaincode needs name and version, got [%s:%s]", cc.Name, cc.Version)
		}
		c := t.Channel(cc.Channel)
		if c == nil {
			fail("chaincode [%s] references unknown channel [%s]", cc.Name, cc.Channel)
			continue
		}
		for _, id := range cc.Peers {
			p := t.Peer(id)
			if p == nil {
				fail("chaincode [%s] references unknown peer [%s]", cc.Name, id)
				continue
			}
			if !contains(c.Organizations, p.Organization) {
				fail("chaincode [%s] targets peer [%s] outside channel [%s]", cc.Name, id, c.Name)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return api.NewError(api.ErrInvalidTopology, t.TopologyName, joinProblems(problems))
}

func joinProblems(problems []error) error {
	msg := problems[0].Error()
	for _, p := range problems[1:] {
		msg += "; " + p.Error()
	}
	return errors.New(msg)
}

func sameSet(a, b []string) bool {
	for _, s := range a {
		if !contains(b, s) {
			return false
		}
	}
	for _, s := range b {
		if !contains(a, s) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

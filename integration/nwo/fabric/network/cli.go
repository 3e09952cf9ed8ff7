/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"context"
	"path"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/commands"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
)

const DefaultPeerCommandTimeout = 2 * time.Minute

// CLI runs peer commands inside the CLI container, impersonating the admin of
// the target peer's organization.
type CLI struct {
	Topology *topology.Topology
	Runner   api.CommandRunner
	Timeout  time.Duration
}

func NewCLI(t *topology.Topology, runner api.CommandRunner) *CLI {
	return &CLI{Topology: t, Runner: runner, Timeout: DefaultPeerCommandTimeout}
}

// PeerCryptoDir returns the in-container crypto material directory of the peer.
func (c *CLI) PeerCryptoDir(p *topology.Peer) string {
	return path.Join(c.Topology.CryptoBase, "peerOrganizations", p.Domain, "peers", p.Host())
}

// PeerAdminMSPDir returns the in-container MSP directory of the admin of the peer's organization.
func (c *CLI) PeerAdminMSPDir(p *topology.Peer) string {
	return path.Join(c.Topology.CryptoBase, "peerOrganizations", p.Domain, "users", "Admin@"+p.Domain, "msp")
}

// PeerTLSRootCert returns the in-container TLS CA certificate of the peer.
func (c *CLI) PeerTLSRootCert(p *topology.Peer) string {
	return path.Join(c.PeerCryptoDir(p), "tls", "ca.crt")
}

// OrdererCAFile returns the in-container TLS CA certificate of the orderer.
func (c *CLI) OrdererCAFile() string {
	o := c.Topology.Orderer
	return path.Join(
		c.Topology.CryptoBase, "ordererOrganizations", o.Domain,
		"orderers", o.Host(), "msp", "tlscacerts", "tlsca."+o.Domain+"-cert.pem",
	)
}

func (c *CLI) OrdererTLS() commands.OrdererTLS {
	return commands.OrdererTLS{CAFile: c.OrdererCAFile()}
}

func (c *CLI) OrdererAddress() string {
	return c.Topology.Orderer.Address()
}

// ArtifactPath returns the path of a channel artifact as seen from the CLI working directory.
func (c *CLI) ArtifactPath(name string) string {
	return c.Topology.ArtifactsBase + "/" + name
}

func (c *CLI) peerEnv(p *topology.Peer) map[string]string {
	mspID := topology.MSPID(p.Organization)
	if o := c.Topology.Organization(p.Organization); o != nil {
		mspID = o.MSPID
	}
	cryptoDir := c.PeerCryptoDir(p)
	return map[string]string{
		"CORE_PEER_ID":                "cli",
		"CORE_PEER_ADDRESS":           p.Address(),
		"CORE_PEER_LOCALMSPID":        mspID,
		"CORE_PEER_TLS_ENABLED":       "true",
		"CORE_PEER_TLS_CERT_FILE":     path.Join(cryptoDir, "tls", "server.crt"),
		"CORE_PEER_TLS_KEY_FILE":      path.Join(cryptoDir, "tls", "server.key"),
		"CORE_PEER_TLS_ROOTCERT_FILE": path.Join(cryptoDir, "tls", "ca.crt"),
		"CORE_PEER_MSPCONFIGPATH":     c.PeerAdminMSPDir(p),
	}
}

// PeerAdminSession runs the peer command against p as the organization admin.
func (c *CLI) PeerAdminSession(ctx context.Context, p *topology.Peer, command api.Command) (*api.Result, error) {
	exec := commands.DockerExec{
		Container: c.Topology.CLI,
		Binary:    "peer",
		Env:       c.peerEnv(p),
		Command:   command,
	}
	spec := common.NewSpec("docker", exec, c.Timeout)
	spec.Name = p.ID() + "-" + command.SessionName()
	return c.Runner.Run(ctx, spec)
}

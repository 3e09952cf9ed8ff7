/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commands

import "encoding/json"

// OrdererTLS carries the TLS flags of commands that talk to the orderer.
type OrdererTLS struct {
	CAFile string
}

func (o OrdererTLS) args() []string {
	if o.CAFile == "" {
		return nil
	}
	return []string{"--tls", "true", "--cafile", o.CAFile}
}

// Ctor encodes chaincode arguments the way the peer CLI expects them: {"Args":[...]}
func Ctor(args ...string) string {
	if args == nil {
		args = []string{}
	}
	raw, err := json.Marshal(struct {
		Args []string `json:"Args"`
	}{Args: args})
	if err != nil {
		// a slice of strings always marshals
		panic(err)
	}
	return string(raw)
}

type ChannelCreate struct {
	NetworkPrefix string
	ChannelID     string
	Orderer       string
	File          string
	OutputBlock   string
	OrdererTLS
}

func (c ChannelCreate) SessionName() string {
	return c.NetworkPrefix + "-peer-channel-create"
}

func (c ChannelCreate) Args() []string {
	args := []string{
		"channel", "create",
		"--channelID", c.ChannelID,
		"--orderer", c.Orderer,
		"--file", c.File,
	}
	if c.OutputBlock != "" {
		args = append(args, "--outputBlock", c.OutputBlock)
	}
	return append(args, c.OrdererTLS.args()...)
}

type ChannelJoin struct {
	NetworkPrefix string
	BlockPath     string
}

func (c ChannelJoin) SessionName() string {
	return c.NetworkPrefix + "-peer-channel-join"
}

func (c ChannelJoin) Args() []string {
	return []string{
		"channel", "join",
		"-b", c.BlockPath,
	}
}

type ChannelFetch struct {
	NetworkPrefix string
	ChannelID     string
	Block         string
	Orderer       string
	OutputFile    string
	OrdererTLS
}

func (c ChannelFetch) SessionName() string {
	return c.NetworkPrefix + "-peer-channel-fetch"
}

func (c ChannelFetch) Args() []string {
	args := []string{
		"channel", "fetch", c.Block,
	}
	if c.OutputFile != "" {
		args = append(args, c.OutputFile)
	}
	if c.ChannelID != "" {
		args = append(args, "--channelID", c.ChannelID)
	}
	if c.Orderer != "" {
		args = append(args, "--orderer", c.Orderer)
	}
	return append(args, c.OrdererTLS.args()...)
}

type ChannelUpdate struct {
	NetworkPrefix string
	ChannelID     string
	Orderer       string
	File          string
	OrdererTLS
}

func (c ChannelUpdate) SessionName() string {
	return c.NetworkPrefix + "-peer-channel-update"
}

func (c ChannelUpdate) Args() []string {
	args := []string{
		"channel", "update",
		"--channelID", c.ChannelID,
		"--orderer", c.Orderer,
		"--file", c.File,
	}
	return append(args, c.OrdererTLS.args()...)
}

type ChaincodeInstallLegacy struct {
	NetworkPrefix string
	Name          string
	Version       string
	Path          string
	Lang          string
}

func (c ChaincodeInstallLegacy) SessionName() string {
	return c.NetworkPrefix + "-peer-chaincode-install"
}

func (c ChaincodeInstallLegacy) Args() []string {
	args := []string{
		"chaincode", "install",
	}
	if c.Lang != "" {
		args = append(args, "--lang", c.Lang)
	}
	if c.Name != "" {
		args = append(args, "--name", c.Name)
	}
	if c.Version != "" {
		args = append(args, "--version", c.Version)
	}
	if c.Path != "" {
		args = append(args, "--path", c.Path)
	}
	return args
}

type ChaincodeInstantiateLegacy struct {
	NetworkPrefix string
	ChannelID     string
	Orderer       string
	Name          string
	Version       string
	Ctor          string
	Policy        string
	Lang          string
	OrdererTLS
}

func (c ChaincodeInstantiateLegacy) SessionName() string {
	return c.NetworkPrefix + "-peer-chaincode-instantiate"
}

func (c ChaincodeInstantiateLegacy) Args() []string {
	args := []string{
		"chaincode", "instantiate",
		"--channelID", c.ChannelID,
		"--orderer", c.Orderer,
		"--name", c.Name,
		"--version", c.Version,
		"--ctor", c.Ctor,
	}
	if c.Policy != "" {
		args = append(args, "--policy", c.Policy)
	}
	if c.Lang != "" {
		args = append(args, "--lang", c.Lang)
	}
	return append(args, c.OrdererTLS.args()...)
}

type ChaincodeQuery struct {
	NetworkPrefix string
	ChannelID     string
	Name          string
	Ctor          string
}

func (c ChaincodeQuery) SessionName() string {
	return c.NetworkPrefix + "-peer-chaincode-query"
}

func (c ChaincodeQuery) Args() []string {
	return []string{
		"chaincode", "query",
		"--channelID", c.ChannelID,
		"--name", c.Name,
		"--ctor", c.Ctor,
	}
}

type ChaincodeInvoke struct {
	NetworkPrefix    string
	ChannelID        string
	Orderer          string
	Name             string
	Ctor             string
	PeerAddresses    []string
	TLSRootCertFiles []string
	WaitForEvent     bool
	OrdererTLS
}

func (c ChaincodeInvoke) SessionName() string {
	return c.NetworkPrefix + "-peer-chaincode-invoke"
}

func (c ChaincodeInvoke) Args() []string {
	args := []string{
		"chaincode", "invoke",
		"--channelID", c.ChannelID,
		"--orderer", c.Orderer,
		"--name", c.Name,
		"--ctor", c.Ctor,
	}
	for _, p := range c.PeerAddresses {
		args = append(args, "--peerAddresses", p)
	}
	for _, f := range c.TLSRootCertFiles {
		args = append(args, "--tlsRootCertFiles", f)
	}
	if c.WaitForEvent {
		args = append(args, "--waitForEvent")
	}
	return append(args, c.OrdererTLS.args()...)
}

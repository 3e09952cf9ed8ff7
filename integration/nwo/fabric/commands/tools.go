/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commands

import "sort"

// Generate runs cryptogen generate.
type Generate struct {
	Config string
	Output string
}

func (c Generate) SessionName() string {
	return "cryptogen-generate"
}

func (c Generate) Args() []string {
	return []string{
		"generate",
		"--config=" + c.Config,
		"--output=" + c.Output,
	}
}

type OutputBlock struct {
	ChannelID   string
	Profile     string
	ConfigPath  string
	OutputBlock string
}

func (o OutputBlock) SessionName() string {
	return "configtxgen-output-block"
}

func (o OutputBlock) Args() []string {
	return []string{
		"-channelID", o.ChannelID,
		"-profile", o.Profile,
		"-configPath", o.ConfigPath,
		"-outputBlock", o.OutputBlock,
	}
}

type CreateChannelTx struct {
	ChannelID             string
	Profile               string
	ConfigPath            string
	OutputCreateChannelTx string
}

func (c CreateChannelTx) SessionName() string {
	return "configtxgen-create-channel-tx"
}

func (c CreateChannelTx) Args() []string {
	return []string{
		"-channelID", c.ChannelID,
		"-profile", c.Profile,
		"-configPath", c.ConfigPath,
		"-outputCreateChannelTx", c.OutputCreateChannelTx,
	}
}

type OutputAnchorPeersUpdate struct {
	ChannelID               string
	Profile                 string
	ConfigPath              string
	AsOrg                   string
	OutputAnchorPeersUpdate string
}

func (o OutputAnchorPeersUpdate) SessionName() string {
	return "configtxgen-output-anchor-peers-update-" + o.AsOrg
}

func (o OutputAnchorPeersUpdate) Args() []string {
	return []string{
		"-channelID", o.ChannelID,
		"-profile", o.Profile,
		"-configPath", o.ConfigPath,
		"-asOrg", o.AsOrg,
		"-outputAnchorPeersUpdate", o.OutputAnchorPeersUpdate,
	}
}

// ComposeUp starts the compose project in the background.
type ComposeUp struct {
	File    string
	Project string
	Dir     string
}

func (c ComposeUp) SessionName() string {
	return "docker-compose-up"
}

func (c ComposeUp) WorkingDir() string {
	return c.Dir
}

func (c ComposeUp) Args() []string {
	args := []string{"-f", c.File}
	if c.Project != "" {
		args = append(args, "-p", c.Project)
	}
	return append(args, "up", "-d")
}

type ComposeDown struct {
	File    string
	Project string
	Dir     string
	Volumes bool
}

func (c ComposeDown) SessionName() string {
	return "docker-compose-down"
}

func (c ComposeDown) WorkingDir() string {
	return c.Dir
}

func (c ComposeDown) Args() []string {
	args := []string{"-f", c.File}
	if c.Project != "" {
		args = append(args, "-p", c.Project)
	}
	args = append(args, "down")
	if c.Volumes {
		args = append(args, "--volumes")
	}
	return append(args, "--remove-orphans")
}

// DockerExec runs a peer command inside a container with the given environment.
type DockerExec struct {
	Container string
	Binary    string
	Env       map[string]string
	Command   interface {
		Args() []string
		SessionName() string
	}
}

func (d DockerExec) SessionName() string {
	return d.Command.SessionName()
}

func (d DockerExec) Args() []string {
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{"exec"}
	for _, k := range keys {
		args = append(args, "-e", k+"="+d.Env[k])
	}
	args = append(args, d.Container, d.Binary)
	return append(args, d.Command.Args()...)
}

/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/mocks"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, r *mocks.Runner, rt *mocks.Runtime) (*Options, *bytes.Buffer) {
	out := &bytes.Buffer{}
	o := NewOptions()
	o.Workspace = t.TempDir()
	o.Out = out
	o.NewRunner = func() api.CommandRunner { return r }
	o.NewRuntime = func() (api.ContainerRuntime, error) {
		if rt == nil {
			return nil, errors.New("Cannot connect to the Docker daemon")
		}
		return rt, nil
	}
	return o, out
}

func execute(o *Options, sub *cobra.Command, args ...string) error {
	root := &cobra.Command{Use: "fabnet", SilenceErrors: true}
	o.BindFlags(root)
	root.AddCommand(sub)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestGenerateCmd(t *testing.T) {
	r := mocks.FabricTools(&mocks.Runner{})
	o, out := testOptions(t, r, nil)

	require.NoError(t, execute(o, GenerateCmd(o), "generate", "--logging-spec", "error"))
	ws, err := workspace.New(o.Workspace)
	require.NoError(t, err)
	assert.FileExists(t, ws.GenesisBlockPath())
	assert.FileExists(t, ws.AnchorsTxPath("Org1MSP"))
	assert.Contains(t, out.String(), "completed: [artifacts]")
	assert.Empty(t, r.CallsMatching("docker"))
}

func TestGenerateCmdRejectsArgs(t *testing.T) {
	o, _ := testOptions(t, &mocks.Runner{}, nil)
	assert.EqualError(t, execute(o, GenerateCmd(o), "generate", "extra"), "trailing args detected")
}

func TestStartCmdFailsWithoutComposeFile(t *testing.T) {
	r := mocks.FabricTools(&mocks.Runner{})
	o, out := testOptions(t, r, nil)

	err := execute(o, StartCmd(o), "start")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNetworkStartFailed)
	assert.Contains(t, out.String(), "fatal: step [network-up]")
}

func TestStartCmdResume(t *testing.T) {
	r := mocks.FabricTools(&mocks.Runner{})
	o, _ := testOptions(t, r, nil)
	require.NoError(t, execute(o, GenerateCmd(o), "generate"))

	second := &mocks.Runner{}
	o.NewRunner = func() api.CommandRunner { return second }
	err := execute(o, StartCmd(o), "start", "--resume")
	assert.ErrorIs(t, err, api.ErrNetworkStartFailed)
	assert.Empty(t, second.CallsMatching("cryptogen"))
}

func TestCleanCmd(t *testing.T) {
	rt := &mocks.Runtime{}
	rt.AddContainer(api.Container{ID: "1", Names: []string{"dev-peer0.org1.example.com-ex02-v1.0"}, State: "running"})
	r := mocks.FabricTools(&mocks.Runner{})
	o, out := testOptions(t, r, rt)
	require.NoError(t, execute(o, GenerateCmd(o), "generate"))

	require.NoError(t, execute(o, CleanCmd(o), "clean"))
	ws, err := workspace.New(o.Workspace)
	require.NoError(t, err)
	assert.NoDirExists(t, ws.CryptoDir())
	assert.NoDirExists(t, ws.ArtifactsDir())
	assert.Equal(t, []string{"1"}, rt.Stopped)
	assert.NoFileExists(t, ws.ConfigTxPath())
	assert.NoFileExists(t, ws.RenderedPath())
	assert.Contains(t, out.String(), "removed: 6 items")

	out.Reset()
	require.NoError(t, execute(o, CleanCmd(o), "clean"))
	assert.NotContains(t, out.String(), "removed")
}

func TestCommandsLockTheWorkspace(t *testing.T) {
	o, _ := testOptions(t, &mocks.Runner{}, nil)
	ws, err := workspace.New(o.Workspace)
	require.NoError(t, err)
	unlock, err := ws.Lock()
	require.NoError(t, err)
	defer unlock()

	err = execute(o, CleanCmd(o), "clean")
	assert.ErrorIs(t, err, api.ErrWorkspaceLocked)
}

func TestCommandsUseTopologyFile(t *testing.T) {
	r := mocks.FabricTools(&mocks.Runner{})
	o, _ := testOptions(t, r, nil)
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(acme), 0o644))

	require.NoError(t, execute(o, GenerateCmd(o), "generate", "--topology", path))
	ws, err := workspace.New(o.Workspace)
	require.NoError(t, err)
	assert.FileExists(t, ws.ChannelTxPath("ch1"))
	assert.Len(t, r.CallsMatching("-channelID acme-sys-channel"), 1)
}

/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hyperledger-labs/fabnet/integration/nwo"
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/docker"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/runner"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/sigmon"
)

var logger = logging.MustGetLogger("fabnet.cmd")

// Options are shared by the network commands.
type Options struct {
	Workspace   string
	Topology    string
	LoggingSpec string
	Resume      bool

	Viper *viper.Viper
	Out   io.Writer
	// NewRunner and NewRuntime build the process runner and the container runtime
	NewRunner  func() api.CommandRunner
	NewRuntime func() (api.ContainerRuntime, error)
}

func NewOptions() *Options {
	return &Options{
		Workspace: ".",
		Viper:     NewViper(),
		Out:       os.Stdout,
		NewRunner: func() api.CommandRunner {
			r := runner.New()
			r.Stream = os.Stderr
			return r
		},
		NewRuntime: func() (api.ContainerRuntime, error) {
			return docker.New()
		},
	}
}

// BindFlags registers the flags shared by every network command on cmd.
func (o *Options) BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.Workspace, "workspace", "w", o.Workspace, "directory holding the configuration, the artifacts and the compose file")
	flags.StringVarP(&o.Topology, "topology", "t", o.Topology, "topology file, the two organization network if empty")
	flags.StringVar(&o.LoggingSpec, "logging-spec", o.LoggingSpec, "logging spec, e.g. fabnet.channel=debug:info")
	_ = o.Viper.BindPFlag("logging_spec", flags.Lookup("logging-spec"))
}

// GenerateCmd returns the Cobra Command for Generate
func GenerateCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the configuration tree, crypto material and channel artifacts.",
		Long:  `Generate the configuration tree, crypto material and channel artifacts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return o.run(func(ctx context.Context, n *nwo.NWO) (*api.Report, error) {
				return n.Generate(ctx)
			})
		},
	}
}

// CleanCmd returns the Cobra Command for Clean
func CleanCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Stop the network and remove artifacts, chaincode containers and images.",
		Long:  `Stop the network and remove artifacts, chaincode containers and images.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return o.run(func(ctx context.Context, n *nwo.NWO) (*api.Report, error) {
				return n.Clean(ctx)
			})
		},
	}
}

// StartCmd returns the Cobra Command for Start
func StartCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Bootstrap the network: artifacts, containers, channels, chaincodes and smoke test.",
		Long:  `Bootstrap the network: artifacts, containers, channels, chaincodes and smoke test.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return o.run(func(ctx context.Context, n *nwo.NWO) (*api.Report, error) {
				n.Resume = o.Resume
				return n.Start(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&o.Resume, "resume", false, "skip the steps completed by a previous run")
	return cmd
}

// run locks the workspace, builds the orchestrator and executes f until it returns
// or a signal is received.
func (o *Options) run(f func(ctx context.Context, n *nwo.NWO) (*api.Report, error)) error {
	spec := o.LoggingSpec
	if len(spec) == 0 {
		spec = o.Viper.GetString("logging_spec")
	}
	logging.Init(logging.Config{LogSpec: spec})

	if err := os.MkdirAll(o.Workspace, 0o755); err != nil {
		return errors.Wrapf(err, "failed creating workspace [%s]", o.Workspace)
	}
	ws, err := workspace.New(o.Workspace)
	if err != nil {
		return err
	}
	unlock, err := ws.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warnf("failed releasing workspace lock: %s", err)
		}
	}()

	t, err := LoadTopology(o.Topology)
	if err != nil {
		return err
	}

	var rt api.ContainerRuntime
	if d, err := o.NewRuntime(); err != nil {
		logger.Warnf("container runtime not available, chaincode containers are not tracked: %s", err)
	} else {
		rt = d
	}
	n := nwo.New(t, ws, o.NewRunner(), rt)
	n.Out = o.Out

	var report *api.Report
	process := ifrit.Invoke(sigmon.New(nwo.RunFunc(func(ctx context.Context) error {
		var err error
		report, err = f(ctx, n)
		return err
	})))
	err = <-process.Wait()

	if report != nil {
		fmt.Fprintln(o.Out, report.String())
	}
	return err
}

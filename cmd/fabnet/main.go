/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger-labs/fabnet/cmd/fabnet/version"
	"github.com/hyperledger-labs/fabnet/integration/nwo/cmd/network"
	"github.com/spf13/cobra"
)

const CmdRoot = "fabnet"

// The main command describes the service and
// defaults to printing the help message.
var mainCmd = &cobra.Command{
	Use:   CmdRoot,
	Short: "Bootstrap and tear down a Hyperledger Fabric test network.",
}

func main() {
	opts := network.NewOptions()
	opts.BindFlags(mainCmd)

	mainCmd.AddCommand(network.StartCmd(opts))
	mainCmd.AddCommand(network.CleanCmd(opts))
	mainCmd.AddCommand(network.GenerateCmd(opts))
	mainCmd.AddCommand(version.Cmd())

	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}

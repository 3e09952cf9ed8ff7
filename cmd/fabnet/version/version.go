/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package version

import (
	"fmt"

	"github.com/hyperledger-labs/fabnet/cmd/fabnet/metadata"
	"github.com/spf13/cobra"
)

// Cmd returns the Cobra Command for Version
func Cmd() *cobra.Command {
	return cobraCommand
}

var cobraCommand = &cobra.Command{
	Use:   "version",
	Short: "Print current version of fabnet.",
	Long:  `Print current version of fabnet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true
		fmt.Fprintln(cmd.OutOrStdout(), metadata.GetVersionInfo())
		return nil
	},
}

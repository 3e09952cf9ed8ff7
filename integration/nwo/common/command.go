/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
)

const FabricBinsPathEnvKey = "FAB_BINS"

// FindCmd returns the path of the given tool. Tools found in the directory named
// by FAB_BINS win over the PATH. When the tool is not found there, the bare name
// is returned and resolved by the runner.
func FindCmd(cmd string) string {
	if dir := os.Getenv(FabricBinsPathEnvKey); len(dir) != 0 {
		cmdPath := filepath.Join(dir, cmd)
		if info, err := os.Stat(cmdPath); err == nil && !info.IsDir() {
			return cmdPath
		}
	}
	return cmd
}

// NewSpec turns a structured command into a process specification.
// Env entries in KEY=VALUE form are taken from the command when it implements api.Enver,
// the working directory when it implements api.WorkingDirer.
func NewSpec(executable string, c api.Command, timeout time.Duration) api.Spec {
	spec := api.Spec{
		Name:    c.SessionName(),
		Path:    FindCmd(executable),
		Args:    c.Args(),
		Timeout: timeout,
	}
	if ce, ok := c.(api.Enver); ok {
		spec.Env = map[string]string{}
		for _, kv := range ce.Env() {
			k, v, _ := strings.Cut(kv, "=")
			spec.Env[k] = v
		}
	}
	if wd, ok := c.(api.WorkingDirer); ok {
		spec.Dir = wd.WorkingDir()
	}
	return spec
}

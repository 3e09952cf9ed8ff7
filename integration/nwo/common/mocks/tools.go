/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
)

// Cryptogen writes some material under the --output directory.
func Cryptogen(spec api.Spec) (*api.Result, error) {
	for _, a := range spec.Args {
		if out, ok := strings.CutPrefix(a, "--output="); ok {
			dir := filepath.Join(out, "peerOrganizations", "org1.example.com")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			return &api.Result{}, os.WriteFile(filepath.Join(dir, "ca.pem"), []byte("cert"), 0o644)
		}
	}
	return &api.Result{ExitCode: 1}, nil
}

// Configtxgen writes the file following the -output* flag.
func Configtxgen(spec api.Spec) (*api.Result, error) {
	for i, a := range spec.Args {
		if strings.HasPrefix(a, "-output") && i+1 < len(spec.Args) {
			return &api.Result{}, os.WriteFile(spec.Args[i+1], []byte(a), 0o644)
		}
	}
	return &api.Result{ExitCode: 1}, nil
}

// FabricTools registers Cryptogen and Configtxgen on r.
func FabricTools(r *Runner) *Runner {
	return r.On(Cryptogen, "cryptogen").On(Configtxgen, "configtxgen")
}

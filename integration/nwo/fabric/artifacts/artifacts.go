/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package artifacts

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/commands"
	errors2 "github.com/hyperledger-labs/fabnet/pkg/utils/errors"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.artifacts")

const (
	FingerprintFile = ".fingerprint"
	DefaultTimeout  = 2 * time.Minute
)

// Stage generates the crypto material and the channel artifacts of a network.
type Stage struct {
	Runner  api.CommandRunner
	Timeout time.Duration
}

func New(r api.CommandRunner) *Stage {
	return &Stage{Runner: r, Timeout: DefaultTimeout}
}

// Fingerprint returns the hex encoded sha2-256 multihash of the given content.
func Fingerprint(content []byte) (string, error) {
	mh, err := multihash.Sum(content, multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrapf(err, "failed hashing content")
	}
	return hex.EncodeToString(mh), nil
}

// GenerateCrypto runs cryptogen on configPath. When outputDir already holds
// material generated from the same configuration the call is a no-op.
// Otherwise outputDir is wiped and regenerated; on failure nothing is left behind.
func (s *Stage) GenerateCrypto(ctx context.Context, configPath, outputDir string) error {
	const op = "generate crypto"
	config, err := os.ReadFile(configPath)
	if err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, errors.Wrapf(err, "failed reading [%s]", configPath))
	}
	fingerprint, err := Fingerprint(config)
	if err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}

	fingerprintPath := filepath.Join(outputDir, FingerprintFile)
	if existing, err := os.ReadFile(fingerprintPath); err == nil && string(bytes.TrimSpace(existing)) == fingerprint {
		if nonEmpty, _ := hasMaterial(outputDir); nonEmpty {
			logger.Infof("crypto material in [%s] is up to date, skipping", outputDir)
			return nil
		}
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, errors.Wrapf(err, "failed wiping [%s]", outputDir))
	}

	logger.Infof("generating crypto material in [%s]", outputDir)
	res, err := s.Runner.Run(ctx, common.NewSpec("cryptogen", commands.Generate{
		Config: configPath,
		Output: outputDir,
	}, s.Timeout))
	if err == nil && !res.Success() {
		err = errors.Errorf("exit code %d: %s", res.ExitCode, res.Output())
	}
	if err == nil {
		if nonEmpty, _ := hasMaterial(outputDir); !nonEmpty {
			err = errors.Errorf("no material in [%s]", outputDir)
		}
	}
	if err != nil {
		if rmErr := os.RemoveAll(outputDir); rmErr != nil {
			logger.Errorf("failed removing partial output [%s]: %s", outputDir, rmErr)
		}
		if errors2.HasCause(err, api.ErrExternalToolNotFound) || errors2.HasCause(err, api.ErrTimeout) {
			return errors.WithMessage(err, op)
		}
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}

	if err := os.WriteFile(fingerprintPath, []byte(fingerprint+"\n"), 0o644); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, errors.Wrapf(err, "failed writing fingerprint"))
	}
	return nil
}

// hasMaterial returns true if dir contains anything but the fingerprint.
func hasMaterial(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name() != FingerprintFile {
			return true, nil
		}
	}
	return false, nil
}

// ChannelRequest describes the channel artifacts to generate.
type ChannelRequest struct {
	// Workspace holds configtx.yaml and receives the artifacts
	Workspace      *workspace.Workspace
	SystemChannel  string
	GenesisProfile string
	Channel        string
	ChannelProfile string
	// MSPIDs of the organizations needing an anchor peers update, in order
	MSPIDs []string
}

// GenerateChannelArtifacts writes the genesis block, the channel creation
// transaction and one anchor peers update per organization, in this order.
func (s *Stage) GenerateChannelArtifacts(ctx context.Context, req ChannelRequest) error {
	ws := req.Workspace
	if err := os.MkdirAll(ws.ArtifactsDir(), 0o755); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, "channel artifacts", err)
	}

	type artifact struct {
		cmd  api.Command
		path string
	}
	genesis := ws.GenesisBlockPath()
	channelTx := ws.ChannelTxPath(req.Channel)
	all := []artifact{
		{
			cmd: commands.OutputBlock{
				ChannelID:   req.SystemChannel,
				Profile:     req.GenesisProfile,
				ConfigPath:  ws.Root,
				OutputBlock: genesis,
			},
			path: genesis,
		},
		{
			cmd: commands.CreateChannelTx{
				ChannelID:             req.Channel,
				Profile:               req.ChannelProfile,
				ConfigPath:            ws.Root,
				OutputCreateChannelTx: channelTx,
			},
			path: channelTx,
		},
	}
	for _, mspID := range req.MSPIDs {
		anchors := ws.AnchorsTxPath(mspID)
		all = append(all, artifact{
			cmd: commands.OutputAnchorPeersUpdate{
				ChannelID:               req.Channel,
				Profile:                 req.ChannelProfile,
				ConfigPath:              ws.Root,
				AsOrg:                   mspID,
				OutputAnchorPeersUpdate: anchors,
			},
			path: anchors,
		})
	}

	for _, a := range all {
		op := a.cmd.SessionName()
		logger.Debugf("generating [%s]", a.path)
		spec := common.NewSpec("configtxgen", a.cmd, s.Timeout)
		spec.Dir = ws.Root
		spec.Env = map[string]string{"FABRIC_CFG_PATH": ws.Root}
		res, err := s.Runner.Run(ctx, spec)
		if err != nil {
			if errors2.HasCause(err, api.ErrExternalToolNotFound) || errors2.HasCause(err, api.ErrTimeout) {
				return errors.WithMessage(err, op)
			}
			return api.NewError(api.ErrArtifactGenerationFailed, op, err)
		}
		if !res.Success() {
			return api.NewError(api.ErrArtifactGenerationFailed, op, errors.Errorf("exit code %d: %s", res.ExitCode, res.Output()))
		}
		if _, err := os.Stat(a.path); err != nil {
			return api.NewError(api.ErrArtifactMissing, op, errors.Errorf("[%s] not found after a successful run", a.path))
		}
	}
	logger.Infof("generated %d channel artifacts in [%s]", len(all), ws.ArtifactsDir())
	return nil
}

/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/pkg/errors"
)

const (
	CryptoConfigDir   = "crypto-config"
	ChannelArtifacts  = "channel-artifacts"
	CryptoConfigFile  = "crypto-config.yaml"
	ConfigTxFile      = "configtx.yaml"
	ComposeFile       = "docker-compose.yaml"
	ProgressFile      = ".fabnet-progress.yaml"
	RenderedFile      = ".fabnet-rendered.yaml"
	LockFile          = ".fabnet.lock"
	GenesisBlockFile  = "genesis.block"
	anchorsFileSuffix = "anchors.tx"
)

// Workspace is the directory owning the generated network material.
type Workspace struct {
	Root string
}

func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed resolving workspace [%s]", root)
	}
	return &Workspace{Root: abs}, nil
}

func (w *Workspace) CryptoDir() string        { return filepath.Join(w.Root, CryptoConfigDir) }
func (w *Workspace) ArtifactsDir() string     { return filepath.Join(w.Root, ChannelArtifacts) }
func (w *Workspace) CryptoConfigPath() string { return filepath.Join(w.Root, CryptoConfigFile) }
func (w *Workspace) ConfigTxPath() string     { return filepath.Join(w.Root, ConfigTxFile) }
func (w *Workspace) ComposePath() string      { return filepath.Join(w.Root, ComposeFile) }
func (w *Workspace) ProgressPath() string     { return filepath.Join(w.Root, ProgressFile) }
func (w *Workspace) RenderedPath() string     { return filepath.Join(w.Root, RenderedFile) }

func (w *Workspace) GenesisBlockPath() string {
	return filepath.Join(w.ArtifactsDir(), GenesisBlockFile)
}

func (w *Workspace) ChannelTxPath(channel string) string {
	return filepath.Join(w.ArtifactsDir(), channel+".tx")
}

func (w *Workspace) AnchorsTxPath(mspID string) string {
	return filepath.Join(w.ArtifactsDir(), mspID+anchorsFileSuffix)
}

// Lock takes the advisory workspace lock without blocking.
// When another process holds it, ErrWorkspaceLocked is returned.
func (w *Workspace) Lock() (unlock func() error, err error) {
	l := flock.New(filepath.Join(w.Root, LockFile))
	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed locking workspace [%s]", w.Root)
	}
	if !locked {
		return nil, api.NewError(api.ErrWorkspaceLocked, w.Root, nil)
	}
	return l.Unlock, nil
}

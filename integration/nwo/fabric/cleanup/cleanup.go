/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cleanup

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/workspace"
	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/artifacts"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.cleanup")

const (
	// ChaincodePrefix is the name prefix of the containers and images the peers spawn for chaincodes
	ChaincodePrefix    = "dev-peer"
	DefaultStopTimeout = 10 * time.Second
)

// Lifecycle stops the container topology.
type Lifecycle interface {
	Down(ctx context.Context, removeVolumes bool) error
}

// Reconciler brings a workspace and its network back to the Down state.
type Reconciler struct {
	Workspace *workspace.Workspace
	Network   Lifecycle
	// Runtime is optional; without it chaincode containers and images are left alone
	Runtime     api.ContainerRuntime
	StopTimeout time.Duration
}

func New(ws *workspace.Workspace, n Lifecycle, rt api.ContainerRuntime) *Reconciler {
	return &Reconciler{Workspace: ws, Network: n, Runtime: rt, StopTimeout: DefaultStopTimeout}
}

// Reconcile removes the generated artifacts and the unedited configuration files
// rendered by fabnet, stops the network with its volumes and removes
// the chaincode containers and images. Absent state is not an error, so Reconcile can run
// any number of times. Every step runs even if a previous one failed; the returned error
// is the first failure.
func (r *Reconciler) Reconcile(ctx context.Context) (*api.Report, error) {
	report := &api.Report{}

	for _, p := range []string{r.Workspace.CryptoDir(), r.Workspace.ArtifactsDir(), r.Workspace.ProgressPath()} {
		r.removePath(report, p)
	}
	removed, err := artifacts.RemoveRendered(r.Workspace.RenderedPath())
	report.Removed = append(report.Removed, removed...)
	if err != nil {
		report.AddFailure(api.Failure{Target: r.Workspace.RenderedPath(), Step: "remove", Err: err})
	}

	if r.Network != nil {
		if err := r.Network.Down(ctx, true); err != nil {
			report.AddFailure(api.Failure{Target: "network", Step: "down", Err: err})
		} else {
			report.Completed = append(report.Completed, "network-down")
		}
	}

	if r.Runtime != nil {
		r.removeContainers(ctx, report)
		r.removeImages(ctx, report)
	}

	if len(report.Failures) != 0 {
		report.Fatal = report.Failures[0]
	}
	logger.Infof("cleanup done, removed %d items, %d failures", len(report.Removed), len(report.Failures))
	return report, report.Fatal
}

func (r *Reconciler) removePath(report *api.Report, p string) {
	if _, err := os.Lstat(p); os.IsNotExist(err) {
		logger.Debugf("[%s] does not exist", p)
		return
	}
	if err := os.RemoveAll(p); err != nil {
		report.AddFailure(api.Failure{Target: p, Step: "remove", Err: err})
		return
	}
	logger.Debugf("removed [%s]", p)
	report.Removed = append(report.Removed, p)
}

func (r *Reconciler) removeContainers(ctx context.Context, report *api.Report) {
	containers, err := r.Runtime.ListContainers(ctx, true)
	if err != nil {
		report.AddFailure(api.Failure{Target: "containers", Step: "list", Err: errors.Wrap(err, "failed listing containers")})
		return
	}
	for _, c := range containers {
		name, ok := matching(c.Names)
		if !ok {
			continue
		}
		if c.Running() {
			if err := r.Runtime.StopContainer(ctx, c.ID, r.StopTimeout); err != nil {
				report.AddFailure(api.Failure{Target: name, Step: "stop container", Err: err})
				continue
			}
		}
		if err := r.Runtime.RemoveContainer(ctx, c.ID); err != nil {
			report.AddFailure(api.Failure{Target: name, Step: "remove container", Err: err})
			continue
		}
		logger.Debugf("removed container [%s]", name)
		report.Removed = append(report.Removed, "container "+name)
	}
}

func (r *Reconciler) removeImages(ctx context.Context, report *api.Report) {
	images, err := r.Runtime.ListImages(ctx)
	if err != nil {
		report.AddFailure(api.Failure{Target: "images", Step: "list", Err: errors.Wrap(err, "failed listing images")})
		return
	}
	for _, i := range images {
		tag, ok := matching(i.Tags)
		if !ok {
			continue
		}
		if err := r.Runtime.RemoveImage(ctx, i.ID); err != nil {
			report.AddFailure(api.Failure{Target: tag, Step: "remove image", Err: err})
			continue
		}
		logger.Debugf("removed image [%s]", tag)
		report.Removed = append(report.Removed, "image "+tag)
	}
}

func matching(names []string) (string, bool) {
	for _, n := range names {
		if strings.HasPrefix(n, ChaincodePrefix) {
			return n, true
		}
	}
	return "", false
}

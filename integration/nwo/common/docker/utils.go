/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package docker

import (
	"context"
	"strings"
	"time"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.docker")

// Client is the subset of the docker engine client used by Docker.
type Client interface {
	ListContainers(opts docker.ListContainersOptions) ([]docker.APIContainers, error)
	StopContainerWithContext(id string, timeout uint, ctx context.Context) error
	RemoveContainer(opts docker.RemoveContainerOptions) error
	ListImages(opts docker.ListImagesOptions) ([]docker.APIImages, error)
	RemoveImageExtended(name string, opts docker.RemoveImageOptions) error
}

// Docker implements api.ContainerRuntime on top of the docker engine API.
type Docker struct {
	Client Client
}

// New returns a Docker connected to the engine described by the DOCKER_* environment.
func New() (*Docker, error) {
	c, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create new docker client instance")
	}
	return &Docker{Client: c}, nil
}

func (d *Docker) ListContainers(ctx context.Context, all bool) ([]api.Container, error) {
	containers, err := d.Client.ListContainers(docker.ListContainersOptions{All: all, Context: ctx})
	if err != nil {
		return nil, errors.Wrapf(err, "failed listing docker containers")
	}
	res := make([]api.Container, 0, len(containers))
	for _, c := range containers {
		names := make([]string, 0, len(c.Names))
		for _, name := range c.Names {
			names = append(names, strings.TrimPrefix(name, "/"))
		}
		res = append(res, api.Container{ID: c.ID, Names: names, State: c.State})
	}
	return res, nil
}

// StopContainer stops the container. Stopping a container that is not running succeeds.
func (d *Docker) StopContainer(ctx context.Context, id string, timeout time.Duration) error {
	err := d.Client.StopContainerWithContext(id, uint(timeout.Seconds()), ctx)
	switch err.(type) {
	case nil, *docker.ContainerNotRunning:
		return nil
	case *docker.NoSuchContainer:
		logger.Debugf("container [%s] already gone", id)
		return nil
	default:
		return errors.Wrapf(err, "failed stopping docker container='%s'", id)
	}
}

// RemoveContainer force removes the container and its anonymous volumes. A missing container is not an error.
func (d *Docker) RemoveContainer(ctx context.Context, id string) error {
	err := d.Client.RemoveContainer(docker.RemoveContainerOptions{ID: id, Force: true, RemoveVolumes: true, Context: ctx})
	if _, ok := err.(*docker.NoSuchContainer); err != nil && !ok {
		return errors.Wrapf(err, "failed removing docker container='%s'", id)
	}
	return nil
}

func (d *Docker) ListImages(ctx context.Context) ([]api.Image, error) {
	images, err := d.Client.ListImages(docker.ListImagesOptions{All: true, Context: ctx})
	if err != nil {
		return nil, errors.Wrapf(err, "failed listing docker images")
	}
	res := make([]api.Image, 0, len(images))
	for _, i := range images {
		res = append(res, api.Image{ID: i.ID, Tags: i.RepoTags})
	}
	return res, nil
}

// RemoveImage force removes the image. A missing image is not an error.
func (d *Docker) RemoveImage(ctx context.Context, id string) error {
	err := d.Client.RemoveImageExtended(id, docker.RemoveImageOptions{Force: true, Context: ctx})
	if err != nil && !errors.Is(err, docker.ErrNoSuchImage) {
		return errors.Wrapf(err, "failed removing docker image='%s'", id)
	}
	return nil
}

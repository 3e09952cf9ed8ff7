/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
)

// Runtime is an in-memory api.ContainerRuntime.
type Runtime struct {
	mu         sync.Mutex
	containers []api.Container
	images     []api.Image
	Stopped    []string
	ListErr    error
}

func (r *Runtime) AddContainer(c api.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers = append(r.containers, c)
}

func (r *Runtime) AddImage(i api.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, i)
}

func (r *Runtime) ListContainers(_ context.Context, all bool) ([]api.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var res []api.Container
	for _, c := range r.containers {
		if all || c.Running() {
			res = append(res, c)
		}
	}
	return res, nil
}

func (r *Runtime) StopContainer(_ context.Context, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.containers {
		if r.containers[i].ID == id {
			r.containers[i].State = "exited"
		}
	}
	r.Stopped = append(r.Stopped, id)
	return nil
}

func (r *Runtime) RemoveContainer(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.containers[:0]
	for _, c := range r.containers {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.containers = kept
	return nil
}

func (r *Runtime) ListImages(context.Context) ([]api.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Image(nil), r.images...), nil
}

func (r *Runtime) RemoveImage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.images[:0]
	for _, i := range r.images {
		if i.ID != id {
			kept = append(kept, i)
		}
	}
	r.images = kept
	return nil
}

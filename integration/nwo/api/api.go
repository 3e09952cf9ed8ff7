/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"
	"time"
)

// Command is a structured invocation of an external tool.
type Command interface {
	Args() []string
	SessionName() string
}

// Enver is implemented by commands that need extra environment variables.
type Enver interface {
	Env() []string
}

// WorkingDirer is implemented by commands that must run from a given directory.
type WorkingDirer interface {
	WorkingDir() string
}

// Spec is a fully resolved process invocation.
type Spec struct {
	// Name identifies the invocation in logs and errors
	Name string
	// Path is the executable, either a bare name resolved on the PATH or a path
	Path    string
	Args    []string
	Env     map[string]string
	Dir     string
	Timeout time.Duration
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success returns true if the process exited with code zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return string(r.Stdout) + string(r.Stderr)
}

// CommandRunner executes external processes.
// A non-zero exit code is not an error: it is reported in the Result.
// Errors are reserved for processes that could not be started or did not finish in time.
type CommandRunner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// Container is a running or stopped container known to the container runtime.
type Container struct {
	ID    string
	Names []string
	State string
}

// Running returns true if the container state is running.
func (c Container) Running() bool {
	return c.State == "running"
}

// Image is a container image known to the container runtime.
type Image struct {
	ID   string
	Tags []string
}

// ContainerRuntime is the subset of the container engine the orchestrator needs.
type ContainerRuntime interface {
	ListContainers(ctx context.Context, all bool) ([]Container, error)
	StopContainer(ctx context.Context, id string, timeout time.Duration) error
	RemoveContainer(ctx context.Context, id string) error
	ListImages(ctx context.Context) ([]Image, error)
	RemoveImage(ctx context.Context, id string) error
}

/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/onsi/gomega/gexec"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("fabnet.runner")

const DefaultTimeout = 5 * time.Minute

// ExecRunner runs external tools as child processes.
// Every process is placed in its own process group so that a timeout kills the
// whole tree the tool may have spawned.
type ExecRunner struct {
	// DefaultTimeout applies to specs that do not set one
	DefaultTimeout time.Duration
	// Stream, when set, receives the process output prefixed with the session name
	Stream io.Writer
}

func New() *ExecRunner {
	return &ExecRunner{DefaultTimeout: DefaultTimeout}
}

// Run starts the process described by spec and waits for it.
// A context that is already done prevents the start, but cancellation does not
// interrupt a process that is already running: only the spec timeout does.
func (r *ExecRunner) Run(ctx context.Context, spec api.Spec) (*api.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "not starting [%s]", spec.Name)
	}

	path, err := exec.LookPath(spec.Path)
	if err != nil {
		return nil, api.NewError(api.ErrExternalToolNotFound, spec.Name, err)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = environ(spec.Env)
	cmd.WaitDelay = time.Second
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Stream != nil {
		color := common.NextColor()
		name := common.Colorize(color, "["+spec.Name+"]")
		cmd.Stdout = io.MultiWriter(&stdout, gexec.NewPrefixedWriter("\x1b[32m[o]"+name+" ", r.Stream))
		cmd.Stderr = io.MultiWriter(&stderr, gexec.NewPrefixedWriter("\x1b[91m[e]"+name+" ", r.Stream))
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "%s failed to start", spec.Name)
	}
	logger.Debugf("spawned [%s] (pid: %d): %s", spec.Name, cmd.Process.Pid, logging.Args(path, spec.Args))
	if len(spec.Env) != 0 {
		logger.Debugf("[%s] environment overrides: %s", spec.Name, logging.Keys(spec.Env))
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-exited:
		result := &api.Result{
			ExitCode: exitCode(cmd, err),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		}
		if result.ExitCode < 0 {
			return result, errors.Wrapf(err, "%s did not complete", spec.Name)
		}
		logger.Debugf("[%s] exited with code %d after %s", spec.Name, result.ExitCode, time.Since(start))
		return result, nil

	case <-timer.C:
		logger.Warnf("[%s] did not exit within %s, killing process group", spec.Name, timeout)
		if err := killProcessGroup(cmd); err != nil {
			logger.Errorf("failed killing [%s]: %s", spec.Name, err)
		}
		<-exited
		return &api.Result{
			ExitCode: exitCode(cmd, nil),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		}, api.NewError(api.ErrTimeout, spec.Name, errors.Errorf("no exit after %s", timeout))
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState == nil {
		return -1
	}
	if code, ok := signaledExitCode(cmd.ProcessState); ok {
		return code
	}
	code := cmd.ProcessState.ExitCode()
	if code == -1 && err == nil {
		return 0
	}
	return code
}

// environ returns the parent environment followed by the overrides in key order.
func environ(overrides map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

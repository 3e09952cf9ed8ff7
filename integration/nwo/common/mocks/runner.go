/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
)

// Handler scripts the outcome of a single invocation.
type Handler func(spec api.Spec) (*api.Result, error)

// Runner is a scripted api.CommandRunner recording every invocation.
// Specs are matched against the rules in registration order; the first rule whose
// substrings all appear in the command line wins. Unmatched specs succeed.
type Runner struct {
	mu    sync.Mutex
	rules []rule
	calls []api.Spec
}

type rule struct {
	contains []string
	handler  Handler
}

func (r *Runner) On(handler Handler, contains ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{contains: contains, handler: handler})
	return r
}

// Fail makes matching invocations exit with the given code and stderr.
func (r *Runner) Fail(code int, stderr string, contains ...string) *Runner {
	return r.On(func(api.Spec) (*api.Result, error) {
		return &api.Result{ExitCode: code, Stderr: []byte(stderr)}, nil
	}, contains...)
}

func (r *Runner) Run(_ context.Context, spec api.Spec) (*api.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	rules := r.rules
	r.mu.Unlock()

	line := CommandLine(spec)
	for _, rl := range rules {
		if matches(line, rl.contains) {
			return rl.handler(spec)
		}
	}
	return &api.Result{}, nil
}

func (r *Runner) Calls() []api.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Spec(nil), r.calls...)
}

// CallsMatching returns the recorded invocations whose command line contains all substrings.
func (r *Runner) CallsMatching(contains ...string) []api.Spec {
	var res []api.Spec
	for _, c := range r.Calls() {
		if matches(CommandLine(c), contains) {
			res = append(res, c)
		}
	}
	return res
}

// CommandLine renders the executable and its arguments as a single line.
func CommandLine(spec api.Spec) string {
	return spec.Path + " " + strings.Join(spec.Args, " ")
}

func matches(line string, contains []string) bool {
	for _, c := range contains {
		if !strings.Contains(line, c) {
			return false
		}
	}
	return true
}

/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrArtifactGenerationFailed   = errors.New("artifact generation failed")
	ErrArtifactMissing            = errors.New("artifact missing")
	ErrNetworkStartFailed         = errors.New("network start failed")
	ErrChannelCreateFailed        = errors.New("channel create failed")
	ErrPeerJoinFailed             = errors.New("peer join failed")
	ErrAnchorUpdateFailed         = errors.New("anchor peer update failed")
	ErrChaincodeInstallFailed     = errors.New("chaincode install failed")
	ErrChaincodeInstantiateFailed = errors.New("chaincode instantiate failed")
	ErrChaincodeCallFailed        = errors.New("chaincode call failed")
	ErrDuplicateInstantiate       = errors.New("chaincode already instantiated")
	ErrTimeout                    = errors.New("timeout")
	ErrExternalToolNotFound       = errors.New("external tool not found")
	ErrWorkspaceLocked            = errors.New("workspace locked")
	ErrInvalidTopology            = errors.New("invalid topology")
)

// Error carries a taxonomy kind together with the operation that failed and its cause.
// errors.Is matches both the kind and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError returns an Error of the given kind.
func NewError(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Failure is a non fatal error attributed to a single target, usually a peer.
type Failure struct {
	Target string
	Step   string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s [%s]: %s", f.Step, f.Target, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report aggregates the outcome of a pipeline run or a cleanup.
type Report struct {
	Completed []string
	Skipped   []string
	Failures  []Failure
	Warnings  []Failure
	Removed   []string
	Fatal     error
}

func (r *Report) AddFailure(f Failure) {
	r.Failures = append(r.Failures, f)
}

func (r *Report) AddWarning(f Failure) {
	r.Warnings = append(r.Warnings, f)
}

// Merge appends the content of o to r. The first fatal error wins.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	r.Completed = append(r.Completed, o.Completed...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Failures = append(r.Failures, o.Failures...)
	r.Warnings = append(r.Warnings, o.Warnings...)
	r.Removed = append(r.Removed, o.Removed...)
	if r.Fatal == nil {
		r.Fatal = o.Fatal
	}
}

// FailuresOf returns the failures matching kind.
func (r *Report) FailuresOf(kind error) []Failure {
	var res []Failure
	for _, f := range r.Failures {
		if errors.Is(f.Err, kind) {
			res = append(res, f)
		}
	}
	return res
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "completed: [%s]", strings.Join(r.Completed, ", "))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nskipped: [%s]", strings.Join(r.Skipped, ", "))
	}
	if len(r.Removed) > 0 {
		fmt.Fprintf(&sb, "\nremoved: %d items", len(r.Removed))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "\nfailure: %s", f)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "\nwarning: %s", w)
	}
	if r.Fatal != nil {
		fmt.Fprintf(&sb, "\nfatal: %s", r.Fatal)
	}
	return sb.String()
}

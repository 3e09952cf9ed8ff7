/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewError(ErrChannelCreateFailed, "channel create mychannel", cause)

	assert.ErrorIs(t, err, ErrChannelCreateFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrPeerJoinFailed)
	assert.Equal(t, "channel create mychannel: channel create failed: exit status 1", err.Error())

	wrapped := errors.Wrapf(err, "bootstrap")
	assert.ErrorIs(t, wrapped, ErrChannelCreateFailed)

	var target *Error
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "channel create mychannel", target.Op)
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewError(ErrTimeout, "", nil)
	assert.Equal(t, "timeout", err.Error())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReport(t *testing.T) {
	r := &Report{Completed: []string{"artifacts"}}
	r.AddFailure(Failure{Target: "peer0.org1", Step: "join", Err: NewError(ErrPeerJoinFailed, "join", nil)})
	r.AddFailure(Failure{Target: "peer1.org1", Step: "install", Err: NewError(ErrChaincodeInstallFailed, "install", nil)})
	r.AddWarning(Failure{Target: "org2", Step: "anchor", Err: ErrAnchorUpdateFailed})

	other := &Report{Completed: []string{"network-up"}, Fatal: ErrTimeout}
	r.Merge(other)
	r.Merge(&Report{Fatal: ErrNetworkStartFailed})
	r.Merge(nil)

	assert.Equal(t, []string{"artifacts", "network-up"}, r.Completed)
	assert.Equal(t, ErrTimeout, r.Fatal)
	assert.Len(t, r.FailuresOf(ErrPeerJoinFailed), 1)
	assert.Len(t, r.FailuresOf(ErrChaincodeInstallFailed), 1)
	assert.Empty(t, r.FailuresOf(ErrDuplicateInstantiate))
	assert.Contains(t, r.String(), "warning: anchor [org2]")
	assert.Contains(t, r.String(), "fatal: timeout")
}

/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrapfSimpleNesting(t *testing.T) {
	nestedErr := errors.New("nested err")
	err := errors.Wrapf(nestedErr, "some error")
	assert.True(t, HasCause(err, nestedErr))
}

func TestWrapfDoubleNesting(t *testing.T) {
	nestedErr := errors.New("nested err")
	err := errors.Wrapf(errors.Wrapf(nestedErr, "some error"), "other error")
	assert.True(t, HasCause(err, nestedErr))
	assert.False(t, HasCause(nil, nestedErr))
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join())
	assert.NoError(t, Join(nil, nil))

	first := errors.New("first")
	assert.Equal(t, first, Join(nil, first, nil))

	second := errors.New("second")
	err := Join(first, nil, second)
	assert.Error(t, err)
	assert.True(t, HasCause(err, first))
	assert.True(t, HasCause(err, second))
}

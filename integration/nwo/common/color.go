/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"

	"go.uber.org/atomic"
)

var colorIndex atomic.Uint32

// NextColor returns the next ANSI foreground color code, cycling over the
// normal and bright palettes. Safe for concurrent use.
func NextColor() string {
	color := (colorIndex.Inc()-1)%14 + 31
	if color > 37 {
		color = color + 90 - 37
	}
	return fmt.Sprintf("%dm", color)
}

// Colorize wraps s in the given ANSI color code.
func Colorize(code, s string) string {
	return fmt.Sprintf("\x1b[%s%s\x1b[0m", code, s)
}

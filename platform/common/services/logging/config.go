/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"io"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
)

const (
	DefaultFormat = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s}%{color:reset} %{message}"
	DefaultSpec   = "info"
)

type Config struct {
	// Format is the log record format specifier. If the spec is the string "json",
	// log records will be formatted as JSON.
	Format string
	// LogSpec determines the log levels that are enabled, e.g. "fabnet.runner=debug:info".
	LogSpec string
	// Writer is the sink for encoded and formatted log records, os.Stderr if nil.
	Writer io.Writer
}

func Init(c Config) {
	if len(c.Format) == 0 {
		c.Format = DefaultFormat
	}
	if len(c.LogSpec) == 0 {
		c.LogSpec = DefaultSpec
	}
	flogging.Init(flogging.Config{
		Format:  c.Format,
		LogSpec: c.LogSpec,
		Writer:  c.Writer,
	})
}

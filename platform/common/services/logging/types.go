/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
)

// Args logs lazily a command line, quoting arguments that contain blanks
func Args(name string, args []string) fmt.Stringer {
	return commandLine{name: name, args: args}
}

type commandLine struct {
	name string
	args []string
}

func (c commandLine) String() string {
	var sb strings.Builder
	sb.WriteString(c.name)
	for _, a := range c.args {
		sb.WriteByte(' ')
		if len(a) == 0 || strings.ContainsAny(a, " \t\"'") {
			sb.WriteString(fmt.Sprintf("%q", a))
			continue
		}
		sb.WriteString(a)
	}
	return sb.String()
}

// Keys logs lazily the sorted keys of a map
func Keys[V any](m map[string]V) fmt.Stringer {
	return keys[V](m)
}

type keys[V any] map[string]V

func (k keys[V]) String() string {
	ks := make([]string, 0, len(k))
	for key := range k {
		ks = append(ks, key)
	}
	sort.Strings(ks)
	return strings.Join(ks, ", ")
}

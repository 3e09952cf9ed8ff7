/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package artifacts

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// rendered maps the name of every configuration file written by Render to the
// fingerprint of the content written.
type rendered map[string]string

func loadRendered(recordPath string) (rendered, error) {
	raw, err := os.ReadFile(recordPath)
	if os.IsNotExist(err) {
		return rendered{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading [%s]", recordPath)
	}
	r := rendered{}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrapf(err, "failed parsing [%s]", recordPath)
	}
	return r, nil
}

func (r rendered) save(recordPath string) error {
	raw, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling [%s]", recordPath)
	}
	return errors.Wrapf(os.WriteFile(recordPath, raw, 0o644), "failed writing [%s]", recordPath)
}

// Render writes the output of render to path and records its fingerprint in
// recordPath. An existing file is replaced only if it still holds what a
// previous Render wrote: files edited by hand, or not written by Render, are
// kept as they are.
func Render(recordPath, path string, render func(w io.Writer) error) error {
	op := "render " + path
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}
	want, err := Fingerprint(buf.Bytes())
	if err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}
	record, err := loadRendered(recordPath)
	if err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}
	name := filepath.Base(path)

	current, err := os.ReadFile(path)
	switch {
	case err == nil:
		got, err := Fingerprint(current)
		if err != nil {
			return api.NewError(api.ErrArtifactGenerationFailed, op, err)
		}
		if got == want {
			logger.Debugf("[%s] is up to date", path)
			break
		}
		if record[name] != got {
			logger.Warnf("[%s] was not written by fabnet or has been edited, keeping it", path)
			return nil
		}
		fallthrough
	case os.IsNotExist(err):
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return api.NewError(api.ErrArtifactGenerationFailed, op, err)
		}
		logger.Infof("rendered [%s]", path)
	default:
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}

	record[name] = want
	if err := record.save(recordPath); err != nil {
		return api.NewError(api.ErrArtifactGenerationFailed, op, err)
	}
	return nil
}

// RemoveRendered removes the files recorded in recordPath that still hold what
// Render wrote, then the record itself. Edited files are kept. It returns the
// removed configuration files.
func RemoveRendered(recordPath string) ([]string, error) {
	record, err := loadRendered(recordPath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)

	var removed []string
	dir := filepath.Dir(recordPath)
	for _, name := range names {
		path := filepath.Join(dir, name)
		current, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, errors.Wrapf(err, "failed reading [%s]", path)
		}
		if got, err := Fingerprint(current); err != nil || got != record[name] {
			logger.Infof("keeping edited [%s]", path)
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, errors.Wrapf(err, "failed removing [%s]", path)
		}
		removed = append(removed, path)
	}
	if err := os.Remove(recordPath); err != nil && !os.IsNotExist(err) {
		return removed, errors.Wrapf(err, "failed removing [%s]", recordPath)
	}
	return removed, nil
}

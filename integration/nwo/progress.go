/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nwo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Progress records the steps completed against a workspace, so that an interrupted
// bootstrap can be resumed.
type Progress struct {
	RunID     string    `yaml:"run_id"`
	Network   string    `yaml:"network"`
	Completed []string  `yaml:"completed"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// LoadProgress reads the progress file at path. A missing file is an empty progress.
func LoadProgress(path string) (*Progress, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Progress{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading progress [%s]", path)
	}
	p := &Progress{}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, errors.Wrapf(err, "failed parsing progress [%s]", path)
	}
	return p, nil
}

func (p *Progress) Done(step string) bool {
	for _, s := range p.Completed {
		if s == step {
			return true
		}
	}
	return false
}

func (p *Progress) MarkDone(step string) {
	if !p.Done(step) {
		p.Completed = append(p.Completed, step)
	}
	p.UpdatedAt = time.Now().UTC()
}

// Save writes the progress atomically.
func (p *Progress) Save(path string) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling progress")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "failed saving progress")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed saving progress")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed saving progress")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed saving progress")
}

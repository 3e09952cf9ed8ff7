/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nwo

import (
	"context"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/pkg/errors"
)

const (
	ArtifactsStep        = "artifacts"
	NetworkUpStep        = "network-up"
	ChannelBootstrapStep = "channel-bootstrap"
	ChaincodeDeployStep  = "chaincode-deploy"
	SmokeTestStep        = "smoke-test"
)

// Step is a node of the bootstrap graph. Run records partial failures in the report
// and returns an error only when the remaining steps cannot proceed.
type Step struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context, report *api.Report) error
}

// Order returns the steps sorted so that every step follows its dependencies.
// Independent steps keep their declaration order.
func Order(steps []Step) ([]Step, error) {
	g, err := newGraph(steps)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		if err := g.visit(s.Name); err != nil {
			return nil, err
		}
	}
	return g.sorted, nil
}

// Closure returns target and its transitive dependencies, in execution order.
func Closure(steps []Step, target string) ([]Step, error) {
	g, err := newGraph(steps)
	if err != nil {
		return nil, err
	}
	if _, ok := g.byName[target]; !ok {
		return nil, errors.Errorf("step [%s] not found", target)
	}
	if err := g.visit(target); err != nil {
		return nil, err
	}
	return g.sorted, nil
}

const (
	visiting = iota + 1
	visited
)

type graph struct {
	byName map[string]Step
	state  map[string]int
	sorted []Step
}

func newGraph(steps []Step) (*graph, error) {
	g := &graph{byName: map[string]Step{}, state: map[string]int{}}
	for _, s := range steps {
		if _, ok := g.byName[s.Name]; ok {
			return nil, errors.Errorf("duplicate step [%s]", s.Name)
		}
		g.byName[s.Name] = s
	}
	for _, s := range steps {
		for _, d := range s.DependsOn {
			if _, ok := g.byName[d]; !ok {
				return nil, errors.Errorf("step [%s] depends on unknown step [%s]", s.Name, d)
			}
		}
	}
	return g, nil
}

func (g *graph) visit(name string) error {
	switch g.state[name] {
	case visited:
		return nil
	case visiting:
		return errors.Errorf("dependency cycle through step [%s]", name)
	}
	g.state[name] = visiting
	for _, d := range g.byName[name].DependsOn {
		if err := g.visit(d); err != nil {
			return err
		}
	}
	g.state[name] = visited
	g.sorted = append(g.sorted, g.byName[name])
	return nil
}

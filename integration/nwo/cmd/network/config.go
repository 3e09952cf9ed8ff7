/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"strings"

	"github.com/hyperledger-labs/fabnet/integration/nwo/fabric/topology"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "FABNET"

// NewViper returns a viper instance reading FABNET_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadTopology reads the topology file at path, the default two organization network
// when path is empty. Keys present in the file can be overridden by FABNET_<KEY>
// variables, nested keys joined by underscores (FABNET_ORDERER_PORT).
func LoadTopology(path string) (*topology.Topology, error) {
	if len(path) == 0 {
		return topology.NewDefault(), nil
	}

	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed reading topology [%s]", path)
	}

	t := &topology.Topology{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           t,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrapf(err, "failed decoding topology [%s]", path)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

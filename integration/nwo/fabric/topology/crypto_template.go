/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package topology

import (
	"io"
	"text/template"

	"github.com/pkg/errors"
)

const DefaultCryptoTemplate = `---
OrdererOrgs:
- Name: Orderer
  Domain: {{ .Orderer.Domain }}
  EnableNodeOUs: false
  Specs:
  - Hostname: {{ .Orderer.Name }}
    SANS:
    - localhost
    - 127.0.0.1

PeerOrgs:{{ range .Organizations }}
- Name: {{ .MSPID | trimMSP }}
  Domain: {{ .Domain }}
  EnableNodeOUs: true
  Specs:{{ range .Peers }}
  - Hostname: {{ .Name }}
    SANS:
    - localhost
    - 127.0.0.1
  {{- end }}
  Users:
    Count: {{ .Users }}
{{- end }}
`

// GenerateCryptoConfig renders the cryptogen input describing the orderer and
// every peer organization of the topology.
func (t *Topology) GenerateCryptoConfig(w io.Writer) error {
	tmpl, err := template.New("crypto").Funcs(template.FuncMap{
		"trimMSP": func(mspID string) string {
			if len(mspID) > 3 && mspID[len(mspID)-3:] == "MSP" {
				return mspID[:len(mspID)-3]
			}
			return mspID
		},
	}).Parse(DefaultCryptoTemplate)
	if err != nil {
		return errors.Wrapf(err, "failed parsing crypto template")
	}
	if err := tmpl.Execute(w, t); err != nil {
		return errors.Wrapf(err, "failed rendering crypto config")
	}
	return nil
}

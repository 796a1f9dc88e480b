/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package workload

import (
	"time"
)

const WorkloadHelp = `---

workload:
	this program attacks a commitment server at a constant rate and prints
	a latency report once the attack is over.

kinds:
	add    POST random values to /api/v1/commitments
	proof  GET proofs of the commitments already in the server

examples:
	# 100 adds per second during 30 seconds
	commitd workload --kind add --rate 100 --duration 30s

	# proofs against a protected server
	commitd workload --kind proof --api-key my-key --endpoint http://10.0.0.1:8800
`

// Kinds of load.
const (
	KindAdd   = "add"
	KindProof = "proof"
)

type Config struct {
	// general conf
	Endpoint string `desc:"The endpoint to make the load"`
	APIKey   string `desc:"API key of the server"`
	Insecure bool   `desc:"Allow self-signed TLS certificates"`
	Log      string `desc:"Set log level to info, error or debug"`

	// stress conf
	Kind        string        `desc:"The kind of load to execute: add or proof"`
	Rate        int           `desc:"Requests per second"`
	Duration    time.Duration `desc:"Duration of the attack"`
	Workers     uint64        `desc:"Initial number of workers of the attack"`
	Connections int           `desc:"Maximum idle open connections per host"`
	Timeout     time.Duration `desc:"Timeout of every request"`
	ValueSize   int           `desc:"Size in bytes of the values added"`
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint:    "http://127.0.0.1:8800",
		APIKey:      "",
		Insecure:    false,
		Log:         "info",
		Kind:        KindAdd,
		Rate:        100,
		Duration:    10 * time.Second,
		Workers:     8,
		Connections: 16,
		Timeout:     30 * time.Second,
		ValueSize:   32,
	}
}

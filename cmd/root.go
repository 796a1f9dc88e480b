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

// Package cmd implements the command line commands of commitd.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Context key type to be used when adding values to context
// as per documentation:
//	https://golang.org/pkg/context/#example_WithValue
type k string

var Root *cobra.Command = &cobra.Command{
	Use:   "commitd",
	Short: "Merkle commitment service",
	Long: `commitd keeps an append-only log of values committed into a Merkle tree
and serves inclusion proofs for them. This command exposes the server, a
client and a workload tool.`,
	// SilenceUsage is set to true -> https://github.com/spf13/cobra/issues/340
	SilenceUsage:      true,
	PersistentPreRunE: runLoadConfig,
}

var Ctx context.Context = context.Background()

var rootCtx = &cmdContext{}

func init() {
	// config files apply to every subcommand even when it has its own hooks
	cobra.EnableTraverseRunHooks = true

	f := Root.PersistentFlags()
	f.StringVar(&rootCtx.configFile, "config-file", defaultConfigFile, "Path to a YAML, JSON or TOML config file")
	f.BoolVar(&rootCtx.disableConfig, "no-conf", false, "Ignore the config file")
}

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

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/octago/sflags/gen/gpflag"
	"github.com/spf13/cobra"

	"github.com/bbva/commitd/client"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

var clientCmd *cobra.Command = &cobra.Command{
	Use:   "client",
	Short: "Provides access to the commitment client commands",
	Long: `Client process to commit values into a commitment server and to fetch
and verify their inclusion proofs.`,
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := clientCtx.Value(k("client.config")).(*client.Config)
		if err := urlParse(config.Endpoint); err != nil {
			return err
		}
		log.SetDefault(newLogger("client", config.Log))
		return nil
	},
}

var clientCtx context.Context = configClient()

func init() {
	Root.AddCommand(clientCmd)
}

func configClient() context.Context {

	conf := client.DefaultConfig()

	err := gpflag.ParseTo(conf, clientCmd.PersistentFlags())
	if err != nil {
		panic(fmt.Sprintf("Unable to parse client config: %v", err))
	}
	return context.WithValue(Ctx, k("client.config"), conf)
}

func newClient() (*client.HTTPClient, error) {
	config := clientCtx.Value(k("client.config")).(*client.Config)
	return client.NewHTTPClientFromConfig(config)
}

func parseIndex(arg string) (uint64, error) {
	index, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: must be a non negative integer", arg)
	}
	return index, nil
}

func printProof(out io.Writer, p *protocol.Proof) {
	fmt.Fprintf(out, "Index: %d\n", p.Index)
	fmt.Fprintf(out, "Value: %x\n", []byte(p.Value))
	fmt.Fprintf(out, "Root: %x\n", []byte(p.Root))
	fmt.Fprintf(out, "Path:\n")
	for i, e := range p.Proof {
		side := "right"
		if e.IsLeft {
			side = "left"
		}
		fmt.Fprintf(out, "  %d: %s %s\n", i, hex.EncodeToString(e.Hash), side)
	}
}

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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bbva/commitd/protocol"
)

var clientProofCmd *cobra.Command = &cobra.Command{
	Use:   "proof INDEX",
	Short: "Get the inclusion proof of the commitment at an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientProof,
}

var clientVerifyCmd *cobra.Command = &cobra.Command{
	Use:   "verify",
	Short: "Verify a JSON proof read from a file or the standard input",
	Args:  cobra.NoArgs,
	RunE:  runClientVerify,
}

var (
	clientProofJSON   bool
	clientVerifyFile  string
	clientVerifyLocal bool
)

func init() {
	clientProofCmd.Flags().BoolVar(&clientProofJSON, "json", false, "Print the proof as JSON, ready to be verified")

	clientVerifyCmd.Flags().StringVar(&clientVerifyFile, "file", "-", "File holding the proof, - for the standard input")
	clientVerifyCmd.Flags().BoolVar(&clientVerifyLocal, "local", false, "Verify the proof without contacting the server")

	clientCmd.AddCommand(clientProofCmd, clientVerifyCmd)
}

func runClientProof(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	p, err := c.Proof(cmd.Context(), index)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if clientProofJSON {
		encoded, err := protocol.Encode(protocol.ContentTypeJSON, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(encoded))
		return nil
	}
	printProof(out, p)
	return nil
}

func runClientVerify(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if clientVerifyFile != "-" {
		f, err := os.Open(clientVerifyFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	var p protocol.Proof
	if err := protocol.Decode(protocol.ContentTypeJSON, data, &p); err != nil {
		return fmt.Errorf("invalid proof: %v", err)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var valid bool
	if clientVerifyLocal {
		valid = c.VerifyLocally(&p)
	} else {
		valid, err = c.Verify(cmd.Context(), &p)
		if err != nil {
			return err
		}
	}

	if !valid {
		fmt.Fprintf(cmd.OutOrStdout(), "Proof of commitment %d is NOT valid\n", p.Index)
		return fmt.Errorf("invalid proof")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Proof of commitment %d is valid\n", p.Index)
	return nil
}

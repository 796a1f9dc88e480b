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
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var clientAddCmd *cobra.Command = &cobra.Command{
	Use:   "add",
	Short: "Commit a value into the commitment server",
	RunE:  runClientAdd,
}

var (
	clientAddValue  string
	clientAddHex    bool
	clientAddVerify bool
)

func init() {

	clientAddCmd.Flags().StringVar(&clientAddValue, "value", "", "Value to commit")
	clientAddCmd.Flags().BoolVar(&clientAddHex, "hex", false, "Decode the value as hex before committing it")
	clientAddCmd.Flags().BoolVar(&clientAddVerify, "verify", false, "Fetch and verify the proof of the new commitment")
	_ = clientAddCmd.MarkFlagRequired("value")

	clientCmd.AddCommand(clientAddCmd)
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	if clientAddValue == "" {
		return fmt.Errorf("value must not be empty")
	}

	value := []byte(clientAddValue)
	if clientAddHex {
		decoded, err := hex.DecodeString(clientAddValue)
		if err != nil {
			return fmt.Errorf("invalid hex value: %v", err)
		}
		value = decoded
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	if clientAddVerify {
		p, err := c.AddAndVerify(cmd.Context(), value)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Committed and verified value at index %d\n", p.Index)
		printProof(out, p)
		return nil
	}

	res, err := c.Add(cmd.Context(), value)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Index: %d\n", res.Index)
	fmt.Fprintf(out, "Root: %x\n", []byte(res.MerkleRoot))
	return nil
}

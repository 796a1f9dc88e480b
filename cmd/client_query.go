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

	"github.com/spf13/cobra"
)

var clientGetCmd *cobra.Command = &cobra.Command{
	Use:   "get INDEX",
	Short: "Get the commitment at an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientGet,
}

var clientListCmd *cobra.Command = &cobra.Command{
	Use:   "list",
	Short: "List every commitment in index order",
	Args:  cobra.NoArgs,
	RunE:  runClientList,
}

var clientRootCmd *cobra.Command = &cobra.Command{
	Use:   "root",
	Short: "Get the current root of the tree",
	Args:  cobra.NoArgs,
	RunE:  runClientRoot,
}

func init() {
	clientCmd.AddCommand(clientGetCmd, clientListCmd, clientRootCmd)
}

func runClientGet(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Get(cmd.Context(), index)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index: %d\n", res.Index)
	fmt.Fprintf(out, "Value: %x\n", []byte(res.Value))
	fmt.Fprintf(out, "Root: %x\n", []byte(res.MerkleRoot))
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, commitment := range res.Commitments {
		fmt.Fprintf(out, "%d\t%x\t%x\n", commitment.Index, []byte(commitment.Value), []byte(commitment.MerkleRoot))
	}
	fmt.Fprintf(out, "Count: %d\n", res.Count)
	return nil
}

func runClientRoot(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Root(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Root: %x\n", []byte(res.Root))
	fmt.Fprintf(out, "Commitments: %d\n", res.CommitmentCount)
	return nil
}

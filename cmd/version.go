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
	"runtime"

	"github.com/spf13/cobra"
)

var (
	releaseVersion = "dev"
	releaseCommit  = "none"
	releaseDate    = "unknown"
)

// SetReleaseInfo records the build information printed by the version
// command and reported by the server.
func SetReleaseInfo(version, commit, date string) {
	releaseVersion = version
	releaseCommit = commit
	releaseDate = date
}

var versionCmd *cobra.Command = &cobra.Command{
	Use:   "version",
	Short: "Print the version of commitd",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "commitd %s (commit %s, built %s, %s)\n",
			releaseVersion, releaseCommit, releaseDate, runtime.Version())
	},
}

func init() {
	Root.AddCommand(versionCmd)
}

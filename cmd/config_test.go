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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/octago/sflags/gen/gpflag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/bbva/commitd/server"
)

const testConfig = `
server:
  api-addr: 127.0.0.1:9000
  storage: badger
  max-value-size: 2048
  shutdown-timeout: 3s
client:
  endpoint: http://10.0.0.1:8800
`

func TestApplyConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(testConfig)))

	conf := server.DefaultConfig()
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	require.NoError(t, gpflag.ParseTo(conf, fs))
	require.NoError(t, fs.Parse([]string{"--storage", "memory"}))

	require.NoError(t, applyConfig(v, "server", fs))

	require.Equal(t, "127.0.0.1:9000", conf.APIAddr, "Values in the file should be applied")
	require.Equal(t, 2048, conf.MaxValueSize)
	require.Equal(t, 3*time.Second, conf.ShutdownTimeout)
	require.Equal(t, server.StorageMemory, conf.Storage, "Flags in the command line should win")
	require.Equal(t, server.DefaultConfig().Hasher, conf.Hasher, "Missing keys should keep their default")
}

func TestApplyConfigInvalidValue(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("server:\n  max-value-size: lots\n")))

	conf := server.DefaultConfig()
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	require.NoError(t, gpflag.ParseTo(conf, fs))

	err := applyConfig(v, "server", fs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.max-value-size")
}

func TestSection(t *testing.T) {
	testCases := []struct {
		cmd      *cobra.Command
		expected string
	}{
		{serverStart, "server"},
		{clientAddCmd, "client"},
		{clientProofCmd, "client"},
		{workloadCmd, "workload"},
		{Root, "commitd"},
	}

	for i, c := range testCases {
		require.Equalf(t, c.expected, section(c.cmd), "Wrong section in test case %d", i)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commitd.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))

	conf := server.DefaultConfig()
	cmd := &cobra.Command{Use: "start"}
	require.NoError(t, gpflag.ParseTo(conf, cmd.Flags()))
	parent := &cobra.Command{Use: "server"}
	parent.AddCommand(cmd)
	(&cobra.Command{Use: "commitd"}).AddCommand(parent)

	defer func(previous cmdContext) { *rootCtx = previous }(*rootCtx)

	rootCtx.configFile = path
	rootCtx.disableConfig = true
	require.NoError(t, runLoadConfig(cmd, nil))
	require.Equal(t, server.DefaultConfig().APIAddr, conf.APIAddr, "Config should be ignored when disabled")

	rootCtx.disableConfig = false
	require.NoError(t, runLoadConfig(cmd, nil))
	require.Equal(t, "127.0.0.1:9000", conf.APIAddr)
	require.Equal(t, server.StorageBadger, conf.Storage)

	rootCtx.configFile = filepath.Join(t.TempDir(), "missing.yml")
	require.NoError(t, runLoadConfig(cmd, nil), "A missing default config file is not an error")
}

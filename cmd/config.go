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
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultConfigFile = "~/.commitd.yml"

// runLoadConfig reads the config file, if any, and applies the section of
// the running command to the flags not given in the command line:
//
//	server:
//	  api-addr: 127.0.0.1:8800
//	  storage: badger
//	client:
//	  endpoint: http://127.0.0.1:8800
func runLoadConfig(cmd *cobra.Command, args []string) error {
	if rootCtx.disableConfig {
		return nil
	}

	path, err := homedir.Expand(rootCtx.configFile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if cmd.Flags().Changed("config-file") {
			return fmt.Errorf("config file %s not found", path)
		}
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "unable to read config file %s", path)
	}
	return applyConfig(v, section(cmd), cmd.Flags())
}

// section returns the name of the top level command cmd belongs to.
func section(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// applyConfig sets every flag of fs not changed in the command line to the
// value found under section in v. Flags given in the command line win.
func applyConfig(v *viper.Viper, section string, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		key := section + "." + f.Name
		if !v.IsSet(key) {
			return
		}
		if setErr := fs.Set(f.Name, v.GetString(key)); setErr != nil {
			err = errors.Wrapf(setErr, "invalid value for %s in config file", key)
		}
	})
	return err
}

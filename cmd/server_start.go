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
	"github.com/spf13/cobra"

	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/server"
)

var serverStart *cobra.Command = &cobra.Command{
	Use:   "start",
	Short: "Starts the commitment service",
	RunE:  runServerStart,
}

func init() {
	serverCmd.AddCommand(serverStart)
}

func runServerStart(cmd *cobra.Command, args []string) error {
	conf := serverCtx.Value(k("server.config")).(*server.Config)
	conf.Version = releaseVersion

	if err := urlParseNoSchemaRequired(conf.APIAddr); err != nil {
		return err
	}
	if conf.MetricsAddr != "" {
		if err := urlParseNoSchemaRequired(conf.MetricsAddr); err != nil {
			return err
		}
	}

	logger := newLogger("commitd", conf.Log)
	log.SetDefault(logger)
	logger.Debugf("Server configuration: %+v", *conf)

	srv, err := server.NewServer(conf, logger)
	if err != nil {
		return err
	}

	return srv.Run()
}

func newLogger(name, level string) log.Logger {
	return log.New(&log.LoggerOptions{
		Name:            name,
		IncludeLocation: true,
		Level:           log.LevelFromString(level),
		Output:          log.DefaultOutput,
		TimeFormat:      log.DefaultTimeFormat,
	})
}

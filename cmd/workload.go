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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/octago/sflags/gen/gpflag"
	"github.com/spf13/cobra"

	"github.com/bbva/commitd/metrics"
	"github.com/bbva/commitd/testutils/workload"
)

var workloadCmd *cobra.Command = &cobra.Command{
	Use:              "workload",
	Short:            "Workload tool for the commitment server",
	Long:             workload.WorkloadHelp,
	TraverseChildren: true,
	RunE:             runWorkload,
}

var workloadCtx context.Context

var workloadMetricsAddr string

func init() {
	workloadCtx = workloadConfig()
	workloadCmd.Flags().StringVar(&workloadMetricsAddr, "metrics-addr", "", "Serve the workload metrics on this address (host:port)")
	Root.AddCommand(workloadCmd)
}

func workloadConfig() context.Context {

	conf := workload.DefaultConfig()

	err := gpflag.ParseTo(conf, workloadCmd.PersistentFlags())
	if err != nil {
		panic(fmt.Sprintf("Unable to parse workload config: %v", err))
	}

	return context.WithValue(Ctx, k("workload.config"), conf)
}

func runWorkload(cmd *cobra.Command, args []string) error {
	config := workloadCtx.Value(k("workload.config")).(*workload.Config)

	if err := urlParse(config.Endpoint); err != nil {
		return err
	}

	logger := newLogger("workload", config.Log)
	w := workload.NewWorkload(config, logger)

	if workloadMetricsAddr != "" {
		if err := urlParseNoSchemaRequired(workloadMetricsAddr); err != nil {
			return err
		}
		ms := metrics.NewServer(workloadMetricsAddr, logger)
		ms.Register(w)
		if err := ms.Start(); err != nil {
			return err
		}
		defer func() {
			_ = ms.Shutdown(context.Background())
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := w.Run(ctx)
	if err != nil {
		return err
	}
	return workload.Report(m, cmd.OutOrStdout())
}

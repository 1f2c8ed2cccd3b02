package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/datasource"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/tui"
	"github.com/goliatone/go-formflow/pkg/upload"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		valuesPath string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "fill <schema>",
		Short: "Fill a form interactively and print the submitted values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			applyHeaders(s, a.cfg.Headers)
			values, err := readValues(valuesPath)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: a.cfg.FetchTimeout}
			sources := datasource.NewManager(s.DataSources,
				datasource.WithFetcher(datasource.NewHTTPFetcher(client, a.cfg.FetchTimeout)),
				datasource.WithLogger(a.logger),
			)
			defer sources.Close()
			if err := sources.FetchAll(cmd.Context()); err != nil {
				a.logger.Warn("data sources failed", zap.Error(err))
			}

			uploads := upload.NewManager(s.UploadSources,
				upload.WithSender(&upload.HTTPSender{Client: client}),
				upload.WithLogger(a.logger),
			)
			defer uploads.Close()

			sess, err := form.New(s,
				form.WithValues(values),
				form.WithDataSources(sources),
				form.WithUploader(uploads),
				form.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}

			driver := tui.NewSurveyDriver()
			driver.Out = cmd.ErrOrStderr()
			runner := tui.New(
				tui.WithPromptDriver(driver),
				tui.WithOutputFormat(tui.OutputFormat(a.cfg.Output)),
				tui.WithLogger(a.logger),
			)
			out, err := runner.Run(cmd.Context(), sess)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, out, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Values written to %s\n", outPath)
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON file with initial values")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (stdout if empty)")
	cmd.Flags().Duration("fetch-timeout", 0, "timeout for data source and upload requests")
	return cmd
}

// applyHeaders adds configured headers to every data and upload source that
// does not set them itself.
func applyHeaders(s *schema.Schema, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	merge := func(dst map[string]string) map[string]string {
		if dst == nil {
			dst = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			if _, ok := dst[k]; !ok {
				dst[k] = v
			}
		}
		return dst
	}
	for i := range s.DataSources {
		s.DataSources[i].Headers = merge(s.DataSources[i].Headers)
	}
	for i := range s.UploadSources {
		s.UploadSources[i].Headers = merge(s.UploadSources[i].Headers)
	}
}

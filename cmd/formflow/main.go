// Command formflow loads, converts, validates and fills schema-driven forms.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// app carries state shared by every subcommand once the root pre-run hook
// has loaded configuration.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "formflow",
		Short: "Schema-driven forms: defaults, conditions, validation and steps",
		Long: `formflow works with JSON or YAML form schemas.

It resolves default values, checks schemas and submitted values, converts
builder documents, imports OpenAPI request bodies and fills forms
interactively on the terminal or over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := logging.New(cfg.Verbose, cfg.LogEncoding)
			if err != nil {
				return err
			}
			a.logger = logger
			if cfg.File != "" {
				a.logger.Debug("config loaded", zap.String("file", cfg.File))
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default formflow.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringP("output", "o", config.DefaultOutput, "output format for filled values: json, form or pretty")
	flags.String("log-encoding", config.DefaultLogEncoding, "log encoding: json or console")

	root.AddCommand(
		newDefaultsCmd(a),
		newValidateCmd(a),
		newConvertCmd(a),
		newImportCmd(a),
		newFillCmd(a),
		newServeCmd(a),
	)
	return root
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// loadSchema reads a schema from a file path or an http(s) URL. URL fetches
// honour the configured fetch timeout.
func (a *app) loadSchema(ctx context.Context, location string) (*schema.Schema, error) {
	if !schema.IsURL(location) {
		return schema.LoadFile(location)
	}
	client := &http.Client{}
	if a.cfg != nil {
		client.Timeout = a.cfg.FetchTimeout
	}
	a.logger.Debug("fetching schema", zap.String("url", location))
	return schema.LoadURL(ctx, client, location)
}

// readValues decodes a JSON object of initial values. An empty path yields
// nil.
func readValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values %s: %w", path, err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode values %s: %w", path, err)
	}
	return values, nil
}

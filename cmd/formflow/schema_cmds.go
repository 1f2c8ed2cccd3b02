package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/converter"
	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var errInvalid = errors.New("validation failed")

func newDefaultsCmd(a *app) *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "defaults <schema>",
		Short: "Print the initial value map of a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if issues := schema.Check(s); len(issues) > 0 {
				return fmt.Errorf("%s: %w", args[0], issues[0])
			}
			overrides, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), defaults.Resolve(s, overrides))
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON file with values merged over the defaults")
	return cmd
}

// validateReport is printed by the validate command.
type validateReport struct {
	Valid    bool              `json:"valid"`
	Issues   []schema.Issue    `json:"issues,omitempty"`
	Warnings []schema.Issue    `json:"warnings,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check a schema and, with --values, the field errors of a value set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report := validateReport{Issues: schema.Check(s), Warnings: schema.Lint(s)}
			if len(report.Issues) == 0 && valuesPath != "" {
				values, err := readValues(valuesPath)
				if err != nil {
					return err
				}
				sess, err := form.New(s, form.WithValues(values), form.WithLogger(a.logger))
				if err != nil {
					return err
				}
				report.Errors = sess.Validate()
			}
			report.Valid = len(report.Issues) == 0 && len(report.Errors) == 0
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Valid {
				a.logger.Debug("validation failed",
					zap.Int("issues", len(report.Issues)),
					zap.Int("field_errors", len(report.Errors)),
				)
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON file with values to validate")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var checkOnly bool
	cmd := &cobra.Command{
		Use:   "convert <document>",
		Short: "Convert a builder document into a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			s, res := converter.Convert(raw)
			if checkOnly || !res.Valid {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Valid {
					return errInvalid
				}
				return nil
			}
			a.logger.Debug("document converted",
				zap.Int("steps", len(s.Steps)),
				zap.Int("sections", len(s.Sections)),
			)
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only report the validation result")
	return cmd
}

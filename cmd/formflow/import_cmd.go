package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/openapi"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		operationID string
		list        bool
		external    bool
	)
	cmd := &cobra.Command{
		Use:   "import-openapi <document>",
		Short: "Map the request body of an OpenAPI operation onto a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			importer := openapi.NewImporter(
				openapi.WithExternalRefs(external),
				openapi.WithLogger(a.logger),
			)

			if list {
				ops, err := importer.Operations(cmd.Context(), raw)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, op := range ops {
					body := ""
					if op.HasBody() {
						body = "body"
					}
					fmt.Fprintf(tw, "%s\t%s %s\t%s\n", op.ID, op.Method, op.Path, body)
				}
				return tw.Flush()
			}

			if operationID == "" {
				return errors.New("--operation is required unless --list is set")
			}
			s, err := importer.Import(cmd.Context(), raw, operationID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().StringVar(&operationID, "operation", "", "operation id to import")
	cmd.Flags().BoolVar(&list, "list", false, "list the document's operations")
	cmd.Flags().BoolVar(&external, "external-refs", false, "allow references to external documents")
	return cmd
}

package cmd

import (
	"fmt"
	"io"

	"github.com/nao1215/schemagate/internal/schema"
	"github.com/spf13/cobra"
)

func newValidateCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the schema directory",
		Long: `Load the schema directory and print every route and every problem found.

Exits with a non-zero status when a directory has no schema.json or when a
schema.json / options.json file is malformed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, map[string]string{"schemas.dir": "schemas"})
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Log.SlogLevel())

			result, err := loadSchemas(logger, cfg.Schemas.Dir, false)
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), result.Routes)
			if result.HasProblems() {
				return fmt.Errorf("スキーマディレクトリに %d 件の問題があります", len(result.Problems))
			}
			return nil
		},
	}
	cmd.Flags().String("schemas", "", "schema directory (default: ./schemas)")
	return cmd
}

// printRoutes はルートの一覧を1行1ルートで出力する。
func printRoutes(w io.Writer, routes []schema.RouteDefinition) {
	for _, def := range routes {
		line := fmt.Sprintf("%-6s %s", def.Method, def.Route)
		if !def.AccessControl.IsZero() {
			line += " [access]"
		}
		if def.Forward != nil {
			line += fmt.Sprintf(" -> %s %s", def.Forward.Method, def.Forward.Address)
		}
		fmt.Fprintln(w, line)
	}
}

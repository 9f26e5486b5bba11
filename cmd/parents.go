package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Purewee/gerar-admin/internal/category"
	"github.com/spf13/cobra"
)

func newParentsCmd() *cobra.Command {
	var (
		id     int64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "parents <categories.json>",
		Short: "List the categories a category may be moved under",
		Long: `Reads a category list (a bare JSON array or the API's {"success","data"}
envelope, flat or nested) and prints every category that can become the
parent of --id without creating a cycle. Without --id every category is
listed, as when creating a new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open categories: %w", err)
			}
			defer f.Close()

			categories, err := category.Decode(f)
			if err != nil {
				return err
			}
			options := category.ParentOptions(categories, id)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(options)
			}
			for _, c := range options {
				fmt.Fprintf(out, "%6d  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "category being edited (0 = new category)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

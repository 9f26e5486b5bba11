package cmd

import (
	"fmt"

	"github.com/Purewee/gerar-admin/internal/manifest"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest_path>",
		Short: "Check that a manifest only holds persistable, unique URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.ReadJSON(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			problems := manifest.Validate(m)
			if len(problems) == 0 {
				fmt.Fprintln(out, "  ✓ Manifest is valid")
				fmt.Fprintf(out, "  ✓ %d images, %d cropped\n", m.Stats.TotalImages, m.Stats.TotalCropped)
				return nil
			}

			fmt.Fprintf(out, "  ✗ Manifest has %d error(s):\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "    • %s\n", p)
			}
			return fmt.Errorf("validation failed with %d errors", len(problems))
		},
	}
}

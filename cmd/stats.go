package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/Purewee/gerar-admin/internal/manifest"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <manifest_path>",
		Short: "Display statistics for an upload manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.ReadJSON(args[0])
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func printStats(out io.Writer, m *manifest.Manifest) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Manifest version: %d\n", m.Version)
	fmt.Fprintf(out, "  Generated:        %s\n", m.GeneratedAt)
	fmt.Fprintf(out, "  Profile:          %s\n", m.Profile)
	fmt.Fprintf(out, "  Backend:          %s\n", m.Backend)
	fmt.Fprintln(out)

	s := m.Stats
	fmt.Fprintf(out, "  Total images:     %d\n", s.TotalImages)
	fmt.Fprintf(out, "  Cropped:          %d\n", s.TotalCropped)
	fmt.Fprintf(out, "  Skipped:          %d\n", s.Skipped)
	fmt.Fprintf(out, "  Uploaded size:    %s\n", formatBytes(s.TotalBytes))
	fmt.Fprintln(out)

	type formatStat struct {
		count int
		bytes int64
	}
	formats := map[string]formatStat{}
	for _, img := range m.Images {
		name := img.Format
		if name == "" {
			name = "unknown"
		}
		fs := formats[name]
		fs.count++
		fs.bytes += img.Size
		formats[name] = fs
	}
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "  Format breakdown:")
	for _, name := range names {
		fs := formats[name]
		fmt.Fprintf(out, "    %-8s %4d files  %s\n", name, fs.count, formatBytes(fs.bytes))
	}

	var warnings []string
	for i, img := range m.Images {
		if img.Source == "" {
			warnings = append(warnings, fmt.Sprintf("image[%d] %s has no source (kept from before the session)", i, img.URL))
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Notes (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(out, "    ⚠ %s\n", w)
		}
	}
	fmt.Fprintln(out)
}

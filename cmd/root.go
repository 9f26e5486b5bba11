package cmd

import (
	"fmt"
	"runtime"

	"github.com/Purewee/gerar-admin/internal/config"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/spf13/cobra"
)

var Version = "0.1.0"

// app carries what the persistent pre-run resolved to the subcommands.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "gerar-admin",
		Short: "Image upload and crop pipeline for the gerar admin dashboard",
		Long: `gerar-admin pushes product images through the same upload pipeline the
admin dashboard uses: square images are uploaded in one batch, non-square
images are cropped one at a time, and the finalized list keeps the order
in which the files were selected.

Images go either to the admin REST API or straight to a MinIO bucket.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.LogMode = "dev"
			}
			if err := logger.Init(cfg.LogMode); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	cmd.SetVersionTemplate(fmt.Sprintf(
		"gerar-admin %s (%s/%s, %s)\n",
		Version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))

	cmd.AddCommand(newUploadCmd(a))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newParentsCmd())

	return cmd
}

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/configs"
	"github.com/Aman-CERP/docrank/internal/config"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var force, template bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .docrank.yaml with the effective configuration",
		Long: `Write the configuration currently in effect (defaults, user config,
project file and DOCRANK_* overrides) to .docrank.yaml in --config-dir.

With --template, write a commented file listing every key and its default
instead.

An existing file is only replaced with --force; the previous version is kept
as a timestamped backup.`,
		Example: `  docrank init
  docrank init --template
  DOCRANK_STORE_BACKEND=sqlite docrank init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}

			path := filepath.Join(root.configDir, config.ProjectConfigFile)
			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			var backup string
			if template {
				backup, err = config.WriteProjectTemplate(root.configDir, configs.ProjectConfigTemplate)
			} else {
				backup, err = config.WriteProjectConfig(root.configDir, cfg)
			}
			if err != nil {
				return err
			}

			out := newWriter(cmd.OutOrStdout(), root)
			out.Successf("Wrote %s", path)
			if backup != "" {
				out.Status("", "Previous config saved to "+backup)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .docrank.yaml")
	cmd.Flags().BoolVar(&template, "template", false, "Write the commented template instead of the effective config")
	return cmd
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"schem-tracer/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "schem-tracer.json"

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or show detection settings",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default detection config",
	Long: `Write the default detection settings as JSON to --config (or
` + defaultConfigFile + `). An existing file is kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = defaultConfigFile
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective detection config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
}

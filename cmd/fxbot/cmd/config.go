package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxbot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "fxbot.yaml", "output file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "config", "f", "", "config file to validate (required)")
	configValidateCmd.MarkFlagRequired("config")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote default configuration to %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid: %d instruments, %d strategies\n",
		configValidatePath, len(cfg.Instruments), len(cfg.Strategies))
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teranos/ngmigrate/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage ngmigrate configuration",
	Long: `am: manage ngmigrate configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (NGMIGRATE_* prefix)
2. Project config (am.toml, searched upward from the working directory)
3. User config (~/.ngmigrate/am.toml)
4. System config (/etc/ngmigrate/am.toml)
5. Default values

Examples:
  ngmigrate am show                 # Show current configuration
  ngmigrate am show --format json   # Show configuration in JSON format
  ngmigrate am show --sources       # Show where each setting came from
  ngmigrate am validate             # Validate current configuration
  ngmigrate am init ./am.toml       # Write a default configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateTarget(); err != nil {
			pterm.Warning.WithWriter(cmd.OutOrStdout()).Printf("Target not usable for a live run: %v\n", err)
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Configuration is valid")
		return nil
	},
}

var amInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write a configuration file with default values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		am.SetDefaults(v)
		cfg, err := am.LoadWithViper(v)
		if err != nil {
			return err
		}
		if err := cfg.Save(args[0]); err != nil {
			return err
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printf("Wrote %s\n", args[0])
		return nil
	},
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().Bool("sources", false, "Show the source of every setting")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if sources, _ := cmd.Flags().GetBool("sources"); sources {
		rows := [][]string{{"Key", "Value", "Source", "From"}}
		for _, s := range am.Introspect(am.GetViper()) {
			rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
		}
		return pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(rows).Render()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	redacted := *cfg
	redacted.Target.APIKey = ""

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(redacted)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# ngmigrate configuration\n%s", data)
	case "toml":
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# ngmigrate configuration\n%s", data)
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

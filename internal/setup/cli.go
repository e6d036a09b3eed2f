package setup

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the "setup" command tree.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the TrialIQ MCP server with a desktop MCP client",
	}
	cmd.AddCommand(newRegisterCommand(), newStatusCommand())
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add or replace the trialiq entry in the client config",
		Long: `Writes a "trialiq" entry into the client's mcpServers map.

Examples:
  trialiq-mcp setup register
  trialiq-mcp setup register --binary /usr/local/bin/trialiq-mcp --data-dir ~/.trialiq
  trialiq-mcp setup register --store memory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := Register(opts); err != nil {
				return fmt.Errorf("failed to register server: %w", err)
			}
			path := opts.ConfigPath
			if path == "" {
				path, _ = DefaultConfigPath()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\nRestart the client to load the new configuration.\n", ServerName, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "client config file (default: per-OS location)")
	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "server binary (default: trialiq-mcp on PATH, else this executable)")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "value for TRIALIQ_DATA_DIR")
	cmd.Flags().StringVar(&opts.Store, "store", "", "value for TRIALIQ_STORE (sqlite, memory, postgres)")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var configPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered and runnable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				p, err := DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = p
			}
			st, err := Check(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprintf(out, "Config file: %s\n", st.ConfigPath)
			fmt.Fprintf(out, "Registered:  %t\n", st.Registered)
			if st.Registered {
				fmt.Fprintf(out, "Binary:      %s\n", st.BinaryPath)
				if st.DataDir != "" {
					fmt.Fprintf(out, "Data dir:    %s\n", st.DataDir)
				}
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "client config file (default: per-OS location)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	return cmd
}

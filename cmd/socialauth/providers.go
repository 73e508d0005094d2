package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bizhub/socialauth/pkg/auth"
)

func newProvidersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show the configuration status of every social provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			source, _, err := providerSource(cfg)
			if err != nil {
				return err
			}
			registry := auth.NewRegistry(auth.ProviderDeps{Config: source})
			return printStatus(cmd.OutOrStdout(), registry.ProviderStatus(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printStatus(w io.Writer, status map[string]auth.ProviderStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tNAME\tCONFIGURED\tENABLED\tREQUIRED")
	for _, name := range names {
		s := status[name]
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", name, s.DisplayName, s.Configured, s.Enabled, strings.Join(s.RequiredConfig, ","))
	}
	return tw.Flush()
}

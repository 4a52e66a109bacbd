package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/arxaplan/cutout/internal/presets"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPresetsCmd() *cobra.Command {
	var (
		file   string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List AI background presets and the colour palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := presets.Default()
			if file != "" {
				var err error
				if catalog, err = presets.Load(file); err != nil {
					return err
				}
			}

			if asYAML {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(catalog)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tPROMPT")
			for _, bg := range catalog.Backgrounds {
				fmt.Fprintf(w, "%s\t%s\t%s\n", bg.ID, bg.Label, bg.Prompt)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println("\nColours:")
			for _, c := range catalog.Colors {
				fmt.Printf("  %s\n", c)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Presets YAML file to list instead of the built-in one")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the catalog as YAML")

	return cmd
}

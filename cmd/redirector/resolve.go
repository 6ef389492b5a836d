package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/klyr/redirector/internal/gateway"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var configPath string
	var render bool

	cmd := &cobra.Command{
		Use:   "resolve URI...",
		Short: "Show which rule each URI resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gw, err := gateway.New(cfg, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if render {
				for _, uri := range args {
					body, _ := gw.Render(uri)
					if _, err := fmt.Fprintln(out, body); err != nil {
						return err
					}
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URI\tPATTERN\tREPLACEMENT\tSCORE")
			for _, uri := range args {
				res := gw.Rules().Resolve(uri)
				if !res.Matched {
					fmt.Fprintf(tw, "%s\t-\tno match\t-\n", uri)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", uri, res.Rule.Pattern, res.Rule.Replacement, res.Score)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVar(&render, "render", false, "Print the rendered page instead of the matched rule")

	return cmd
}

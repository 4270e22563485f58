package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newConfigsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Inspect region configs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List region configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, _, err := openStores(cfg, logger)
			if err != nil {
				return err
			}
			all, err := configs.LoadAll()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODE\tGLOBAL AREAS\tPAGES")
			for _, c := range all {
				mode := "global"
				if c.UsePageSpecificAreas {
					mode = "per page"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\n", c.Name, mode, len(c.GlobalAreas), c.ConfiguredPages())
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a region config as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, _, err := openStores(cfg, logger)
			if err != nil {
				return err
			}
			c, err := configs.Load(args[0])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	})

	return cmd
}

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Inspect invoice type rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List invoice type rules in match order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rules, err := openStores(cfg, logger)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tKEYWORD\tINCLUDE\tEXCLUDE\tCONFIG\tFLAVOR\tROW TOL")
			for _, r := range rules.Rules() {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%s\t%s\t%s\n",
					r.Type, r.IdentifyingKeyword(), r.IncludePatterns(), r.ExcludePatterns(), r.AreaType, r.DefaultFlavor, r.DefaultRowTol)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "detect PDF...",
		Short: "Detect the invoice type of PDFs without extracting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rules, err := openStores(cfg, logger)
			if err != nil {
				return err
			}
			cls := newClassifier(cfg, rules, logger)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tTYPE\tFLAVOR\tROW TOL\tCONFIG\tERROR")
			for _, p := range args {
				r, err := cls.Classify(ctx, p)
				msg := ""
				if err != nil {
					msg = err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p, r.Type, r.DefaultFlavor, r.DefaultRowTol, r.AreaType, msg)
			}
			return tw.Flush()
		},
	})

	return cmd
}

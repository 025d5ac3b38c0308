package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/patrolaudit/internal/config"
	"github.com/crimson-sun/patrolaudit/internal/connector"
	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/model"
)

func newConfigCmd(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Config loads --config and PATROL_* overrides, validates the result and
prints it. With --save the same YAML is written to a file instead; the
source token is never written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if save != "" {
				if err := cfg.Save(save); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", save)
				return nil
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the effective configuration to this file")
	return cmd
}

func newRosterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "List the phrases, guards and violation types the auditor knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			r, err := roster.New(cfg.Vocabulary)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Round start:     %s\n", r.StartPhrase())
			fmt.Fprintf(w, "Discharge:       %s\n", r.DischargePhrase())
			fmt.Fprintf(w, "Unknown guard:   %s\n", r.UnknownGuard())
			if len(r.HeaderPrefixes()) > 0 {
				fmt.Fprintf(w, "Header prefixes: %s\n", strings.Join(r.HeaderPrefixes(), ", "))
			}
			fmt.Fprintf(w, "\nGuards (%d):\n", len(r.Guards()))
			for _, g := range r.Guards() {
				fmt.Fprintf(w, "  %s\n", g)
			}
			fmt.Fprintln(w, "\nViolation types:")
			for _, k := range model.NonConformityKinds() {
				fmt.Fprintf(w, "  %-20s %s\n", k.String(), k.Label())
			}
			fmt.Fprintf(w, "\nSources: %s\n", strings.Join(connector.Providers(), ", "))
			return nil
		},
	}
}

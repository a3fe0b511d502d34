package main

import (
	"fmt"
	"navguard/internal/config"
	"navguard/pkg/redirect"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// sanitizeCommand prints the safe redirect path each argument resolves to,
// with the decision reason, using the configured redirect rules.
func sanitizeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize [target...]",
		Short: "Shows where redirect targets would send users",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			sanitizer := newSanitizer(cfg)
			accepted := color.New(color.FgGreen, color.Bold).SprintFunc()
			rejected := color.New(color.FgRed, color.Bold).SprintFunc()
			faint := color.New(color.Faint).SprintFunc()

			for _, raw := range args {
				out, reason := sanitizer.Decide(raw)
				verdict := accepted(string(reason))
				if reason != redirect.ReasonAccepted {
					verdict = rejected(string(reason))
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %q %s %s\n", verdict, raw, faint("->"), out)
			}
		},
	}

	return cmd
}

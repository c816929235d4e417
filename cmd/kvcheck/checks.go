package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"kvcheck/internal/checks"
)

// listChecks prints the name and description of every registered check.
func listChecks(w io.Writer) error {
	registry := checks.NewRegistry(checks.DefaultPairTable())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range registry.Names() {
		c, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", c.Name(), c.Description())
	}
	return tw.Flush()
}

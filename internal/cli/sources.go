package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List data sources in fallback priority order",
	RunE:  runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	fmt.Println("Handlers (fallback priority order):")
	for i, name := range registry.Names() {
		fmt.Printf("%d. %s\n", i+1, name)
	}

	metricRoutes, sourceRoutes := routes.Entries()
	if len(metricRoutes) > 0 {
		fmt.Println("\nMetric routes:")
		printRoutes(metricRoutes)
	}
	if len(sourceRoutes) > 0 {
		fmt.Println("\nSource routes:")
		printRoutes(sourceRoutes)
	}
	return nil
}

func printRoutes(table map[string]string) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("- %s -> %s\n", k, table[k])
	}
}

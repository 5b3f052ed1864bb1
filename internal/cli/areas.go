package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertsoden/naturewatch-go/internal/db"
)

var areasCmd = &cobra.Command{
	Use:   "areas [name]",
	Short: "List known areas or resolve one by name",
	Long: `List the named areas resolvable from the spatial database, or look a
single one up and show its bounding box.

Examples:
  naturewatch areas
  naturewatch areas Algonquin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAreas,
}

func runAreas(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		aoi, err := dbClient.LookupArea(ctx, args[0])
		if errors.Is(err, db.ErrAreaNotFound) {
			fmt.Printf("No area matches %q.\n", args[0])
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup area: %w", err)
		}

		bounds, err := aoi.Geometry.Bounds()
		if err != nil {
			return fmt.Errorf("area %q has invalid geometry: %w", aoi.Name, err)
		}
		fmt.Printf("%s (%s)\n", aoi.Name, aoi.SourceID)
		fmt.Printf("Bounds: %.4f,%.4f to %.4f,%.4f (lon,lat)\n",
			bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat)
		return nil
	}

	areas, err := dbClient.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("list areas: %w", err)
	}
	if len(areas) == 0 {
		fmt.Println("No areas found. Has the database been loaded?")
		return nil
	}

	fmt.Printf("Areas (%d):\n\n", len(areas))
	for _, a := range areas {
		fmt.Printf("- %s [%s]\n", a.Name, a.Source)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/model"
)

var (
	cacheListState  string
	cacheListCity   string
	cacheListLimit  int
	cacheListOffset int
	cacheGetName    string
	cacheGetCity    string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the persistent geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of cached venues",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\nrecords: %d\n", cfg.Cache.Driver, n)
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached venues",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.List(cmd.Context(), cache.ListFilter{
			State:  strings.ToUpper(cacheListState),
			City:   cacheListCity,
			Limit:  cacheListLimit,
			Offset: cacheListOffset,
		})
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), records)
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print one cached venue as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key := model.VenueKey{Name: cacheGetName, City: cacheGetCity}
		rec, err := st.Get(cmd.Context(), key)
		if err != nil {
			return err
		}
		if rec == nil {
			return eris.Errorf("no cached venue %q in %q", key.Name, key.City)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func openCache(cmd *cobra.Command) (cache.Store, error) {
	if err := cfg.Validate("cache"); err != nil {
		return nil, err
	}
	return initStore(cmd.Context(), cfg.Cache)
}

func printRecords(w io.Writer, records []model.CacheRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCITY\tSTATE\tRATING\tLON\tLAT\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6f\t%.6f\t%s\n",
			r.Name, r.City, r.State, r.Rating, r.Longitude, r.Latitude,
			r.UpdatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheListState, "state", "", "filter by state code")
	cacheListCmd.Flags().StringVar(&cacheListCity, "city", "", "filter by city")
	cacheListCmd.Flags().IntVar(&cacheListLimit, "limit", 100, "maximum records to print")
	cacheListCmd.Flags().IntVar(&cacheListOffset, "offset", 0, "records to skip")

	cacheGetCmd.Flags().StringVar(&cacheGetName, "name", "", "venue name (required)")
	cacheGetCmd.Flags().StringVar(&cacheGetCity, "city", "", "venue city (required)")
	_ = cacheGetCmd.MarkFlagRequired("name")
	_ = cacheGetCmd.MarkFlagRequired("city")

	cacheCmd.AddCommand(cacheStatsCmd, cacheListCmd, cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}

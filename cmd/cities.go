package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var citiesState string

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the cities the directory holds for a state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHarvest(ctx, "cities")
		if err != nil {
			return err
		}
		defer env.Close()

		state := strings.ToUpper(strings.TrimSpace(citiesState))
		if _, ok := env.States.Name(state); !ok {
			return eris.Errorf("unknown state %q", citiesState)
		}

		cities, err := env.Source.ListCities(ctx, state)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range cities {
			fmt.Fprintln(out, c)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d cities in %s\n", len(cities), state)
		return nil
	},
}

func init() {
	citiesCmd.Flags().StringVar(&citiesState, "state", "", "state code (required)")
	_ = citiesCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(citiesCmd)
}

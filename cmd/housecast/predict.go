package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/serving"
)

func (a *app) predictCmd() *cobra.Command {
	var (
		rec   housing.Record
		price int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the price of one listing with the persisted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("price") {
				rec.Price = &price
			}
			schema, err := a.cfg.LoadSchema(a.fs)
			if err != nil {
				return err
			}
			predictor, err := serving.LoadPredictor(a.cfg.Store(a.fs, a.logger), schema, a.logger)
			if err != nil {
				return err
			}
			p, err := predictor.Predict(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Predicted price: %s\n", dollars(p))
			return nil
		},
	}

	cmd.Flags().IntVar(&rec.Beds, "beds", 0, "bedrooms")
	cmd.Flags().IntVar(&rec.Bath, "bath", 0, "bathrooms")
	cmd.Flags().IntVar(&rec.PropertySqft, "sqft", 0, "floor area in square feet")
	cmd.Flags().StringVar(&rec.Locality, "locality", "", "locality, e.g. Brooklyn")
	cmd.Flags().IntVar(&price, "price", 0, "listed price; validated, not used by the model")
	for _, name := range []string{"beds", "bath", "sqft", "locality"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func dollars(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 2)
}

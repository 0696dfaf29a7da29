package cmd

import (
	"context"
	"time"

	"github.com/Vargol/PhotonPump-sub000/asset/reader"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Build the accelerators for a model and display their statistics.
func BuildModel(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing model file argument")
	}

	opts, err := acceleratorOptions(ctx)
	if err != nil {
		return err
	}
	accelType, err := acceleratorType(ctx)
	if err != nil {
		return err
	}

	model, err := reader.ReadModel(ctx.Args().First())
	if err != nil {
		return err
	}

	sc, err := model.Scene(opts, accelType)
	if err != nil {
		return err
	}

	start := time.Now()
	if err = sc.Prepare(context.Background()); err != nil {
		return err
	}
	logger.Noticef("built %s in %d ms; bounds %v - %v", sc, time.Since(start).Nanoseconds()/1e6, sc.Bounds().Min, sc.Bounds().Max)

	stats, err := sc.Stats()
	if err != nil {
		return err
	}
	for index, st := range stats {
		label := "instances"
		if index > 0 {
			label = sc.Geometries()[index-1].Name()
		}
		logger.Noticef("accelerator statistics for %s\n%s", label, st.Table())
	}
	return nil
}

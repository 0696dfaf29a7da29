package main

import (
	"fmt"
	"os"

	"github.com/Vargol/PhotonPump-sub000/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "photonpump"
	app.Usage = "build and benchmark ray intersection accelerators"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build the accelerators for a model and print their statistics",
			Description: `
Parse a wavefront obj model (or a zip archive containing one), build an
accelerator for every mesh and a top-level accelerator for the mesh instances
and display the build statistics.`,
			ArgsUsage: "model.obj",
			Flags:     cmd.AcceleratorFlags(),
			Action:    cmd.BuildModel,
		},
		{
			Name:  "bench",
			Usage: "compare accelerator types on random rays",
			Description: `
Build every accelerator type for the same model, cast random rays through each
one and verify that they all report the same hits as a linear scan. If no model
is specified a cloud of random spheres is generated.`,
			ArgsUsage: "[model.obj]",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "spheres",
					Value: 1000,
					Usage: "number of random spheres to generate when no model is specified",
				},
				cli.IntFlag{
					Name:  "rays",
					Value: 10000,
					Usage: "number of random rays to cast",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of tracer workers; defaults to one per cpu",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random generator seed",
				},
			}, cmd.AcceleratorFlags()...),
			Action: cmd.Bench,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package cmd

import (
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/urfave/cli"
)

var logger = log.New("photonpump")

// Apply the global verbosity flags. -v and -vv take precedence over an
// explicit --log-level.
func setupLogging(ctx *cli.Context) error {
	if name := ctx.GlobalString("log-level"); name != "" {
		level, err := log.ParseLevel(name)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}

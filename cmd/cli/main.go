package main

import (
	"context"
	"log"
	"os"

	"github.com/ptms/syncore/internal/buildinfo"
	"github.com/ptms/syncore/internal/client/cli"
	"github.com/ptms/syncore/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/repair"
	logsvc "github.com/Kingsman71/Binary-Learning/services/logger"
	"github.com/Kingsman71/Binary-Learning/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	stores, err := database.OpenStores(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening %s store: %v", conf.Database.Engine, err), err)
	}

	// start CLI
	cli := commandLine{
		conf:   conf,
		stores: stores,
		jobs:   repair.NewJobs(stores.Applications, stores.Students, logger),
		out:    os.Stdout,
		in:     os.Stdin,
	}
	err = cli.run(os.Args)

	ctx, cancel = context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()
	if cerr := stores.Close(ctx); cerr != nil {
		logger.Error("closing store", cerr)
	}

	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

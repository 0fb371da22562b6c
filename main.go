package main

import (
	"context"
	"fmt"
	"os"

	"finsync/config"
	"finsync/jobs"
	"finsync/pipeline"
	"finsync/reconcile"
	"finsync/table"
	"finsync/ui"
	"finsync/views"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
)

var registry = map[string]func(jobs.Deps) pipeline.Job{
	"portfolio":  jobs.Portfolio,
	"bonds":      jobs.Bonds,
	"prices":     jobs.Prices,
	"operations": jobs.Operations,
	"orders":     jobs.Orders,
	"refresh":    jobs.Refresh,
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: finsync <portfolio|bonds|prices|operations|orders|refresh>")
	os.Exit(2)
}

func main() {
	// a .env is a convenience, not a requirement
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}

	makeJob, ok := registry[os.Args[1]]

	if !ok {
		usage()
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := pgxpool.Connect(ctx, cfg.PostgresURL())

	if err != nil {
		ui.NotifyMsg("error", "connecting to postgres: "+err.Error())
		os.Exit(1)
	}

	defer pool.Close()

	runner := &pipeline.Runner{
		Loader:     table.NewLoader(pool),
		Reconciler: reconcile.NewReconciler(pool),
		Refresher:  views.NewRefresher(pool),
	}

	if err := runner.Run(ctx, makeJob(jobs.Deps{Pool: pool, Cfg: cfg})); err != nil {
		ui.NotifyMsg("error", err.Error())
		os.Exit(1)
	}
}

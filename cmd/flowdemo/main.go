// Command flowdemo runs backpressure scenarios against the flow engine.
//
//	flowdemo -list
//	flowdemo -scenario hot-publisher
//	FLOWDEMO_FLOW_STRATEGY=latest flowdemo -scenario create-with-strategy
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/demandflow/bootstrap"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/executor"
)

const serviceName = "flowdemo"

func main() {
	var (
		scenarioName = flag.String("scenario", "all", "scenario to run, or \"all\"")
		configFile   = flag.String("config", "", "explicit config file")
		delay        = flag.Duration("delay", 50*time.Millisecond, "per-item delay of slow subscribers")
		list         = flag.Bool("list", false, "list scenarios and exit")
		linger       = flag.Duration("linger", 0, "keep the admin server up this long after the scenarios")
	)
	flag.Parse()

	if *list {
		for _, s := range scenarios {
			fmt.Printf("%-28s %s\n", s.name, s.description)
		}
		return
	}

	selected, err := selectScenarios(*scenarioName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts := []config.LoaderOption{config.WithEnvPrefix("FLOWDEMO")}
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	cfg, err := config.Load(serviceName, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	pool := executor.NewPool(executor.PoolConfig{Name: "io", Workers: cfg.Flow.Workers})
	if err := app.RegisterComponent(pool); err != nil {
		app.Logger.Fatal("register pool", map[string]interface{}{"error": err.Error()})
	}
	app.Prometheus.MustRegister(executor.NewPoolCollector(serviceName, pool))

	env := newEnv(app, pool, *delay)
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		for _, s := range selected {
			if err := env.run(ctx, s); err != nil {
				return err
			}
		}
		app.Summary.Render(ctx, os.Stdout, app.Components)
		if app.Admin != nil && *linger > 0 {
			app.Logger.Info("admin server lingering", map[string]interface{}{
				"addr":  app.Admin.Addr(),
				"until": linger.String(),
			})
			sleep(ctx, *linger)
		}
		return nil
	})
	if err != nil {
		app.Logger.Error("flowdemo failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func selectScenarios(name string) ([]scenario, error) {
	if name == "all" {
		return scenarios, nil
	}
	for _, s := range scenarios {
		if s.name == name {
			return []scenario{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q (use -list)", name)
}

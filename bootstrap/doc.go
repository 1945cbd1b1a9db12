// Package bootstrap runs demandflow programs with a uniform lifecycle.
//
// It validates the service configuration, initializes the logger, starts
// OTLP exporters when an endpoint is configured, and starts registered
// components in order before running a finite task. Components are stopped
// in reverse order when the task returns or on SIGINT/SIGTERM.
//
//	cfg, err := config.Load("flowdemo")
//	app, err := bootstrap.NewApp(cfg)
//	pool := executor.NewPool(executor.PoolConfig{Name: "io", Workers: 2})
//	app.RegisterComponent(pool)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := flow.Collect(ctx, publisher)
//	    return err
//	})
package bootstrap

// Command classpath lists the resources a search path exposes below a
// namespace.
//
//	classpath scan io.github.app --path build/classes:lib/app.jar --classes
//	classpath roots io.github.app
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// Command sqlview loads CSV files into a relational engine and runs a
// composed query over them.
//
//	sqlview query --bind people=people.csv \
//	    "SELECT name FROM people WHERE age >= 18 ORDER BY name"
//
// Every input becomes a temporary table and the query a temporary view or
// table; all of them are dropped before the command exits.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

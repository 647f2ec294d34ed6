// Command dbexport builds the mobile inventory database from the two
// compressed CSV exports and publishes it over FTPS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dbexport/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		report(err)
		stop()
		os.Exit(1)
	}
}

// report logs the technical error and prints the mapped message for the operator.
func report(err error) {
	ue := core.NewUserError(err)
	slog.Error("export failed",
		"error", ue.Technical,
		"code", ue.User.Code,
	)
	if core.IsUserFacing(err) {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
}

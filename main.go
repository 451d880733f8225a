package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dareledger/cmd"
	"dareledger/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.WithError(err).Fatal("Migration error")
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "serve":
		err = cmd.Run(ctx)
	case "reconcile":
		err = cmd.RunReconcile(ctx)
	case "resolve-intents":
		err = cmd.RunResolveIntents(ctx)
	default:
		err = fmt.Errorf("unknown command %q; usage: dareledger [serve|reconcile|resolve-intents|migrate]", command)
	}
	if err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: dareledger migrate [up|down|status] [args...]")
	}

	switch os.Args[2] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}

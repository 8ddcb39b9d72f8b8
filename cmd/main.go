package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/farellandr/lanzalife/internal/commands"
	"github.com/farellandr/lanzalife/internal/logging"
	"github.com/farellandr/lanzalife/internal/server"
)

const usage = `Usage: lanzalife [command] [options]

Commands:
  serve         Run the HTTP API (default)
  seed          Load sample activities, places and events (-reset to reload)
  create-user   Create a user, e.g. an Admin (-username NAME -role ROLE)
  consume       Log schedule notifications from RabbitMQ
`

func main() {
	// .env is optional; real environment variables win.
	envErr := godotenv.Load(".env")

	logger := logging.Setup(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("Failed to load .env file")
	}

	command, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}

	var err error
	switch command {
	case "serve":
		err = server.Start(logger)
	case "seed":
		err = commands.RunSeed(args, logger)
	case "create-user":
		err = commands.RunCreateUser(args, logger)
	case "consume":
		err = commands.RunConsume(args, logger)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stderr, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("Command failed")
	}
}

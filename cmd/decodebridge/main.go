// Package main provides the CLI entry point for decodebridge.
package main

import (
	"fmt"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/config"
	"github.com/user/decodebridge/pkg/ports"
)

var version = "dev"

func newApp() *cli.App {
	return &cli.App{
		Name:    "decodebridge",
		Usage:   l10n.T("Decode compressed video streams into raw I420 frames"),
		Version: version,
		Commands: []*cli.Command{
			decodeCommand(),
			genCommand(),
			infoCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err.Error()))
		os.Exit(1)
	}
}

// Flag categories, translated when the flags are built.
const (
	categoryInput   = "Input"
	categoryDecode  = "Decoding"
	categoryOutput  = "Output"
	categoryLogging = "Logging"
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T(categoryLogging),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T(categoryLogging),
		},
	}
}

func newLogger(c *cli.Context, cfg config.Config) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(cfg.Level())
}

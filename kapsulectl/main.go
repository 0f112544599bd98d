package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/client"
	"github.com/KDE/kapsule/internal/rpc"
)

// overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	app := &cli.App{
		Name:  "kapsulectl",
		Usage: "Manage kapsule containers from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "socket",
				Usage:   "path of the kapsule-daemon unix socket (default: /run/kapsule/daemon.sock)",
				EnvVars: []string{"KAPSULE_SOCKET"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout for daemon requests",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path of the config file (default: ~/.config/kapsule/kapsulectl.toml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log verbosity",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List containers",
				Action: listCmd,
			},
			{
				Name:      "create",
				Usage:     "Create a container",
				ArgsUsage: "<container name>",
				Flags:     createFlags(),
				Action:    createCmd,
			},
			{
				Name:      "start",
				Usage:     "Start a container",
				ArgsUsage: "<container name>",
				Action:    startCmd,
			},
			{
				Name:      "stop",
				Usage:     "Stop a container",
				ArgsUsage: "<container name>",
				Action:    stopCmd,
			},
			{
				Name:      "delete",
				Usage:     "Delete a container",
				ArgsUsage: "<container name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "delete the container even if it is running",
					},
				},
				Action: deleteCmd,
			},
			{
				Name:      "enter",
				Usage:     "Attach a shell to a running container",
				ArgsUsage: "<container name>",
				Action:    enterCmd,
			},
			{
				Name:   "schema",
				Usage:  "Show the container creation options offered by the daemon",
				Action: schemaCmd,
			},
			{
				Name:   "events",
				Usage:  "Stream daemon events until interrupted",
				Action: eventsCmd,
			},
			{
				Name:   "version",
				Usage:  "Print client and daemon versions",
				Action: versionCmd,
			},
		},
	}

	err := app.Run(os.Args)
	if err == nil {
		return
	}

	fmt.Fprint(os.Stderr, getErrorString(err))
	os.Exit(1)
}

type appContext struct {
	Client  *client.Client
	Timeout time.Duration
}

func setup(c *cli.Context) (*appContext, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("socket") {
		cfg.Socket = c.String("socket")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logrus.SetLevel(level)

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("parsing timeout: %w", err)
	}
	if c.IsSet("timeout") {
		timeout = c.Duration("timeout")
	}

	return &appContext{
		Client:  client.NewSocket(cfg.Socket, logrus.NewEntry(logrus.StandardLogger())),
		Timeout: timeout,
	}, nil
}

// ctx bounds one daemon exchange with the configured timeout.
func (cc *appContext) ctx(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, cc.Timeout)
}

func requireName(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", errors.New("a container name is required")
	}
	return name, nil
}

func getErrorString(err error) string {
	if errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) {
		return "cannot connect to kapsule-daemon. Is the service running?\n"
	}

	e := &rpc.ErrStatus{}
	if errors.As(err, &e) && e.Message != "" {
		return fmt.Sprintf("error: %s\n", e.Message)
	}

	return fmt.Sprintf("error: %s\n", err)
}

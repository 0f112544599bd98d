package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/rpc"
)

// enterCmd replaces this process with the daemon-provided command that
// attaches a terminal to the container.
func enterCmd(c *cli.Context) error {
	name, err := requireName(c)
	if err != nil {
		return err
	}

	cc, err := setup(c)
	if err != nil {
		return err
	}

	ctx, done := cc.ctx(c)
	defer done()

	info, err := cc.Client.ContainerInfo(ctx, name)
	if rpc.IsNotFound(err) {
		return fmt.Errorf("no such container %q", name)
	}
	if err != nil {
		return err
	}
	if info.State != api.StateRunning {
		return fmt.Errorf("container %q is not running, start it with: kapsulectl start %s", name, name)
	}

	res, err := cc.Client.PrepareEnter(ctx, name)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	if len(res.ExecArgs) == 0 {
		return errors.New("the daemon returned an empty enter command")
	}

	path, err := exec.LookPath(res.ExecArgs[0])
	if err != nil {
		return fmt.Errorf("resolving enter command: %w", err)
	}
	return syscall.Exec(path, res.ExecArgs, os.Environ())
}

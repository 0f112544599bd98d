package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/api"
)

func startCmd(c *cli.Context) error {
	return runAction(c, "started", func(ctx context.Context, cc *appContext, name string) (api.OperationResult, error) {
		return cc.Client.StartContainer(ctx, name)
	})
}

func stopCmd(c *cli.Context) error {
	return runAction(c, "stopped", func(ctx context.Context, cc *appContext, name string) (api.OperationResult, error) {
		return cc.Client.StopContainer(ctx, name)
	})
}

func deleteCmd(c *cli.Context) error {
	return runAction(c, "deleted", func(ctx context.Context, cc *appContext, name string) (api.OperationResult, error) {
		return cc.Client.DeleteContainer(ctx, name, c.Bool("force"))
	})
}

func runAction(c *cli.Context, did string, fn func(context.Context, *appContext, string) (api.OperationResult, error)) error {
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

	res, err := fn(ctx, cc, name)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}

	fmt.Printf("%s container %q\n", did, name)
	return nil
}

func versionCmd(c *cli.Context) error {
	cc, err := setup(c)
	if err != nil {
		return err
	}

	ctx, done := cc.ctx(c)
	defer done()

	fmt.Printf("client version: %s\n", version)

	daemon, err := cc.Client.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("daemon version: %s\n", daemon)
	return nil
}

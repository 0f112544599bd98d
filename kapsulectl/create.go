package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/api"
)

// createFlags spells the daemon's creation options the same way
// CreateSchemaOption.CLIFlag does, so `kapsulectl schema` output maps
// one to one onto these flags.
func createFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "image",
			Usage: "image to create the container from (defaults to the daemon's default image)",
		},
		&cli.BoolFlag{
			Name:  "session-mode",
			Usage: "share the host session bus with the container",
		},
		&cli.BoolFlag{
			Name:  "dbus-mux",
			Usage: "multiplex D-Bus traffic between host and container (implies --session-mode)",
		},
		&cli.BoolFlag{
			Name:  "host-rootfs",
			Usage: "expose the host root filesystem under /run/host",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "mount-home",
			Usage: "bind the user's home directory into the container",
			Value: true,
		},
		&cli.StringSliceFlag{
			Name:  "mount",
			Usage: "bind an extra host directory into the container (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "gpu",
			Usage: "expose GPU devices to the container",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "nvidia-drivers",
			Usage: "bind the host NVIDIA userspace drivers into the container",
			Value: true,
		},
	}
}

func createCmd(c *cli.Context) error {
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

	opts := api.ContainerOptions{
		SessionMode:   c.Bool("session-mode"),
		DbusMux:       c.Bool("dbus-mux"),
		HostRootfs:    c.Bool("host-rootfs"),
		MountHome:     c.Bool("mount-home"),
		CustomMounts:  c.StringSlice("mount"),
		GPU:           c.Bool("gpu"),
		NvidiaDrivers: c.Bool("nvidia-drivers"),
	}

	res, err := cc.Client.CreateContainer(ctx, name, c.String("image"), opts)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}

	fmt.Printf("created container %q\n", name)
	return nil
}

func schemaCmd(c *cli.Context) error {
	cc, err := setup(c)
	if err != nil {
		return err
	}

	ctx, done := cc.ctx(c)
	defer done()

	doc, err := cc.Client.GetCreateSchema(ctx)
	if err != nil {
		return err
	}

	schema := api.ParseCreateSchema(doc)
	if schema.Version == 0 {
		return errors.New("the daemon does not provide a creation schema")
	}

	printSchema(schema, os.Stdout)
	return nil
}

func printSchema(schema api.CreateSchema, w io.Writer) {
	tr := tabwriter.NewWriter(w, 6, 6, 4, ' ', 0)
	fmt.Fprintf(tr, "FLAG\tTYPE\tDEFAULT\tSECTION\tTITLE\n")
	for _, section := range schema.Sections {
		for _, opt := range section.Options {
			fmt.Fprintf(tr, "--%s\t%s\t%s\t%s\t%s\n", opt.CLIFlag(), opt.Type, formatDefault(opt.Default), section.ID, opt.Title)
		}
	}
	tr.Flush()
}

func formatDefault(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/api"
)

func listCmd(c *cli.Context) error {
	cc, err := setup(c)
	if err != nil {
		return err
	}

	ctx, done := cc.ctx(c)
	defer done()

	containers, err := cc.Client.ListContainers(ctx)
	if err != nil {
		return err
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })

	printContainers(containers, os.Stdout)
	return nil
}

func printContainers(containers []api.Container, w io.Writer) {
	tr := tabwriter.NewWriter(w, 6, 6, 4, ' ', 0)
	fmt.Fprintf(tr, "NAME\tSTATE\tIMAGE\tCREATED\tMODE\n")
	for _, c := range containers {
		fmt.Fprintf(tr, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.State, c.Image, transformCreated(c.Created), c.Mode)
	}
	tr.Flush()
}

func transformCreated(created time.Time) string {
	if created.IsZero() {
		return ""
	}
	return units.HumanDuration(time.Since(created)) + " ago"
}

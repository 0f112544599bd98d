package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/stubdaemon"
)

func main() {
	var (
		socket       = flag.String("socket", "/run/kapsule/daemon.sock", "path of the unix socket to serve on")
		addr         = flag.String("addr", "", "(optional) TCP address to serve on instead of the unix socket")
		logLevel     = flag.String("log-level", "info", "log verbosity")
		defaultImage = flag.String("default-image", "", "override the image reported by /v1/config")
		seed         = flag.Int("seed", 0, "number of placeholder containers to start with")
	)
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("parsing log level: %s", err)
	}
	logrus.SetLevel(level)

	svr := stubdaemon.New(logrus.NewEntry(logrus.StandardLogger()))
	if *defaultImage != "" {
		svr.Config["default_image"] = *defaultImage
	}
	for i := 0; i < *seed; i++ {
		svr.Seed(api.Container{
			Name:    fmt.Sprintf("dev-%d", i+1),
			State:   api.StateStopped,
			Image:   svr.Config["default_image"],
			Created: time.Now(),
		})
	}

	network, address := "unix", *socket
	if *addr != "" {
		network, address = "tcp", *addr
	} else if err := os.Remove(*socket); err != nil && !os.IsNotExist(err) {
		logrus.Fatalf("removing stale socket: %s", err)
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		logrus.Fatalf("listening on %s: %s", address, err)
	}
	if network == "unix" {
		if err := os.Chmod(address, 0660); err != nil {
			logrus.Fatalf("setting socket permissions: %s", err)
		}
	}

	logrus.Infof("serving the kapsule daemon API on %s", address)
	if err := http.Serve(listener, svr.Handler()); err != nil {
		logrus.Fatalf("serving the daemon API: %s", err)
	}
}

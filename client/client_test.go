package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/rpc"
	"github.com/KDE/kapsule/internal/stubdaemon"
)

func newTestClient(t *testing.T) (*stubdaemon.Server, *httptest.Server, *Client) {
	daemon := stubdaemon.New(nil)
	daemon.PollTimeout = time.Millisecond * 100
	daemon.SettleDelay = time.Millisecond * 5

	svr := httptest.NewServer(daemon.Handler())
	t.Cleanup(svr.Close)

	return daemon, svr, NewWithTransport(rpc.NewClient(svr.Client(), svr.URL), nil)
}

func TestOperations(t *testing.T) {
	ctx := context.Background()
	daemon, _, cli := newTestClient(t)
	daemon.Seed(api.Container{Name: "seeded", State: api.StateRunning, Image: "img:1", Created: time.Now().UTC().Truncate(time.Second)})

	t.Run("version", func(t *testing.T) {
		version, err := cli.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, daemon.Version, version)
	})

	t.Run("list and info", func(t *testing.T) {
		list, err := cli.ListContainers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Equal(api.Container{Name: "seeded"}))
		assert.Equal(t, api.StateRunning, list[0].State)

		info, err := cli.ContainerInfo(ctx, "seeded")
		require.NoError(t, err)
		assert.Equal(t, "img:1", info.Image)

		_, err = cli.ContainerInfo(ctx, "ghost")
		assert.True(t, rpc.IsNotFound(err))
	})

	t.Run("schema", func(t *testing.T) {
		doc, err := cli.GetCreateSchema(ctx)
		require.NoError(t, err)
		schema := api.ParseCreateSchema(doc)
		assert.Greater(t, schema.Version, 0)
		assert.NotEmpty(t, schema.AllOptions())
	})

	t.Run("config", func(t *testing.T) {
		cfg, err := cli.Config(ctx)
		require.NoError(t, err)
		assert.Equal(t, daemon.Config["default_image"], cfg["default_image"])
	})

	t.Run("create carries the daemon verdict", func(t *testing.T) {
		res, err := cli.CreateContainer(ctx, "dev", "", api.DefaultContainerOptions())
		require.NoError(t, err)
		assert.True(t, res.Success, res.Error)

		res, err = cli.CreateContainer(ctx, "dev", "", api.DefaultContainerOptions())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "already exists")
	})

	t.Run("lifecycle", func(t *testing.T) {
		res, err := cli.StartContainer(ctx, "dev")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		require.Eventually(t, func() bool {
			info, err := cli.ContainerInfo(ctx, "dev")
			return err == nil && info.State == api.StateRunning
		}, time.Second, time.Millisecond*5)

		enter, err := cli.PrepareEnter(ctx, "dev")
		require.NoError(t, err)
		require.True(t, enter.Success, enter.Error)
		assert.NotEmpty(t, enter.ExecArgs)

		res, err = cli.StopContainer(ctx, "dev")
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		res, err = cli.DeleteContainer(ctx, "dev", true)
		require.NoError(t, err)
		assert.True(t, res.Success, res.Error)
	})

	t.Run("missing schema means empty string", func(t *testing.T) {
		daemon.Schema = ""
		doc, err := cli.GetCreateSchema(ctx)
		require.NoError(t, err)
		assert.Empty(t, doc)
	})
}

func TestConnectivity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, svr, cli := newTestClient(t)

	assert.False(t, cli.Connected())
	watch := cli.ConnectivityChanged(ctx)

	_, err := cli.Version(ctx)
	require.NoError(t, err)
	assert.True(t, cli.Connected())
	<-watch

	t.Run("daemon error status proves reachability", func(t *testing.T) {
		_, err := cli.ContainerInfo(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, cli.Connected())
	})

	t.Run("caller cancellation says nothing", func(t *testing.T) {
		gone, done := context.WithCancel(ctx)
		done()
		_, err := cli.ListContainers(gone)
		require.Error(t, err)
		assert.True(t, cli.Connected())
	})

	t.Run("transport failure flips the flag", func(t *testing.T) {
		svr.Close()
		_, err := cli.Version(ctx)
		require.Error(t, err)
		assert.False(t, cli.Connected())
	})
}

func TestReadFailuresSurfaceAsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon, svr, cli := newTestClient(t)
	events := cli.Subscribe(ctx)

	daemon.Fail("list", "backend exploded")
	_, err := cli.ListContainers(ctx)
	require.Error(t, err)

	event := <-events
	assert.Equal(t, api.EventError, event.Kind)
	assert.Contains(t, event.Message, "listing containers")
	assert.Contains(t, event.Message, "backend exploded")

	t.Run("action failures are the caller's to report", func(t *testing.T) {
		svr.Close()
		_, err := cli.StartContainer(ctx, "dev")
		require.Error(t, err)

		select {
		case event := <-events:
			t.Fatalf("unexpected event: %+v", event)
		case <-time.After(time.Millisecond * 50):
		}
	})
}

func TestEventPump(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	daemon, _, cli := newTestClient(t)

	events := cli.Subscribe(ctx)
	go cli.Run(ctx)

	// the cursor-zero sync point resolves connectivity without any other call
	require.Eventually(t, cli.Connected, time.Second, time.Millisecond*5)

	daemon.EmitError("backend exploded")
	event := <-events
	assert.Equal(t, api.EventError, event.Kind)
	assert.Equal(t, "backend exploded", event.Message)

	t.Run("create drives progress and state change through the pump", func(t *testing.T) {
		res, err := cli.CreateContainer(ctx, "dev", "", api.DefaultContainerOptions())
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)

		kinds := map[api.EventKind]int{}
		for i := 0; i < 3; i++ {
			event := <-events
			kinds[event.Kind]++
			if event.Kind == api.EventContainerStateChanged {
				assert.Equal(t, "dev", event.Name)
			}
		}
		assert.Equal(t, 2, kinds[api.EventOperationProgress])
		assert.Equal(t, 1, kinds[api.EventContainerStateChanged])
	})
}

func TestEventPumpDaemonDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svr := httptest.NewServer(stubdaemon.New(nil).Handler())
	cli := NewWithTransport(rpc.NewClient(svr.Client(), svr.URL), nil)
	svr.Close()

	go cli.Run(ctx)
	assert.Never(t, cli.Connected, time.Millisecond*150, time.Millisecond*10)
}

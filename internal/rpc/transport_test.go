package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		Name    string
		Fn      func(*testing.T, *Client)
		Handler httprouter.Handle
	}{
		{
			Name: "decodes json responses",
			Fn: func(t *testing.T, cli *Client) {
				out := map[string]string{}
				require.NoError(t, cli.GET(ctx, "/test", &out))
				assert.Equal(t, map[string]string{"hello": "world"}, out)
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				w.Write([]byte(`{"hello": "world"}`))
			},
		},
		{
			Name: "sends request bodies",
			Fn: func(t *testing.T, cli *Client) {
				require.NoError(t, cli.POST(ctx, "/test", map[string]int{"n": 3}, nil))
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				if r.Header.Get("Content-Type") != "application/json" {
					w.WriteHeader(400)
				}
			},
		},
		{
			Name: "maps structured errors",
			Fn: func(t *testing.T, cli *Client) {
				err := cli.GET(ctx, "/test", nil)
				require.EqualError(t, err, "daemon error status: 409, message: container already exists")
				assert.False(t, IsNotFound(err))
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				w.WriteHeader(409)
				w.Write([]byte(`{"error": "container already exists"}`))
			},
		},
		{
			Name: "maps plain text errors",
			Fn: func(t *testing.T, cli *Client) {
				err := cli.DELETE(ctx, "/test", nil)
				require.EqualError(t, err, "daemon error status: 502, message: bad gateway")
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				w.WriteHeader(502)
				w.Write([]byte("bad gateway\n"))
			},
		},
		{
			Name: "recognizes not found",
			Fn: func(t *testing.T, cli *Client) {
				err := cli.GET(ctx, "/test", nil)
				assert.True(t, IsNotFound(err))
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				w.WriteHeader(404)
			},
		},
		{
			Name: "tolerates 2xx without body",
			Fn: func(t *testing.T, cli *Client) {
				require.NoError(t, cli.POST(ctx, "/test", nil, nil))
			},
			Handler: func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				w.WriteHeader(204)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			router := httprouter.New()
			router.Handle("GET", "/test", test.Handler)
			router.Handle("POST", "/test", test.Handler)
			router.Handle("DELETE", "/test", test.Handler)

			svr := httptest.NewServer(router)
			defer svr.Close()

			test.Fn(t, NewClient(svr.Client(), svr.URL))
		})
	}
}

func TestSocketClient(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "daemon.sock")

	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)
	defer ln.Close()

	svr := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	})}
	go svr.Serve(ln)
	defer svr.Close()

	cli := NewSocketClient(socket, time.Second)
	out := map[string]bool{}
	require.NoError(t, cli.GET(context.Background(), "/anything", &out))
	assert.True(t, out["ok"])

	t.Run("missing socket is a transport error", func(t *testing.T) {
		missing := NewSocketClient(filepath.Join(t.TempDir(), "nope.sock"), time.Second)
		err := missing.GET(context.Background(), "/anything", nil)
		require.Error(t, err)

		e := &ErrStatus{}
		assert.False(t, IsNotFound(err))
		assert.False(t, errors.As(err, &e))
	})
}

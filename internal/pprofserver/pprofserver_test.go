package pprofserver_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/Manty2503/demo-final/internal/pprofserver"
	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addrCh, err := pprofserver.Launch(ctx, ":0", testhelpers.NewLogger(io.Discard))
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/debug/pprof/cmdline")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

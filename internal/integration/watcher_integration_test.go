package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/outage-watch/internal/api/grpc/monitor"
	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/service/common"
	"github.com/oshokin/outage-watch/internal/service/watcher"
)

// schedulePage is a minimal copy of the outage table.
const schedulePage = `<html><body><table>
<tr><th>#</th><th>Район</th><th>Адреса</th><th>Тип</th><th>Початок</th><th>Кінець</th><th>Статус</th></tr>
<tr><td>1</td><td>Одеса</td><td>Street 1, 10</td><td>Планове</td><td>00:00</td><td>23:59</td><td>Активне</td></tr>
<tr><td>2</td><td>Одеса</td><td>Elsewhere 5</td><td>Планове</td><td>00:00</td><td>23:59</td><td>Активне</td></tr>
</table></body></html>`

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// fakeTelegram counts deliveries by method.
type fakeTelegram struct {
	photos   atomic.Int32
	messages atomic.Int32
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
		f.photos.Add(1)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.messages.Add(1)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":42}}}`)
}

// TestWatcher_EndToEnd runs the watcher against a fake page and a fake Bot API,
// then triggers a manual check over gRPC and reads the status API.
func TestWatcher_EndToEnd(t *testing.T) {
	t.Parallel()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, schedulePage)
	}))
	t.Cleanup(page.Close)

	bot := new(fakeTelegram)
	botServer := httptest.NewServer(bot)
	t.Cleanup(botServer.Close)

	dir := t.TempDir()
	grpcAddr := reservePort(t)
	httpAddr := reservePort(t)
	historyPath := filepath.Join(dir, "history.json")

	cfgPath := filepath.Join(dir, "outage-watch.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{
		Source:       config.SourceConfig{URL: page.URL},
		Addresses:    []string{"Street 1"},
		Groups:       map[string]string{"Street 1": "4.2"},
		PollInterval: time.Hour,
		Timeout:      5 * time.Second,
		HistoryFile:  historyPath,
		RenderedFile: filepath.Join(dir, "rendered.json"),
		GRPCAddress:  grpcAddr,
		HTTPAddress:  httpAddr,
		Telegram: config.TelegramConfig{
			Token:     "secret",
			ChannelID: "42",
			APIURL:    botServer.URL,
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- watcher.Run(ctx, &watcher.Options{ConfigPath: cfgPath})
	}()

	// The first cycle runs on start and posts a chart.
	require.Eventually(t, func() bool { return bot.photos.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	client, err := common.Dial(ctx, grpcAddr, common.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	var report map[string]any

	require.Eventually(t, func() bool {
		reply, callErr := client.CheckNow(ctx, common.Actor{Hostname: "test-host", Username: "test-user"})
		if callErr != nil {
			return false
		}

		report = reply.AsMap()

		return true
	}, 5*time.Second, 50*time.Millisecond)

	require.InDelta(t, 1, report["rows"], 0)
	require.InDelta(t, 0, report["appended"], 0)

	// The trigger service reports SERVING before any fetch has failed.
	healthConn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() {
		_ = healthConn.Close()
	}()

	serving, err := healthpb.NewHealthClient(healthConn).Check(ctx,
		&healthpb.HealthCheckRequest{Service: monitor.ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, serving.GetStatus())

	contents, err := os.ReadFile(historyPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"off": "00:00:00"`)

	historyURL := fmt.Sprintf("http://%s/api/v1/history/%s?window=all", httpAddr, "Street%201,%2010")

	var history struct {
		Events []json.RawMessage `json:"events"`
	}

	require.Eventually(t, func() bool {
		response, getErr := http.Get(historyURL) //nolint:noctx // Test helper.
		if getErr != nil {
			return false
		}

		defer func() {
			_ = response.Body.Close()
		}()

		return response.StatusCode == http.StatusOK && json.NewDecoder(response.Body).Decode(&history) == nil
	}, 5*time.Second, 50*time.Millisecond)

	require.Len(t, history.Events, 1)

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

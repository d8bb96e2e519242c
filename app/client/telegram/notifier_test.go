package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu        sync.Mutex
	failSends int
	sent      []string
	status    int
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Mai","username":"mai_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.status != 0 {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		if f.failSends > 0 {
			f.failSends--
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`not json`))
			return
		}

		_ = r.ParseForm()
		f.sent = append(f.sent, r.PostForm.Get("text"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newNotifier(server *httptest.Server) *BotNotifier {
	n := NewBotNotifier("123:abc", server.URL+"/bot%s/%s", 42)
	n.interval = time.Millisecond
	return n
}

func TestNotifyRetriesTransientFailures(t *testing.T) {
	api := &fakeBotAPI{failSends: 2}
	server := httptest.NewServer(api)
	defer server.Close()

	err := newNotifier(server).Notify(context.Background(), "📢 Reminder dari Mai", "Target <hari ini> Rp 50.000")
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.sent, 1)
	assert.Equal(t, "<b>📢 Reminder dari Mai</b>\nTarget &lt;hari ini&gt; Rp 50.000", api.sent[0])
}

func TestNotifyDoesNotRetryClientErrors(t *testing.T) {
	api := &fakeBotAPI{status: http.StatusBadRequest}
	server := httptest.NewServer(api)
	defer server.Close()

	err := newNotifier(server).Notify(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, LogNotifier{}.Notify(context.Background(), "title", "body"))
}

package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/internal/logger"
)

type recorder struct {
	events []Event
}

func (r *recorder) Notify(_ context.Context, _ string, ev Event) {
	r.events = append(r.events, ev)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b, Nop()}.Notify(context.Background(), "alice", NewEvent(EventInfo, "hello %d", 1))
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "hello 1", a.events[0].Message)
	assert.Equal(t, "[alice] info: hello 1", a.events[0].Text("alice"))
}

func TestTelegramSends(t *testing.T) {
	var gotText, gotChat, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotText = r.URL.Query().Get("text")
		gotChat = r.URL.Query().Get("chat_id")
	}))
	defer srv.Close()

	tg, err := NewTelegram("token", "42", logger.Nop())
	require.NoError(t, err)
	tg.baseURL = srv.URL

	tg.Notify(context.Background(), "bob", NewEvent(EventSuspended, "needs login"))
	assert.Equal(t, "/bottoken/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "[bob] suspended: needs login", gotText)
}

func TestTelegramFailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tg, err := NewTelegram("token", "42", logger.Nop())
	require.NoError(t, err)
	tg.baseURL = srv.URL
	tg.Notify(context.Background(), "bob", NewEvent(EventInfo, "x"))
}

func TestTelegramErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := srv.URL
	srv.Close()

	tg, err := NewTelegram("SECRET-BOT-TOKEN", "42", logger.Nop())
	require.NoError(t, err)
	tg.baseURL = closedURL

	err = tg.send(context.Background(), "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-BOT-TOKEN")
	assert.Contains(t, err.Error(), "telegram request")
}

func TestTelegramFromEnvFile(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("TELEGRAM_CHAT_ID")

	_, err := NewTelegramFromEnv("", logger.Nop())
	assert.ErrorIs(t, err, ErrTelegramNotConfigured)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TELEGRAM_BOT_TOKEN=abc\nTELEGRAM_CHAT_ID=7\n"), 0o600))
	tg, err := NewTelegramFromEnv(envFile, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "abc", tg.token)
	assert.Equal(t, "7", tg.chatID)
}

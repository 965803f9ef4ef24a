package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vuquang23/steamauto/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

var ErrTelegramNotConfigured = errors.New("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set")

type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	log     logger.Logger
}

func NewTelegram(token, chatID string, log logger.Logger) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, ErrTelegramNotConfigured
	}
	return &Telegram{
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With(logger.Component("telegram")),
	}, nil
}

// NewTelegramFromEnv reads the bot credentials from the environment, after
// loading envFile when it exists.
func NewTelegramFromEnv(envFile string, log logger.Logger) (*Telegram, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}
	return NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"), log)
}

func (t *Telegram) Notify(ctx context.Context, account string, ev Event) {
	if err := t.send(ctx, ev.Text(account)); err != nil {
		t.log.Error("telegram notification failed", logger.Account(account), logger.Error(err))
	}
}

func (t *Telegram) send(ctx context.Context, text string) error {
	params := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", t.baseURL, t.token, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		// the request URL carries the bot token
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	return nil
}

package sink

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Telegram message hard limit is 4096 chars; leave headroom for the
// subject line and the <pre> wrapper.
const telegramBodyLimit = 3800

// TelegramConfig configures the Telegram sink.
type TelegramConfig struct {
	Token       string
	ChatID      int64
	ThreadID    int
	RatePerSec  int
	SendTimeout time.Duration
	PollTimeout time.Duration
}

// Telegram delivers reports as Telegram messages. The report body is sent
// inside a <pre> block so the fixed-width table survives rendering.
type Telegram struct {
	cfg     TelegramConfig
	bot     *tele.Bot
	limiter *rate.Limiter
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
	})
	if err != nil {
		return nil, err
	}
	t := &Telegram{cfg: cfg, bot: b}
	if cfg.RatePerSec > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return t, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, subject, body string) error {
	if t.limiter != nil {
		wctx, cancel := context.WithTimeout(ctx, t.cfg.SendTimeout)
		err := t.limiter.Wait(wctx)
		cancel()
		if err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := html.EscapeString(subject) + "\n<pre>" + html.EscapeString(truncate(body, telegramBodyLimit)) + "</pre>"
	_, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ThreadID:              t.cfg.ThreadID,
		DisableWebPagePreview: true,
	})
	return err
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}

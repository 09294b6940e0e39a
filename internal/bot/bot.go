// Package bot hosts lesson sessions over Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/lesson"
	"github.com/example/srsbot/internal/scheduler"
)

// Callback data
const (
	callbackAck          = "ack"
	callbackLessonPrefix = "lesson:"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func ackKeyboard(label string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{{{Text: label, CallbackData: callbackAck}}})
}

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api      Sender
	service  *lesson.Service
	registry *curriculum.Registry
	limiter  *rate.Limiter
	config   BotConfig
	logger   *slog.Logger
	reminder Reminder

	wg sync.WaitGroup
}

// Reminder sends one learner their due-lesson reminder on demand.
type Reminder interface {
	RunManualCheck(ctx context.Context, userID int64) ([]scheduler.Due, error)
}

// New creates a new bot instance
func New(api Sender, service *lesson.Service, registry *curriculum.Registry, cfg BotConfig) *Bot {
	if cfg.DefaultTrack == "" {
		cfg.DefaultTrack = DefaultConfig().DefaultTrack
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Bot{
		api:      api,
		service:  service,
		registry: registry,
		limiter:  rate.NewLimiter(limit, 1),
		config:   cfg,
		logger:   cfg.Logger.With("component", "bot"),
	}
}

// Run handles updates until ctx is done or the channel closes, then waits
// for in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate handles incoming updates from Telegram
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.HandleMessage(ctx, update.Message)
		}
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}
	if err != nil {
		b.logger.Error("handle update", "update", update.UpdateID, "error", err)
	}
}

// SendReminder implements scheduler.Notifier. Private chats share the user id.
func (b *Bot) SendReminder(ctx context.Context, userID int64, due []scheduler.Due) error {
	var sb strings.Builder
	sb.WriteString("⏰ Lessons are waiting for you:\n")
	var buttons [][]MenuButton
	for _, d := range due {
		fmt.Fprintf(&sb, "%s: %d due\n", d.Name, d.Count)
		buttons = append(buttons, []MenuButton{{
			Text:         "Start " + d.Name,
			CallbackData: callbackLessonPrefix + string(d.Track),
		}})
	}
	msg := tgbotapi.NewMessage(userID, strings.TrimRight(sb.String(), "\n"))
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.send(ctx, msg)
}

// SetReminder enables /remind. Call it before Run.
func (b *Bot) SetReminder(r Reminder) {
	b.reminder = r
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.config.IsAdmin != nil && b.config.IsAdmin(userID)
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) presenter(chatID int64) *chatPresenter {
	return &chatPresenter{bot: b, chatID: chatID}
}

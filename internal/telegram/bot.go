// Package telegram binds the conversation router to the Telegram Bot
// API over long polling.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/prepvault/prepvault/internal/menu"
	"github.com/prepvault/prepvault/internal/router"
)

// Bot is one connected Telegram bot instance.
type Bot struct {
	api     *tgbotapi.BotAPI
	router  *router.Router
	adminID int64
	log     *zap.Logger
}

// New authenticates against the Bot API.
func New(token string, adminID int64, r *router.Router, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	log.Info("connected to telegram", zap.String("username", api.Self.UserName))
	return &Bot{api: api, router: r, adminID: adminID, log: log}, nil
}

// Run polls for updates until ctx is cancelled or the update channel
// closes. A closed channel is returned as an error so the caller can
// decide whether to reconnect.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram: update channel closed")
			}
			b.handleUpdate(upd)
		}
	}
}

func (b *Bot) handleUpdate(upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		b.handleMessage(upd.Message)
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	// Stop the client-side spinner regardless of what happens next.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warn("answer callback", zap.Error(err))
	}
	if cq.Message == nil {
		return
	}

	userID := cq.From.ID
	out := b.router.HandleAction(userID, userID == b.adminID, cq.Data)
	b.deliver(cq.Message.Chat.ID, cq.Message.MessageID, out)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID
	isAdmin := userID == b.adminID

	var out router.Outcome
	if msg.IsCommand() && msg.Command() == "start" {
		out = b.router.HandleStart(userID, isAdmin)
	} else {
		out = b.router.HandleText(userID, isAdmin, msg.Text)
	}
	b.deliver(msg.Chat.ID, 0, out)
}

// deliver renders one Outcome. A non-zero messageID means the turn came
// from a button press, so the existing message is edited in place; if
// the edit fails a fresh message is sent instead. Markdown failures
// retry with the plain-text fallback.
func (b *Bot) deliver(chatID int64, messageID int, out router.Outcome) {
	markup := keyboard(out.Menu)

	if messageID != 0 && b.edit(chatID, messageID, out, markup) {
		b.sendDocument(chatID, out.Document)
		return
	}

	msg := tgbotapi.NewMessage(chatID, out.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("markdown send failed, retrying plain", zap.Error(err))
		plain := tgbotapi.NewMessage(chatID, fallbackText(out))
		if markup != nil {
			plain.ReplyMarkup = markup
		}
		if _, err := b.api.Send(plain); err != nil {
			b.log.Error("plain send failed", zap.Error(err))
		}
	}

	b.sendDocument(chatID, out.Document)
}

// edit tries to replace the tapped message in place. Returns false when
// the caller should fall back to sending a new message.
func (b *Bot) edit(chatID int64, messageID int, out router.Outcome, markup *tgbotapi.InlineKeyboardMarkup) bool {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, out.Text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = markup

	if _, err := b.api.Send(edit); err == nil {
		return true
	}

	plain := tgbotapi.NewEditMessageText(chatID, messageID, fallbackText(out))
	plain.ReplyMarkup = markup
	if _, err := b.api.Send(plain); err != nil {
		b.log.Warn("edit failed", zap.Error(err))
		return false
	}
	return true
}

func (b *Bot) sendDocument(chatID int64, doc *router.Document) {
	if doc == nil {
		return
	}
	file := tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Data}
	if _, err := b.api.Send(tgbotapi.NewDocument(chatID, file)); err != nil {
		b.log.Error("send document", zap.String("name", doc.Name), zap.Error(err))
	}
}

func fallbackText(out router.Outcome) string {
	if out.Fallback != "" {
		return out.Fallback
	}
	return out.Text
}

// keyboard converts a menu into Telegram inline-keyboard markup. Empty
// menus map to nil so no empty markup is ever attached.
func keyboard(m menu.Menu) *tgbotapi.InlineKeyboardMarkup {
	if len(m) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m))
	for _, row := range m {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Action))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// Package bot is the thin Telegram wrapper around the capture pipeline and
// the retrieval engine.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/Gendalf4ever/archivist/internal/capture"
	"github.com/Gendalf4ever/archivist/internal/retrieve"
)

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot      *tgbot.Bot
	pipeline *capture.Pipeline
	engine   *retrieve.Engine
	log      logrus.FieldLogger
}

// NewHandler creates the bot and registers all handlers. Anything that is
// not a known command lands in the default handler, which routes command-
// shaped text to preset dispatch and everything else into capture.
func NewHandler(token string, pipeline *capture.Pipeline, engine *retrieve.Engine, logger logrus.FieldLogger) (*Handler, error) {
	h := &Handler{
		pipeline: pipeline,
		engine:   engine,
		log:      logger.WithField("component", "bot_handler"),
	}

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b
	h.registerHandlers()

	h.log.Info("Telegram bot handler initialized")
	return h, nil
}

func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypePrefix, h.helpHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/all_links", tgbot.MatchTypePrefix, h.allLinksHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/youtube", tgbot.MatchTypePrefix, h.youtubeHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/add_preset", tgbot.MatchTypePrefix, h.addPresetHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/my_presets", tgbot.MatchTypePrefix, h.myPresetsHandler)

	for _, data := range []string{"all_links", "youtube", "my_presets", "add_preset_help", "start"} {
		h.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, data, tgbot.MatchTypeExact, h.callbackHandler)
	}
}

// Start begins polling for updates. Blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped")
}

func chatIDOf(msg *models.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10)
}

func authorOf(msg *models.Message) (userID, username string) {
	if msg.From == nil {
		return "", ""
	}
	userID = strconv.FormatInt(msg.From.ID, 10)
	username = msg.From.Username
	if username == "" {
		username = msg.From.FirstName
	}
	return userID, username
}

// sendChunks sends the formatted chunks in order as separate messages. The
// keyboard, if any, rides on the first one.
func (h *Handler) sendChunks(ctx context.Context, chatID int64, chunks []string, markup models.ReplyMarkup) {
	for i, chunk := range chunks {
		params := &tgbot.SendMessageParams{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: models.ParseModeHTML,
		}
		if i == 0 {
			params.ReplyMarkup = markup
		}
		if _, err := h.bot.SendMessage(ctx, params); err != nil {
			h.log.WithError(err).Error("Failed to send message chunk")
			return
		}
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := h.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send reply")
	}
}

func refreshKeyboard(data string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Refresh", CallbackData: data}},
		},
	}
}

func menuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🔗 All links", CallbackData: "all_links"}},
			{{Text: "🎬 YouTube", CallbackData: "youtube"}},
			{{Text: "📝 My presets", CallbackData: "my_presets"}},
			{{Text: "➕ Create preset", CallbackData: "add_preset_help"}},
		},
	}
}

func (h *Handler) startHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	h.log.WithFields(logrus.Fields{
		"chat_id": msg.Chat.ID,
		"command": "/start",
	}).Info("Received /start command")

	menu := "🤖 <b>I save every link posted here.</b>\n\n" +
		"/all_links - all saved links\n" +
		"/youtube - YouTube links only\n" +
		"/add_preset - create a keyword filter\n" +
		"/my_presets - list your filters\n\n" +
		"💡 Just post links, I'll keep them."

	if msg.Chat.Type == models.ChatTypePrivate {
		h.reply(ctx, msg.Chat.ID, menu, menuKeyboard())
		return
	}
	h.reply(ctx, msg.Chat.ID, menu, nil)
}

func (h *Handler) helpHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	help := "🤖 <b>Commands:</b>\n\n" +
		"/all_links - all saved links\n" +
		"/youtube - YouTube links only\n" +
		"/add_preset <name> <keyword> - create a filter\n" +
		"/my_presets - list your filters\n\n" +
		"📝 Example: <code>/add_preset habr habr</code>\n" +
		"then just type /habr to run it."
	h.reply(ctx, msg.Chat.ID, help, nil)
}

func (h *Handler) allLinksHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	h.sendAllLinks(ctx, msg.Chat.ID)
}

func (h *Handler) sendAllLinks(ctx context.Context, chatID int64) {
	chunks, err := h.engine.All(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		h.log.WithError(err).Error("Failed to retrieve links")
		h.reply(ctx, chatID, "Something went wrong, try again later", nil)
		return
	}
	if chunks == nil {
		h.reply(ctx, chatID, "No links yet", nil)
		return
	}
	h.sendChunks(ctx, chatID, chunks, refreshKeyboard("all_links"))
}

func (h *Handler) youtubeHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	h.sendYoutubeLinks(ctx, msg.Chat.ID)
}

func (h *Handler) sendYoutubeLinks(ctx context.Context, chatID int64) {
	chunks, err := h.engine.Videos(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		h.log.WithError(err).Error("Failed to retrieve video links")
		h.reply(ctx, chatID, "Something went wrong, try again later", nil)
		return
	}
	if chunks == nil {
		h.reply(ctx, chatID, "No YouTube links yet", nil)
		return
	}
	h.sendChunks(ctx, chatID, chunks, refreshKeyboard("youtube"))
}

func (h *Handler) addPresetHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	args := strings.Fields(msg.Text)[1:]

	reply, err := h.engine.CreatePreset(ctx, chatIDOf(msg), args)
	if err != nil {
		h.log.WithError(err).Error("Failed to create preset")
		h.reply(ctx, msg.Chat.ID, "Something went wrong, try again later", nil)
		return
	}
	h.reply(ctx, msg.Chat.ID, reply, nil)
}

func (h *Handler) myPresetsHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	h.sendPresetList(ctx, msg.Chat.ID)
}

func (h *Handler) sendPresetList(ctx context.Context, chatID int64) {
	out, err := h.engine.ListPresets(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		h.log.WithError(err).Error("Failed to list presets")
		h.reply(ctx, chatID, "Something went wrong, try again later", nil)
		return
	}
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Create preset", CallbackData: "add_preset_help"}},
		},
	}
	if out == "" {
		h.reply(ctx, chatID, "No presets yet", keyboard)
		return
	}
	h.reply(ctx, chatID, out, keyboard)
}

// defaultHandler receives everything no command handler claimed: preset
// invocations and plain messages to capture.
func (h *Handler) defaultHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		h.presetDispatch(ctx, msg, text)
		return
	}

	userID, username := authorOf(msg)
	err := h.pipeline.HandleMessage(ctx, capture.Inbound{
		ChatID:   chatIDOf(msg),
		UserID:   userID,
		Username: username,
		Text:     text,
	})
	if err != nil {
		h.log.WithError(err).Error("Capture failed")
		h.reply(ctx, msg.Chat.ID, "Something went wrong, try again later", nil)
	}
}

// presetDispatch treats an unrecognized command as a possible preset name:
// "/habr@bot extra" resolves the preset "habr". Unknown names stay silent,
// matching how group bots are expected to ignore other bots' commands.
func (h *Handler) presetDispatch(ctx context.Context, msg *models.Message, text string) {
	name := strings.TrimPrefix(text, "/")
	if i := strings.IndexAny(name, "@ "); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return
	}

	chunks, found, err := h.engine.ByPreset(ctx, chatIDOf(msg), name)
	if err != nil {
		h.log.WithError(err).Error("Preset query failed")
		h.reply(ctx, msg.Chat.ID, "Something went wrong, try again later", nil)
		return
	}
	if !found {
		return
	}
	h.log.WithFields(logrus.Fields{
		"chat_id": msg.Chat.ID,
		"preset":  name,
	}).Info("Preset command handled")

	if chunks == nil {
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf("No links for preset '%s'", name), nil)
		return
	}
	h.sendChunks(ctx, msg.Chat.ID, chunks, nil)
}

func (h *Handler) callbackHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}
	_, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})
	if err != nil {
		h.log.WithError(err).Warn("Failed to answer callback query")
	}
	if query.Message.Message == nil {
		return
	}
	chatID := query.Message.Message.Chat.ID

	h.log.WithFields(logrus.Fields{
		"chat_id": chatID,
		"button":  query.Data,
	}).Info("Inline button pressed")

	switch query.Data {
	case "all_links":
		h.sendAllLinks(ctx, chatID)
	case "youtube":
		h.sendYoutubeLinks(ctx, chatID)
	case "my_presets":
		h.sendPresetList(ctx, chatID)
	case "add_preset_help":
		h.reply(ctx, chatID, "Create a preset:\n<code>/add_preset name keyword</code>", nil)
	case "start":
		h.reply(ctx, chatID, "Menu", menuKeyboard())
	}
}

// Package telegram runs the urgency quiz as a Telegram bot. Each question
// is sent with yes/no inline buttons; the final answer is classified by the
// triage service and the tier's recommendation is sent back.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

const (
	answerPrefix    = "ans:"
	patientIDPrefix = "tg-"

	finishedText = "This check is finished. Send /check to start again."
	answeredText = "That question was already answered."

	// resultTimeout bounds the wait for classification after the last answer.
	resultTimeout = 30 * time.Second
)

const helpText = `I can check how urgently you should see a dentist.

/check - answer 8 quick yes/no questions about your symptoms
/help - show this message`

// Assessments is what the bot needs from triage.Service.
type Assessments interface {
	Start(ctx context.Context, patientID string) (*triage.Assessment, error)
	Answer(ctx context.Context, patientID, id string, questionID int, yes bool) (*triage.Assessment, error)
	Wait(ctx context.Context, patientID, id string) (*triage.Assessment, error)
}

// Messenger is the subset of the Bot API the handlers call. *bot.Bot
// satisfies it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot is the quiz bot.
type Bot struct {
	api         Messenger
	assessments Assessments
	logger      log.Logger
	poller      *bot.Bot
}

// New connects to the Bot API with token and registers the quiz handlers.
func New(token string, assessments Assessments, logger log.Logger) (*Bot, error) {
	b := &Bot{assessments: assessments, logger: logger}

	poller, err := bot.New(token,
		bot.WithDefaultHandler(b.handleDefault),
		bot.WithMessageTextHandler("/start", bot.MatchTypeExact, b.handleCheck),
		bot.WithMessageTextHandler("/check", bot.MatchTypeExact, b.handleCheck),
		bot.WithCallbackQueryDataHandler(answerPrefix, bot.MatchTypePrefix, b.handleAnswer),
		bot.WithErrorsHandler(func(err error) {
			logger.Error(context.Background(), err, "telegram bot error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b.api = poller
	b.poller = poller
	return b, nil
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info(ctx, "telegram bot polling")
	b.poller.Start(ctx)
}

func (b *Bot) handleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.send(ctx, update.Message.Chat.ID, helpText, nil)
}

func (b *Bot) handleCheck(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	a, err := b.assessments.Start(ctx, patientID(update.Message.From.ID))
	if err != nil {
		b.logger.Error(ctx, err, "telegram start assessment", "chat_id", chatID)
		b.send(ctx, chatID, "Sorry, something went wrong. Please try again later.", nil)
		return
	}
	text, markup := questionMessage(a)
	b.send(ctx, chatID, text, markup)
}

func (b *Bot) handleAnswer(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	id, qid, yes, err := parseAnswer(cq.Data)
	if err != nil {
		b.ack(ctx, cq.ID, "Unknown button.")
		return
	}
	pid := patientID(cq.From.ID)

	a, err := b.assessments.Answer(ctx, pid, id, qid, yes)
	switch {
	case errors.Is(err, triage.ErrNotAnswering), errors.Is(err, triage.ErrNotFound):
		b.ack(ctx, cq.ID, finishedText)
		return
	case errors.Is(err, triage.ErrWrongQuestion):
		b.ack(ctx, cq.ID, answeredText)
		return
	case err != nil:
		b.logger.Error(ctx, err, "telegram answer", "assessment_id", id)
		b.ack(ctx, cq.ID, "Sorry, something went wrong.")
		return
	}

	// a repeated tap on an older button changes nothing
	if pos, _ := urgency.QuestionIndex(qid); pos+1 < a.Current {
		b.ack(ctx, cq.ID, answeredText)
		return
	}
	if a.Status == triage.StatusComplete {
		b.ack(ctx, cq.ID, finishedText)
		return
	}
	b.ack(ctx, cq.ID, "")

	msg := cq.Message.Message
	if msg == nil {
		return
	}
	if a.Status == triage.StatusAnswering {
		text, markup := questionMessage(a)
		b.edit(ctx, msg.Chat.ID, msg.ID, text, markup)
		return
	}

	b.edit(ctx, msg.Chat.ID, msg.ID, "Analyzing your answers...", nil)

	waitCtx, cancel := context.WithTimeout(ctx, resultTimeout)
	defer cancel()
	done, err := b.assessments.Wait(waitCtx, pid, id)
	if err == nil && done.Result == nil {
		err = errors.New("assessment finished without a result")
	}
	if err != nil {
		b.logger.Error(ctx, err, "telegram wait for result", "assessment_id", id)
		b.send(ctx, msg.Chat.ID, "Sorry, the result is taking too long. Please try /check again.", nil)
		return
	}
	b.send(ctx, msg.Chat.ID, resultText(*done.Result), nil)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		b.logger.Warn(ctx, "telegram send failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) edit(ctx context.Context, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{ChatID: chatID, MessageID: messageID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.api.EditMessageText(ctx, params); err != nil {
		b.logger.Warn(ctx, "telegram edit failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) ack(ctx context.Context, callbackID, text string) {
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID, Text: text}); err != nil {
		b.logger.Warn(ctx, "telegram callback ack failed", "err", err)
	}
}

func patientID(userID int64) string {
	return patientIDPrefix + strconv.FormatInt(userID, 10)
}

// questionMessage renders the current question with its answer buttons.
func questionMessage(a *triage.Assessment) (string, *models.InlineKeyboardMarkup) {
	q, ok := a.CurrentQuestion()
	if !ok {
		return "Analyzing your answers...", nil
	}
	n := len(urgency.Questions())
	text := fmt.Sprintf("Question %d of %d\n\n%s %s", a.Current+1, n, q.Icon, q.Text)
	markup := &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{{
		{Text: "Yes", CallbackData: answerData(a.ID, q.ID, true)},
		{Text: "No", CallbackData: answerData(a.ID, q.ID, false)},
	}}}
	return text, markup
}

func answerData(id string, questionID int, yes bool) string {
	choice := "n"
	if yes {
		choice = "y"
	}
	return answerPrefix + id + ":" + strconv.Itoa(questionID) + ":" + choice
}

// parseAnswer decodes "ans:<assessment id>:<question id>:<y|n>".
func parseAnswer(data string) (id string, questionID int, yes bool, err error) {
	rest, ok := strings.CutPrefix(data, answerPrefix)
	if !ok {
		return "", 0, false, fmt.Errorf("callback %q: missing prefix", data)
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, false, fmt.Errorf("callback %q: malformed", data)
	}
	questionID, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false, fmt.Errorf("callback %q: question id: %w", data, err)
	}
	switch parts[2] {
	case "y":
		return parts[0], questionID, true, nil
	case "n":
		return parts[0], questionID, false, nil
	}
	return "", 0, false, fmt.Errorf("callback %q: unknown choice %q", data, parts[2])
}

func resultText(r urgency.Result) string {
	info := r.Tier.Info()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n%s\n\n", info.Icon, info.Title, info.Subtitle)
	fmt.Fprintf(&sb, "Score: %d / %d\n\n", r.Score, urgency.MaxScore())
	sb.WriteString(info.Recommendation)
	if len(info.Tips) > 0 {
		sb.WriteString("\n\nTips:")
		for _, tip := range info.Tips {
			sb.WriteString("\n• " + tip)
		}
	}
	return sb.String()
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/lesson"
	"github.com/example/srsbot/pkg/models"
)

const helpText = "📖 Commands\n\n" +
	"/register - Create your account\n" +
	"/init [track] - Start a track (jp or hsk)\n" +
	"/lesson [track] [size|force] - Study due items; force reviews items due within a day\n" +
	"/quit - Abandon the current lesson\n" +
	"/profile - Level, XP and current stages\n" +
	"/progress <kind> <item> - SRS level of one item\n" +
	"/skip <kind> <tier> - Mark the newest tier as already known\n" +
	"/time <hour> - Daily reminder hour (UTC)\n" +
	"/help - Show this help\n\n" +
	"During a lesson type your answer, or press the button to continue."

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID, chatID := message.From.ID, message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, userID, chatID)
	case "help":
		err = b.reply(ctx, chatID, helpText)
	case "register":
		err = b.handleRegister(ctx, userID, chatID)
	case "init":
		err = b.handleInit(ctx, userID, chatID, args)
	case "lesson":
		err = b.handleLesson(ctx, userID, chatID, args)
	case "quit":
		err = b.handleQuit(ctx, userID, chatID)
	case "profile":
		err = b.handleProfile(ctx, userID, chatID)
	case "progress":
		err = b.handleProgress(ctx, userID, chatID, args)
	case "skip":
		err = b.handleSkip(ctx, userID, chatID, args)
	case "time":
		err = b.handleTime(ctx, userID, chatID, args)
	case "sessions":
		err = b.handleSessions(ctx, userID, chatID)
	case "remind":
		err = b.handleRemind(ctx, userID, chatID, args)
	default:
		err = b.reply(ctx, chatID, "Unknown command. Use /help to see what I can do.")
	}
	return err
}

// HandleMessage treats free text as the answer to the current prompt.
func (b *Bot) HandleMessage(ctx context.Context, message *tgbotapi.Message) error {
	sess, ok := b.service.ActiveSession(message.From.ID)
	if !ok {
		return b.reply(ctx, message.Chat.ID, "No lesson in progress. Send /lesson to start one.")
	}
	return b.advance(ctx, message.Chat.ID, sess, lesson.Answer(message.Text))
}

// HandleCallback handles inline button presses.
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("answer callback", "error", err)
	}
	userID := callback.From.ID
	chatID := userID
	if callback.Message != nil && callback.Message.Chat != nil {
		chatID = callback.Message.Chat.ID
	}

	switch data := callback.Data; {
	case data == callbackAck:
		sess, ok := b.service.ActiveSession(userID)
		if !ok {
			return b.reply(ctx, chatID, "No lesson in progress. Send /lesson to start one.")
		}
		return b.advance(ctx, chatID, sess, lesson.Ack())
	case strings.HasPrefix(data, callbackLessonPrefix):
		track := strings.TrimPrefix(data, callbackLessonPrefix)
		return b.handleLesson(ctx, userID, chatID, []string{track})
	default:
		return fmt.Errorf("unknown callback %q", data)
	}
}

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64) error {
	_, err := b.service.Register(ctx, userID)
	if err != nil && !errors.Is(err, lesson.ErrUserExists) {
		return b.fail(ctx, chatID, err)
	}
	text := "👋 Welcome! I teach radicals, characters and vocabulary with spaced repetition.\n" +
		"Start a track with /init jp or /init hsk, then send /lesson.\n\n" + helpText
	return b.reply(ctx, chatID, text)
}

func (b *Bot) handleRegister(ctx context.Context, userID, chatID int64) error {
	if _, err := b.service.Register(ctx, userID); err != nil {
		return b.fail(ctx, chatID, err)
	}
	return b.reply(ctx, chatID, "✅ Registered. Start a track with /init jp or /init hsk.")
}

func (b *Bot) handleInit(ctx context.Context, userID, chatID int64, args []string) error {
	track, _ := b.trackArg(args)
	if err := b.service.InitTrack(ctx, userID, track); err != nil {
		return b.fail(ctx, chatID, err)
	}
	return b.reply(ctx, chatID, fmt.Sprintf("✅ %s started. Send /lesson %s for your first lesson.", b.trackName(track), track))
}

func (b *Bot) handleLesson(ctx context.Context, userID, chatID int64, args []string) error {
	track, rest := b.trackArg(args)
	opts := lesson.StartOptions{Capacity: b.config.DefaultCapacity}
	for _, a := range rest {
		if strings.EqualFold(a, "force") {
			opts.Lookahead = true
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return b.reply(ctx, chatID, fmt.Sprintf("Lesson size must be a positive number, got %q.", a))
		}
		opts.Capacity = n
	}

	_, err := b.service.StartSession(ctx, userID, track, b.presenter(chatID), opts)
	var nothing *lesson.NothingDueError
	switch {
	case errors.As(err, &nothing):
		if nothing.NextDueAt.IsZero() {
			return b.reply(ctx, chatID, fmt.Sprintf("Nothing is queued for %s. Did you run /init %s?", b.trackName(track), track))
		}
		return b.reply(ctx, chatID, fmt.Sprintf("Nothing is due right now. Next review: %s.\nSend /lesson %s force to review ahead.",
			nothing.NextDueAt.UTC().Format("Jan 2 15:04 UTC"), track))
	case err != nil:
		return b.fail(ctx, chatID, err)
	}
	return nil
}

func (b *Bot) handleQuit(ctx context.Context, userID, chatID int64) error {
	sess, ok := b.service.ActiveSession(userID)
	if !ok {
		return b.reply(ctx, chatID, "No lesson in progress.")
	}
	if err := b.service.AbortSession(ctx, sess); err != nil {
		return b.fail(ctx, chatID, err)
	}
	return b.reply(ctx, chatID, "Lesson abandoned. Answers already given are saved.")
}

func (b *Bot) handleProfile(ctx context.Context, userID, chatID int64) error {
	prof, err := b.service.Profile(ctx, userID)
	if err != nil {
		return b.fail(ctx, chatID, err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 Level %d (%d/%d XP, %d to next level)", prof.Level, prof.XP, prof.XPMax, prof.ToNextLevel)
	if len(prof.Tracks) == 0 {
		sb.WriteString("\nNo track started yet. Use /init jp or /init hsk.")
	}
	for _, tp := range prof.Tracks {
		fmt.Fprintf(&sb, "\n\n%s", tp.Name)
		for _, m := range tp.Milestones {
			fmt.Fprintf(&sb, "\n%s stage %s:", m.Name, m.Stage)
			for _, it := range m.Items {
				fmt.Fprintf(&sb, " %s(%s)", it.ID, it.LevelName)
			}
		}
	}
	return b.reply(ctx, chatID, sb.String())
}

func (b *Bot) handleProgress(ctx context.Context, userID, chatID int64, args []string) error {
	if len(args) != 2 {
		return b.reply(ctx, chatID, "Usage: /progress <kind> <item>")
	}
	kind := models.Kind(strings.ToLower(args[0]))
	rec, ok, err := b.service.Progress(ctx, userID, kind, args[1])
	if err != nil {
		return b.fail(ctx, chatID, err)
	}
	if !ok {
		return b.reply(ctx, chatID, fmt.Sprintf("%s has not been unlocked yet.", args[1]))
	}
	return b.reply(ctx, chatID, fmt.Sprintf("%s: %s (level %d, %d misses in the current attempt)",
		args[1], curriculum.LevelName(rec.Level), rec.Level, rec.Incorrect))
}

func (b *Bot) handleSkip(ctx context.Context, userID, chatID int64, args []string) error {
	if len(args) != 2 {
		return b.reply(ctx, chatID, "Usage: /skip <kind> <tier>")
	}
	tier, err := strconv.Atoi(args[1])
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("Tier must be a number, got %q.", args[1]))
	}
	n, err := b.service.SkipTier(ctx, userID, models.Kind(strings.ToLower(args[0])), tier)
	if err != nil {
		return b.fail(ctx, chatID, err)
	}
	return b.reply(ctx, chatID, fmt.Sprintf("⏭ %d items moved to review.", n))
}

func (b *Bot) handleTime(ctx context.Context, userID, chatID int64, args []string) error {
	if len(args) != 1 {
		return b.reply(ctx, chatID, "Usage: /time <hour 0-23, UTC>")
	}
	hour, err := strconv.Atoi(args[0])
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("Hour must be a number, got %q.", args[0]))
	}
	if err := b.service.SetNotificationHour(ctx, userID, hour); err != nil {
		return b.fail(ctx, chatID, err)
	}
	return b.reply(ctx, chatID, fmt.Sprintf("⏰ Reminders will arrive at %02d:00 UTC.", hour))
}

func (b *Bot) handleSessions(ctx context.Context, userID, chatID int64) error {
	if !b.isAdmin(userID) {
		return b.reply(ctx, chatID, "This command is only available for administrators.")
	}
	return b.reply(ctx, chatID, fmt.Sprintf("Active lessons: %d", b.service.ActiveSessions()))
}

func (b *Bot) handleRemind(ctx context.Context, userID, chatID int64, args []string) error {
	if !b.isAdmin(userID) {
		return b.reply(ctx, chatID, "This command is only available for administrators.")
	}
	if b.reminder == nil {
		return b.reply(ctx, chatID, "Reminders are not running.")
	}
	if len(args) != 1 {
		return b.reply(ctx, chatID, "Usage: /remind <user id>")
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("User id must be a number, got %q.", args[0]))
	}
	due, err := b.reminder.RunManualCheck(ctx, target)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return b.reply(ctx, chatID, fmt.Sprintf("User %d is not registered.", target))
	case err != nil:
		return b.fail(ctx, chatID, err)
	case len(due) == 0:
		return b.reply(ctx, chatID, fmt.Sprintf("Nothing is due for user %d, no reminder sent.", target))
	}
	count := 0
	for _, d := range due {
		count += d.Count
	}
	return b.reply(ctx, chatID, fmt.Sprintf("⏰ Reminded user %d of %d due items.", target, count))
}

func (b *Bot) advance(ctx context.Context, chatID int64, sess *lesson.Session, in lesson.Input) error {
	_, err := b.service.AdvanceSession(ctx, sess, in)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lesson.ErrUnexpectedInput) && in.Ack:
		// Stale or repeated button press.
		return nil
	case errors.Is(err, lesson.ErrUnexpectedInput):
		return b.reply(ctx, chatID, "No question is waiting. Press the button under the last message to go on.")
	}
	return b.fail(ctx, chatID, err)
}

// trackArg reads an optional leading track name.
func (b *Bot) trackArg(args []string) (models.Track, []string) {
	if len(args) > 0 {
		if _, err := b.registry.Track(models.Track(strings.ToLower(args[0]))); err == nil {
			return models.Track(strings.ToLower(args[0])), args[1:]
		}
	}
	return b.config.DefaultTrack, args
}

func (b *Bot) trackName(t models.Track) string {
	if spec, err := b.registry.Track(t); err == nil {
		return spec.Name
	}
	return string(t)
}

// fail tells the learner what went wrong. Expected errors are answered and
// swallowed; anything else is also returned for logging.
func (b *Bot) fail(ctx context.Context, chatID int64, err error) error {
	text, expected := userMessage(err)
	if sendErr := b.reply(ctx, chatID, text); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	if expected {
		return nil
	}
	return err
}

func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, lesson.ErrUnknownUser):
		return "You are not registered yet. Send /register to begin.", true
	case errors.Is(err, lesson.ErrUserExists):
		return "You are already registered.", true
	case errors.Is(err, lesson.ErrTrackInitialized):
		return "That track is already started. Send /lesson to study.", true
	case errors.Is(err, lesson.ErrTrackNotInitialized):
		return "Start that track first with /init.", true
	case errors.Is(err, lesson.ErrTierNotUnlocked):
		return "Only the most recently unlocked tier can be skipped.", true
	case errors.Is(err, lesson.ErrSessionActive):
		return "You already have a lesson in progress. Answer the current prompt or send /quit.", true
	case errors.Is(err, lesson.ErrNoSession), errors.Is(err, lesson.ErrSessionClosed):
		return "That lesson has ended. Send /lesson to start another.", true
	case errors.Is(err, lesson.ErrInvalidHour):
		return "The hour must be between 0 and 23.", true
	case errors.Is(err, curriculum.ErrUnknownKind):
		return "Unknown kind. Try radical, kanji, vocab, hskr, sc or hsk.", true
	case errors.Is(err, curriculum.ErrUnknownTrack):
		return "Unknown track. Try jp or hsk.", true
	case lesson.IsRetryable(err):
		return "⚠️ Your progress could not be saved. Please send that again.", false
	default:
		return "⚠️ Something went wrong. Please try again later.", false
	}
}

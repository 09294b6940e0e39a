package bot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/lesson"
	"github.com/example/srsbot/pkg/models"
)

var facetLabels = map[models.Facet]string{
	models.FacetMeaning: "meaning",
	models.FacetReading: "reading",
	models.FacetOnyomi:  "on'yomi reading",
	models.FacetKunyomi: "kun'yomi reading",
	models.FacetPinyin:  "pinyin",
}

func facetLabel(f models.Facet) string {
	if l, ok := facetLabels[f]; ok {
		return l
	}
	return string(f)
}

// chatPresenter renders one learner's session into their chat.
type chatPresenter struct {
	bot    *Bot
	chatID int64
}

var _ lesson.Presenter = (*chatPresenter)(nil)

func (p *chatPresenter) PresentOverview(ctx context.Context, o lesson.Overview) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %s lesson\n", p.trackName(o.Track))
	for _, g := range o.Groups {
		fmt.Fprintf(&sb, "%s: %s\n", g.Name, strings.Join(g.IDs, ", "))
	}
	fmt.Fprintf(&sb, "%d due of %d queued", o.DueCount, o.TotalQueued)
	if o.Lookahead {
		sb.WriteString(" (reviewing ahead)")
	}
	return p.sendWithKeyboard(ctx, sb.String(), ackKeyboard("Start ▶"))
}

func (p *chatPresenter) PresentTeach(ctx context.Context, item models.ContentItem) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆕 New %s: %s\n", p.kindName(item.Kind), item.ID)
	spec, err := p.bot.registry.Kind(item.Kind)
	if err == nil {
		for _, f := range spec.Facets {
			if item.HasFacet(f) {
				fmt.Fprintf(&sb, "%s: %s\n", capitalize(facetLabel(f)), strings.Join(item.Answers[f], ", "))
			}
		}
	}
	keys := make([]string, 0, len(item.Details))
	for k := range item.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", capitalize(k), item.Details[k])
	}
	return p.sendWithKeyboard(ctx, strings.TrimRight(sb.String(), "\n"), ackKeyboard("Continue ▶"))
}

func (p *chatPresenter) PresentPrompt(ctx context.Context, pr lesson.Prompt) error {
	text := fmt.Sprintf("%s [%s]\nType its %s.", pr.Item.ID, p.kindName(pr.Item.Kind), facetLabel(pr.Facet))
	return p.bot.reply(ctx, p.chatID, text)
}

func (p *chatPresenter) PresentResult(ctx context.Context, r lesson.Result) error {
	if !r.Correct {
		text := fmt.Sprintf("❌ Not quite. The %s of %s is: %s",
			facetLabel(r.Facet), r.Item.ID, strings.Join(r.Solution, ", "))
		return p.sendWithKeyboard(ctx, text, ackKeyboard("Continue ▶"))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Correct! +%d XP", r.XP)
	if r.Concluded {
		fmt.Fprintf(&sb, "\n%s is now %s.", r.Item.ID, curriculum.LevelName(r.Level))
	}
	if r.Announcement != "" {
		fmt.Fprintf(&sb, "\n🎉 %s", r.Announcement)
	}
	return p.bot.reply(ctx, p.chatID, sb.String())
}

func (p *chatPresenter) PresentSummary(ctx context.Context, s lesson.Summary) error {
	var sb strings.Builder
	sb.WriteString("🏁 Lesson complete!\n")
	fmt.Fprintf(&sb, "Accuracy: %d%% (%d/%d)\n", int(math.Round(s.Accuracy*100)), s.Correct, s.Attempts)
	fmt.Fprintf(&sb, "XP: +%d", s.XPGained)
	if s.Bonus > 0 {
		fmt.Fprintf(&sb, " (daily bonus +%d)", s.Bonus)
	}
	if s.LevelsGained > 0 {
		fmt.Fprintf(&sb, "\n⬆️ Level up! You are now level %d.", s.Level)
	}
	fmt.Fprintf(&sb, "\nLevel %d: %d/%d XP", s.Level, s.XP, s.XPMax)
	return p.bot.reply(ctx, p.chatID, sb.String())
}

func (p *chatPresenter) PresentFault(ctx context.Context, f lesson.Fault) error {
	return p.bot.reply(ctx, p.chatID, fmt.Sprintf("⚠️ Skipped %s: %s", f.Ref, f.Reason))
}

func (p *chatPresenter) sendWithKeyboard(ctx context.Context, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.ReplyMarkup = kb
	return p.bot.send(ctx, msg)
}

func (p *chatPresenter) kindName(k models.Kind) string {
	if spec, err := p.bot.registry.Kind(k); err == nil {
		return spec.Name
	}
	return string(k)
}

func (p *chatPresenter) trackName(t models.Track) string {
	if spec, err := p.bot.registry.Track(t); err == nil {
		return spec.Name
	}
	return string(t)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

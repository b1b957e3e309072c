// internal/bot/bot.go

// Package bot answers Telegram commands. The same Handler serves long
// polling (cmd/bot) and the webhook mounted by cmd/api.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"studio-settlement/internal/calculator"
	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const helpText = "*Studio settlement bot*\n\n" +
	"Commands:\n" +
	"`/calc <gross> <percent> [bonus] [discount]` - designer payout\n" +
	"`/fees <gross> <channel rate> [discount]` - fee breakdown\n" +
	"`/month [YYYY-MM]` - your payouts for a month\n" +
	"`/projects [YYYY-MM]` - your projects for a month"

// Store is the read-only slice of storage the bot needs.
type Store interface {
	FindMemberByTelegramID(ctx context.Context, telegramID int64) (*domain.Member, error)
	ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error)
	MemberItems(ctx context.Context, month string, memberID int64) ([]domain.SettlementItem, error)
}

// Sender is implemented by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler struct {
	store   Store
	rates   calculator.RateTable
	printer *message.Printer
	now     func() time.Time
}

func NewHandler(store Store, rates calculator.RateTable) *Handler {
	return &Handler{
		store:   store,
		rates:   rates,
		printer: message.NewPrinter(language.Korean),
		now:     time.Now,
	}
}

// HandleUpdate answers one update. Updates without a text message are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, api Sender, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	text := FixEncoding(update.Message.Text)
	slog.Info("bot message", "telegram_id", update.Message.From.ID, "text", text)

	private := update.Message.Chat.ID == update.Message.From.ID
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, h.reply(ctx, update.Message.From.ID, private, text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := api.Send(msg); err != nil {
		slog.Error("bot send failed", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

// Reply computes the answer to one command line sent in a private chat.
func (h *Handler) Reply(ctx context.Context, telegramID int64, text string) string {
	return h.reply(ctx, telegramID, true, text)
}

// reply answers /month and /projects only in the sender's private chat, so
// payouts never reach a chat other than the member's own.
func (h *Handler) reply(ctx context.Context, telegramID int64, private bool, text string) string {
	fields := strings.Fields(SanitizeInput(text))
	if len(fields) == 0 {
		return "Unknown command. Send /help"
	}
	// "/calc@studio_bot" in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	var reply string
	var err error
	switch cmd {
	case "/start", "/help":
		reply = helpText
	case "/calc":
		reply, err = h.calc(args)
	case "/fees":
		reply, err = h.fees(args)
	case "/month", "/projects":
		if !private {
			return "Send " + cmd + " to me in a private chat."
		}
		if cmd == "/month" {
			reply, err = h.month(ctx, telegramID, args)
		} else {
			reply, err = h.projects(ctx, telegramID, args)
		}
	default:
		reply = "Unknown command. Send /help"
	}

	if err != nil {
		if errors.Is(err, calculator.ErrInvalidInput) || errors.Is(err, calculator.ErrNoRates) || errors.Is(err, errUsage) {
			return "Error: " + escape(err.Error())
		}
		slog.Error("bot command failed", "command", cmd, "error", err)
		return "Something went wrong, try again later"
	}
	return reply
}

var errUsage = errors.New("usage")

func (h *Handler) calc(args []string) (string, error) {
	if len(args) < 2 || len(args) > 4 {
		return "", fmt.Errorf("%w: /calc <gross> <percent> [bonus] [discount]", errUsage)
	}
	gross, err := parseAmount(args[0])
	if err != nil {
		return "", err
	}
	percent, err := parsePercent(args[1])
	if err != nil {
		return "", err
	}
	var bonus float64
	var discount int64
	if len(args) > 2 {
		if bonus, err = parsePercent(args[2]); err != nil {
			return "", err
		}
	}
	if len(args) > 3 {
		if discount, err = parseAmount(args[3]); err != nil {
			return "", err
		}
	}

	calc, err := h.rates.CalculatorFor("")
	if err != nil {
		return "", err
	}
	amt, err := calc.Settlement(gross, discount, percent, bonus)
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("*Payout for %s%% + %s%% bonus*", formatPercent(percent), formatPercent(bonus)),
		"Net: " + h.krw(amt.NetAmount),
		"Base: " + h.krw(amt.BaseAmount),
		"Bonus: " + h.krw(amt.BonusAmount),
		"Before withholding: " + h.krw(amt.BeforeWithholding),
		"Withholding 3.3%: " + h.krw(amt.WithholdingTax),
		"*After withholding: " + h.krw(amt.AfterWithholding) + "*",
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Handler) fees(args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", fmt.Errorf("%w: /fees <gross> <channel rate> [discount]", errUsage)
	}
	gross, err := parseAmount(args[0])
	if err != nil {
		return "", err
	}
	rate, err := parseRate(args[1])
	if err != nil {
		return "", err
	}
	var discount int64
	if len(args) > 2 {
		if discount, err = parseAmount(args[2]); err != nil {
			return "", err
		}
	}

	calc, err := h.rates.CalculatorFor("")
	if err != nil {
		return "", err
	}
	fb, err := calc.Fees(gross, discount, rate)
	if err != nil {
		return "", err
	}

	lines := []string{
		"*Fee breakdown*",
		"Gross: " + h.krw(fb.GrossAmount),
		"VAT: " + h.krw(fb.VATAmount),
		"Discount: " + h.krw(fb.DiscountNet),
		"Net: " + h.krw(fb.PostDiscountNet),
		"Ad fee: " + h.krw(fb.AdFee),
		"Program fee: " + h.krw(fb.ProgramFee),
		"Channel fee: " + h.krw(fb.ChannelFee),
		"*Distributable: " + h.krw(fb.DistributableNet) + "*",
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Handler) month(ctx context.Context, telegramID int64, args []string) (string, error) {
	month, err := h.monthArg(args)
	if err != nil {
		return "", err
	}
	member, err := h.store.FindMemberByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if member == nil {
		return notLinked, nil
	}

	items, err := h.store.MemberItems(ctx, month, member.ID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "No payouts for " + month, nil
	}

	lines := []string{fmt.Sprintf("*Payouts for %s, %s*", escape(member.Name), month)}
	var total int64
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s", escape(it.ProjectName), h.krw(it.AmountAfterWithholding)))
		total += it.AmountAfterWithholding
	}
	lines = append(lines, "*Total after withholding: "+h.krw(total)+"*")
	return strings.Join(lines, "\n"), nil
}

func (h *Handler) projects(ctx context.Context, telegramID int64, args []string) (string, error) {
	month, err := h.monthArg(args)
	if err != nil {
		return "", err
	}
	member, err := h.store.FindMemberByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if member == nil {
		return notLinked, nil
	}

	projects, err := h.store.ListProjects(ctx, domain.ProjectFilter{SettleMonth: month, MemberID: member.ID})
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "No projects for " + month, nil
	}

	lines := []string{fmt.Sprintf("*Projects for %s*", month)}
	for _, p := range projects {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", escape(p.Name), escape(string(p.Status)), h.krw(p.GrossAmount)))
	}
	return strings.Join(lines, "\n"), nil
}

const notLinked = "Your Telegram account is not linked to a studio member. Ask an admin to add your Telegram id."

func (h *Handler) monthArg(args []string) (string, error) {
	if len(args) == 0 {
		return h.now().Format("2006-01"), nil
	}
	if _, err := time.Parse("2006-01", args[0]); err != nil {
		return "", fmt.Errorf("%w: month must be YYYY-MM", calculator.ErrInvalidInput)
	}
	return args[0], nil
}

// escape keeps user-supplied text from breaking Markdown replies.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (h *Handler) krw(v int64) string {
	return h.printer.Sprintf("%d원", v)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseAmount accepts "1100000", "1,100,000" and "1,100,000원".
func parseAmount(s string) (int64, error) {
	clean := strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "원")
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an amount", calculator.ErrInvalidInput, s)
	}
	return v, nil
}

func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a percent", calculator.ErrInvalidInput, s)
	}
	return v, nil
}

// parseRate accepts a fraction ("0.21") or a percent ("21%").
func parseRate(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		p, err := parsePercent(s)
		return p / 100, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a rate", calculator.ErrInvalidInput, s)
	}
	return v, nil
}

// SanitizeInput turns every kind of whitespace into a single space.
func SanitizeInput(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FixEncoding repairs text some clients send in a legacy encoding, trying
// EUC-KR first and windows-1251 second.
func FixEncoding(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if fixed, err := korean.EUCKR.NewDecoder().String(s); err == nil && utf8.ValidString(fixed) && !strings.ContainsRune(fixed, utf8.RuneError) {
		return fixed
	}
	if fixed, err := charmap.Windows1251.NewDecoder().String(s); err == nil && utf8.ValidString(fixed) {
		return fixed
	}
	return strings.ToValidUTF8(s, "")
}

var _ Store = (storage.Store)(nil)

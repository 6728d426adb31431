package application

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/bnema/hubwatch/internal/domain"
)

// Telegram HTML message rendering. Everything the bot says is built here.

const (
	divider   = "────────────────────────"
	separator = "━━━━━━━━━━━━━━━━━━━━"
)

// FormatNumber renders a count as 1.2M, 45.3K, or the plain number.
func FormatNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatNewModel renders the new-model notification.
func FormatNewModel(m domain.Model) string {
	return fmt.Sprintf(
		"🚨 <b>New model!</b>\n\nFresh release from <b>%s</b>.\n\n%s\n\n🤖 <b>%s</b>\n\n🔗 <a href=\"%s\">View weights</a>",
		html.EscapeString(string(m.ID.Org())),
		separator,
		html.EscapeString(string(m.ID)),
		m.ID.URL(),
	)
}

// FormatSummary renders the README digest that follows a notification.
func FormatSummary(id domain.ModelID, summary string) string {
	return fmt.Sprintf(
		"📝 <b>%s — in short</b>\n\n%s",
		html.EscapeString(string(id)),
		SanitizeHTML(summary),
	)
}

// FormatModelCard renders the /info card.
func FormatModelCard(m domain.Model) string {
	lines := []string{
		fmt.Sprintf("🤖 <b>%s</b>", html.EscapeString(string(m.ID))),
		fmt.Sprintf("<code>%s</code>", divider),
	}

	if m.Downloads > 0 || m.Likes > 0 {
		var parts []string
		if m.Downloads > 0 {
			parts = append(parts, fmt.Sprintf("📥 <b>%s</b> downloads", FormatNumber(m.Downloads)))
		}
		if m.Likes > 0 {
			parts = append(parts, fmt.Sprintf("❤️ <b>%s</b>", FormatNumber(m.Likes)))
		}
		lines = append(lines, strings.Join(parts, "   "))
	}

	var meta []string
	if m.PipelineTag != "" {
		meta = append(meta, "🎯 "+html.EscapeString(m.PipelineTag))
	}
	if m.LibraryName != "" {
		meta = append(meta, "📚 "+html.EscapeString(m.LibraryName))
	}
	if len(meta) > 0 {
		lines = append(lines, strings.Join(meta, "  "))
	}

	if useful := m.UsefulTags(6); len(useful) > 0 {
		tags := make([]string, len(useful))
		for i, t := range useful {
			tags[i] = fmt.Sprintf("<code>%s</code>", html.EscapeString(t))
		}
		lines = append(lines, "🏷 "+strings.Join(tags, " · "))
	}

	lines = append(lines,
		fmt.Sprintf("<code>%s</code>", divider),
		fmt.Sprintf("🔗 <a href=\"%s\">Open on Hugging Face</a>", m.ID.URL()),
	)

	return strings.Join(lines, "\n")
}

// FormatDeploy renders the GPU sizing estimate.
func FormatDeploy(id domain.ModelID, est domain.DeployEstimate) string {
	var params string
	switch {
	case est.TotalParams >= 1e9:
		params = fmt.Sprintf("%.1fB", float64(est.TotalParams)/1e9)
	case est.TotalParams >= 1e6:
		params = fmt.Sprintf("%.0fM", float64(est.TotalParams)/1e6)
	default:
		params = fmt.Sprintf("%d", est.TotalParams)
	}

	lines := []string{
		fmt.Sprintf("🖥️ <b>Deploy estimate</b>: <code>%s</code>", html.EscapeString(string(id))),
		"", separator, "",
		fmt.Sprintf("📊 Parameters: <b>%s</b>", params),
		fmt.Sprintf("💾 Precision: <b>%s</b>", html.EscapeString(est.Dtype)),
		fmt.Sprintf("📦 Weights: <b>~%.1f GiB</b>", est.WeightGiB),
		fmt.Sprintf("📈 With inference headroom (~20%%): <b>~%.1f GiB</b>", est.TotalGiB),
		"", separator, "",
	}

	switch {
	case est.H200Count == 1:
		spare := 140 - est.TotalGiB
		lines = append(lines, "🟢 <b>NVIDIA H200</b> (140 GiB VRAM):",
			fmt.Sprintf("  → <b>1 × H200</b> (~%.0f GiB to spare)", spare))
	case est.H200Count <= 8:
		lines = append(lines, "🟡 <b>NVIDIA H200</b> (140 GiB VRAM):",
			fmt.Sprintf("  → <b>%d × H200</b> (one HGX node)", est.H200Count))
	default:
		nodes := (est.H200Count + 7) / 8
		lines = append(lines, "🔴 <b>NVIDIA H200</b> (140 GiB VRAM):",
			fmt.Sprintf("  → <b>%d × H200</b> (%d nodes)", est.H200Count, nodes))
	}
	lines = append(lines, "")

	if est.FitsL40S {
		spare := 48 - est.TotalGiB
		lines = append(lines, "🟢 <b>NVIDIA L40S</b> (48 GiB VRAM):",
			fmt.Sprintf("  → <b>1 × L40S</b> (~%.0f GiB to spare)", spare))
	} else {
		lines = append(lines, "🔴 <b>NVIDIA L40S</b> (48 GiB VRAM):",
			"  → Does not fit.")
	}

	return strings.Join(lines, "\n")
}

// FormatOrgs renders the watched organisation list.
func FormatOrgs(orgs []domain.OrgKey) string {
	lines := []string{fmt.Sprintf("🏢 <b>Watched organisations</b>\n\n%s\n", separator)}
	for _, org := range orgs {
		lines = append(lines, fmt.Sprintf("  • <a href=\"https://huggingface.co/%s\">%s</a>", org, html.EscapeString(string(org))))
	}
	lines = append(lines, "", separator, "", fmt.Sprintf("📊 Total: <b>%d</b>", len(orgs)))

	return strings.Join(lines, "\n")
}

// OrgCount pairs an organisation with its live model count.
type OrgCount struct {
	Org   domain.OrgKey
	Count int
}

// FormatStats renders the /stats message. Counts must be sorted descending.
func FormatStats(counts []OrgCount, total int) string {
	medals := []string{"🥇 ", "🥈 ", "🥉 "}
	lines := []string{fmt.Sprintf("📊 <b>Monitoring statistics</b>\n\n%s\n", separator)}
	for i, oc := range counts {
		medal := ""
		if i < len(medals) && oc.Count > 0 {
			medal = medals[i]
		}
		pct := 0.0
		if total > 0 {
			pct = float64(oc.Count) / float64(total) * 100
		}
		lines = append(lines, fmt.Sprintf("  %s<b>%s</b>: %d (%.1f%%)", medal, html.EscapeString(string(oc.Org)), oc.Count, pct))
	}
	lines = append(lines, "", separator, "",
		fmt.Sprintf("🤖 Models total: <b>%d</b>", total),
		fmt.Sprintf("🏢 Organisations: <b>%d</b>", len(counts)),
	)

	return strings.Join(lines, "\n")
}

// FormatBattleQuestion announces the round and poses the challenge.
func FormatBattleQuestion(question string) string {
	return fmt.Sprintf("⚔️ <b>BATTLE MODE</b>\n\n%s\n\nChallenger asks: %s\n\n%s\n\n<i>Waiting for the opponent...</i>",
		separator, SanitizeHTML(question), separator)
}

// FormatBattleReminder nudges the chat while the opponent is still thinking.
func FormatBattleReminder() string {
	return "⏳ The opponent is still thinking... the round is alive."
}

// FormatBattleAnswer relays the opponent's answer.
func FormatBattleAnswer(answer string) string {
	return fmt.Sprintf("🤖 <b>The opponent answers:</b>\n\n%s", SanitizeHTML(answer))
}

// FormatBattleVerdict renders the judge's concluding message.
func FormatBattleVerdict(verdict string) string {
	return fmt.Sprintf("⚔️ <b>BATTLE MODE — verdict</b>\n\n%s\n\n%s", separator, SanitizeHTML(verdict))
}

// FormatBattleActive is sent when a round is already running.
func FormatBattleActive() string {
	return "⚔️ A battle is already in progress. Wait for the current round to finish."
}

// FormatBattleFailed is sent when a round dies before the verdict.
func FormatBattleFailed() string {
	return "⚔️ <b>BATTLE MODE — aborted</b>\n\nThe round could not be completed. Try again later."
}

// FormatModelNotFound renders the /info and /deploy miss message.
func FormatModelNotFound(id string) string {
	return fmt.Sprintf("❌ Model not found\n\n<code>%s</code>\n\n💡 Check the spelling.\nFormat: <code>author/model-name</code>", html.EscapeString(id))
}

// FormatInfoUsage renders the /info usage hint.
func FormatInfoUsage() string {
	return "ℹ️ <b>Name a model</b>\n\nFormat: <code>/info author/model</code>\n\n💡 Example:\n<code>/info Qwen/Qwen2-72B-Instruct</code>"
}

// FormatDeployUsage renders the /deploy usage hint.
func FormatDeployUsage() string {
	return "🖥️ <b>Deploy estimate</b>\n\nFormat: <code>/deploy author/model</code>\n\n💡 Example:\n<code>/deploy Qwen/Qwen3-32B</code>"
}

// FormatError is the generic failure reply.
func FormatError() string {
	return "⚠️ Something went wrong. Try again later."
}

// FormatHelp renders the /help and /start reply.
func FormatHelp() string {
	return strings.Join([]string{
		"👋 <b>Hi!</b>",
		"",
		"I watch <b>Hugging Face</b> organisations and announce new models as they land.",
		"",
		separator,
		"",
		"<b>Commands</b>",
		"  /orgs — watched organisations",
		"  /stats — model counts per organisation",
		"  /info author/model — model card",
		"  /deploy author/model — GPU sizing estimate",
		"  /battle — challenge the resident model",
		"  /help — this message",
	}, "\n")
}

var (
	mdBoldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalicRe  = regexp.MustCompile(`(^|[^*])\*([^*\n]+)\*`)
	mdCodeRe    = regexp.MustCompile("`([^`\n]+)`")
	mdLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s*(.+)$`)
)

// SanitizeHTML makes LLM output safe for Telegram's HTML parse mode:
// common Markdown markup becomes HTML, stray angle brackets are escaped,
// and unclosed tags get balanced.
func SanitizeHTML(text string) string {
	if text == "" {
		return text
	}

	if !strings.Contains(text, "<b>") {
		text = mdBoldRe.ReplaceAllString(text, "<b>$1</b>")
	}
	if !strings.Contains(text, "<i>") {
		text = mdItalicRe.ReplaceAllString(text, "$1<i>$2</i>")
	}
	if !strings.Contains(text, "<code>") {
		text = mdCodeRe.ReplaceAllString(text, "<code>$1</code>")
	}
	if !strings.Contains(text, "<a href") {
		text = mdLinkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	}
	text = mdHeadingRe.ReplaceAllString(text, "<b>$1</b>")

	text = escapeUnknownTags(text)

	return balanceTags(text)
}

// allowedTagRe matches the tags Telegram's HTML mode accepts.
var allowedTagRe = regexp.MustCompile(`(?i)^</?(?:b|strong|i|em|u|s|code|pre|a(?:\s+href="[^"]*")?)>$`)

func escapeUnknownTags(text string) string {
	var out strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			out.WriteByte(text[i])
			continue
		}
		end := strings.IndexByte(text[i:], '>')
		if end < 0 {
			out.WriteString("&lt;")
			continue
		}
		tag := text[i : i+end+1]
		if allowedTagRe.MatchString(tag) {
			out.WriteString(tag)
			i += end
			continue
		}
		out.WriteString("&lt;")
	}

	return out.String()
}

func balanceTags(text string) string {
	for _, tag := range []string{"b", "strong", "i", "em", "u", "s", "code", "pre", "a"} {
		openRe := regexp.MustCompile(fmt.Sprintf(`(?i)<%s(?:\s|>)`, tag))
		opens := len(openRe.FindAllString(text, -1))
		closes := strings.Count(strings.ToLower(text), "</"+tag+">")
		for ; opens > closes; closes++ {
			text += "</" + tag + ">"
		}
	}

	return text
}

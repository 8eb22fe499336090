package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/voicenotes/internal/chat"
	"github.com/jwulff/voicenotes/internal/transcript"
	"github.com/jwulff/voicenotes/internal/ui"
)

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	total := len(m.transcriptLines(m.transcriptPanelWidth()))
	visible := m.contentHeight() - 1
	if total <= visible {
		return 0
	}
	return total - visible
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + error(1) + footer(1) + padding
	reserved := 7
	return max(5, m.height-reserved)
}

func (m Model) chatPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(24, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.chatPanelWidth()-1)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Status bar
	sections = append(sections, m.renderStatusBar())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Main content: chat | transcript
	sections = append(sections, m.renderMainContent())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Error bar
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("VOICENOTES")
	persona := ui.DimStyle.Render("  persona: ") + ui.PersonaStyle.Render(m.persona)
	return title + persona
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.status {
	case StatusRecording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case StatusProcessing:
		dot = ui.ProcessingStyle.Render("⟳ PROCESSING")
	default:
		dot = ui.IdleDotStyle.Render("○ READY")
	}
	timer := ui.TimerStyle.Render(transcript.FormatElapsed(m.elapsed))
	return dot + "  " + timer + "  " + ui.StatusStyle.Render(m.statusText)
}

func (m Model) renderMainContent() string {
	chatW := m.chatPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.contentHeight()

	chatLines := strings.Split(m.renderChatPanel(chatW, contentH), "\n")
	transcriptLines := strings.Split(m.renderTranscriptPanel(transcriptW, contentH), "\n")

	divider := ui.DividerStyle.Render("│")

	var rows []string
	for i := 0; i < contentH; i++ {
		cl := strings.Repeat(" ", chatW)
		if i < len(chatLines) {
			cl = padRight(chatLines[i], chatW)
		}
		tr := ""
		if i < len(transcriptLines) {
			tr = transcriptLines[i]
		}
		rows = append(rows, cl+divider+tr)
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderChatPanel(width, height int) string {
	title := fmt.Sprintf("CHAT (%d)", len(m.chat.Messages()))
	var header string
	if m.focus == FocusChat {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	textWidth := max(10, width-8)
	var body []string
	for _, msg := range m.chat.Messages() {
		label := ui.UserLabelStyle.Render("You: ")
		if msg.Role == chat.RoleAI {
			label = ui.AILabelStyle.Render("AI:  ")
		}
		wrapped := wrapText(msg.Text, textWidth)
		body = append(body, " "+label+wrapped[0])
		for _, wl := range wrapped[1:] {
			body = append(body, "      "+wl)
		}
	}
	if len(body) == 0 {
		body = append(body, ui.DimStyle.Render("  No messages yet"))
	}

	// Input line sits at the bottom of the panel.
	input := m.chat.Input
	if m.focus == FocusChat {
		input += "▌"
	} else if input == "" {
		input = ui.DimStyle.Render("Tab to type a message")
	}
	inputLine := truncateToWidth(" > "+ui.InputStyle.Render(input), width)

	bodyH := max(0, height-2)
	if len(body) > bodyH {
		body = body[len(body)-bodyH:]
	}

	lines := []string{header}
	lines = append(lines, body...)
	for len(lines) < height-1 {
		lines = append(lines, "")
	}
	lines = append(lines, inputLine)

	for i, l := range lines {
		lines[i] = padRight(truncateToWidth(l, width), width)
	}
	return strings.Join(lines, "\n")
}

// transcriptLines wraps the finalized text and the styled interim tail.
func (m Model) transcriptLines(width int) []string {
	textWidth := max(10, width-2)
	var lines []string
	if strings.TrimSpace(m.buf.Final) != "" {
		lines = append(lines, wrapText(m.buf.Final, textWidth)...)
	}
	if m.buf.Interim != "" {
		for _, wl := range wrapText(m.buf.Interim+"▌", textWidth) {
			lines = append(lines, ui.PartialTextStyle.Render(wl))
		}
	}
	return lines
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}

	var header string
	if m.focus == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT") + badge
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT") + badge
	}

	lines := []string{header}
	contentHeight := height - 1

	displayLines := m.transcriptLines(width)
	switch {
	case m.errorKind == ErrUnsupported:
		lines = append(lines, "")
		lines = append(lines, ui.WarningStyle.Render("  Speech recognition unavailable."))
		lines = append(lines, ui.DimStyle.Render("  Start with: steno-daemon run"))
	case len(displayLines) == 0 && m.status == StatusReady:
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))
	case len(displayLines) == 0:
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Listening..."))
	default:
		start := 0
		if m.transcriptLive {
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		} else {
			start = m.transcriptScroll
		}
		start = max(0, start)
		end := min(start+contentHeight, len(displayLines))
		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderErrorBar() string {
	if m.errorKind == ErrUnsupported {
		return ui.WarningStyle.Render("Warning: ") + ui.ErrorTextStyle.Render(m.errorMessage)
	}
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	key := func(k, desc string, enabled bool) string {
		if !enabled {
			return ui.DisabledKeyStyle.Render(k + " " + desc)
		}
		return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
	}

	var parts []string
	if m.focus == FocusChat {
		parts = append(parts, key("Enter", "Send", true))
		parts = append(parts, key("Esc", "Back", true))
		parts = append(parts, key("Tab", "Focus", true))
		parts = append(parts, key("ctrl+c", "Quit", true))
		return strings.Join(parts, "  ")
	}

	switch m.status {
	case StatusRecording:
		parts = append(parts, key("Space", "Stop", true))
	case StatusProcessing:
		parts = append(parts, key("Space", "Processing", false))
	default:
		parts = append(parts, key("Space", "Record", m.supported && !m.starting))
	}
	parts = append(parts, key("c", "Clear", true))
	parts = append(parts, key("e", "Export", m.buf.Exportable()))
	parts = append(parts, key("p", "Persona", true))
	parts = append(parts, key("Tab", "Chat", true))
	parts = append(parts, key("↑↓", "Scroll", true))
	parts = append(parts, key("q", "Quit", true))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
	"github.com/regdesk/regdesk/internal/service"
	"github.com/regdesk/regdesk/pkg/docfile"
)

const (
	sidebarWidth = 44
	footerHeight = 2
	headerHeight = 1
)

// View composes the screen: header, sidebar plus conversation, notice line,
// and footer. Modals render centered over everything else.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderChatPane())
	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderNotices(),
		m.renderFooter(),
	)

	if m.modal != modalNone {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderModal())
	}
	return screen
}

func (m Model) chatWidth() int {
	w := m.width - sidebarWidth - 6
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) chatHeight() int {
	h := m.height - headerHeight - footerHeight - 7
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) renderHeader() string {
	title := "RegDesk"
	if wf, ok := m.svc.Workflow.Current(); ok {
		title = fmt.Sprintf("RegDesk - %s", wf.Name)
	}
	return headerStyle.Width(m.width).Render(title)
}

// renderSidebar shows the update feed, or the open workflow's document set
// when that pane has focus. Keeping the feed reachable inside a workflow is
// what lets documents be added from it.
func (m Model) renderSidebar() string {
	style := paneStyle
	if m.focus == paneFeed || m.focus == paneWorkflow {
		style = focusedPaneStyle
	}
	height := m.height - headerHeight - footerHeight - 3
	if _, ok := m.svc.Workflow.Current(); ok && m.focus == paneWorkflow {
		return style.Width(sidebarWidth).Height(height).Render(m.renderWorkflowDocs())
	}
	return style.Width(sidebarWidth).Height(height).Render(m.renderFeed())
}

func (m Model) renderFeed() string {
	var b strings.Builder

	label := "Press Releases"
	if m.feedKind == domain.DocTypeCircular {
		label = "Circulars"
	}
	b.WriteString(sectionStyle.Render(label))
	if m.svc.Feed.HasNew(m.feedKind) {
		b.WriteString(" " + newBadgeStyle.Render("NEW"))
	}
	b.WriteString("\n")

	categories := m.svc.Feed.Categories()
	if len(categories) > 1 {
		current := domain.CategoryAll
		if m.category < len(categories) {
			current = categories[m.category]
		}
		b.WriteString(categoryStyle.Render(fmt.Sprintf("Category: %s", current)) + "\n")
	}
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}
	b.WriteString("\n")

	newItems, _ := m.svc.Feed.Partition(m.feedKind)
	items := m.visibleFeed()
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("No updates."))
		return b.String()
	}

	isNew := make(map[string]bool, len(newItems))
	for _, it := range newItems {
		isNew[it.Key()] = true
	}

	wroteNewHeader, wrotePrevHeader := false, false
	for i, item := range items {
		if isNew[item.Key()] && !wroteNewHeader {
			b.WriteString(sectionStyle.Render("New Updates") + "\n")
			wroteNewHeader = true
		}
		if !isNew[item.Key()] && !wrotePrevHeader {
			if wroteNewHeader {
				b.WriteString("\n")
			}
			b.WriteString(sectionStyle.Render("Previous Updates") + "\n")
			wrotePrevHeader = true
		}
		b.WriteString(m.renderFeedItem(item, i == m.cursor) + "\n")
	}
	return b.String()
}

func (m Model) renderFeedItem(item domain.FeedItem, selected bool) string {
	title := truncate(item.Title, sidebarWidth-6)
	line := fmt.Sprintf("%s\n  %s", title, dimStyle.Render(item.Date()))
	if item.DocID == "" {
		line = fmt.Sprintf("%s %s\n  %s", title, dimStyle.Render("(no doc)"), dimStyle.Render(item.Date()))
	}
	if selected {
		return selectedItemStyle.Render(truncate(item.Title, sidebarWidth-6)) +
			"\n  " + dimStyle.Render(item.Date())
	}
	return line
}

func (m Model) renderWorkflowDocs() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Workflow Documents") + "\n\n")

	docs := m.svc.Workflow.FilteredDocuments(m.search.Value())
	if len(docs) == 0 {
		b.WriteString(dimStyle.Render("No documents in this workflow yet.\nAdd some from the updates feed."))
		return b.String()
	}
	for i, doc := range docs {
		title := truncate(doc.Title, sidebarWidth-6)
		switch {
		case i == m.workflowCursor && m.focus == paneWorkflow:
			b.WriteString(selectedItemStyle.Render(title))
		case doc.Stub:
			b.WriteString(dimStyle.Render(title + " (unavailable)"))
		default:
			b.WriteString(title)
		}
		b.WriteString("\n  " + dimStyle.Render(string(doc.WorkflowDocType)) + "\n")
	}
	return b.String()
}

func (m Model) renderChatPane() string {
	style := paneStyle
	if m.focus == paneChat {
		style = focusedPaneStyle
	}

	var status string
	switch {
	case m.chatBusy():
		status = m.spin.View() + " Thinking..."
	default:
		status = m.selectionStatus()
	}

	input := m.input.View()
	if !m.inputEnabled() && !m.chatBusy() {
		input = dimStyle.Render("Select a document to start chatting...")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.chatView.View(),
		dimStyle.Render(status),
		input,
	)
	return style.Width(m.chatWidth() + 2).Render(content)
}

func (m Model) selectionStatus() string {
	if _, ok := m.svc.Workflow.Current(); ok {
		n := len(m.svc.Workflow.Documents())
		return fmt.Sprintf("Workflow chat (%d documents)", n)
	}
	switch m.svc.Selection.Status() {
	case service.StatusProvisioning:
		item, _ := m.svc.Selection.Pending()
		return fmt.Sprintf("Preparing %q...", truncate(item.Title, 40))
	case service.StatusReady:
		item, _ := m.svc.Selection.Current()
		return fmt.Sprintf("Chatting about %q", truncate(item.Title, 40))
	default:
		return "No document selected"
	}
}

// renderTranscript formats the active conversation for the viewport.
func (m Model) renderTranscript() string {
	msgs := m.transcript()
	width := m.chatWidth()
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderMessage(msg, width))
	}
	return b.String()
}

func renderMessage(msg domain.ChatMessage, width int) string {
	var b strings.Builder
	switch msg.Role {
	case domain.RoleUser:
		b.WriteString(userMsgStyle.Render("You") + "\n")
	case domain.RoleSystem:
		b.WriteString(systemMsgStyle.Render(msg.Content) + "\n")
		return b.String()
	default:
		label := "Assistant"
		if msg.IsSummary {
			label = "Assistant " + summaryBadgeStyle.Render("[summary]")
		}
		b.WriteString(assistantMsgStyle.Render(label) + "\n")
	}
	b.WriteString(wrap(msg.Content, width) + "\n")

	for _, ex := range msg.Context {
		ref := "Source"
		if ex.PageNumber > 0 {
			ref = fmt.Sprintf("Source (page %d)", ex.PageNumber)
		}
		b.WriteString(excerptStyle.Render(ref+": "+truncate(ex.Chunk, width-10)) + "\n")
	}
	if msg.Document != nil {
		b.WriteString(excerptStyle.Render(fmt.Sprintf("Attachment: %s (press d to view)", docfile.Filename(msg.Document))) + "\n")
	}
	return b.String()
}

func (m Model) renderNotices() string {
	notices := m.svc.Notices.Active()
	if len(notices) == 0 {
		return ""
	}
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		parts = append(parts, noticeStyle(n.Level).Render(fmt.Sprintf("%s: %s", n.Title, n.Message)))
	}
	return strings.Join(parts, "  ")
}

func noticeStyle(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelSuccess:
		return noticeSuccessStyle
	case notify.LevelWarning:
		return noticeWarnStyle
	case notify.LevelError:
		return noticeErrorStyle
	default:
		return noticeInfoStyle
	}
}

func (m Model) renderFooter() string {
	keys := [][2]string{
		{"tab", "switch pane"},
		{"enter", "select"},
		{"/", "search"},
		{"p/c", "releases/circulars"},
		{"w", "workflows"},
		{"u", "upload"},
		{"r", "refresh"},
		{"D", "dismiss notice"},
		{"q", "quit"},
	}
	if _, ok := m.svc.Workflow.Current(); ok {
		keys = [][2]string{
			{"tab", "switch pane"},
			{"a", "add doc"},
			{"x", "remove doc"},
			{"esc", "leave workflow"},
			{"q", "quit"},
		}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k[0])+" "+footerStyle.Render(k[1]))
	}
	line := strings.Join(parts, "  ")
	if m.cfg.Community.InviteURL != "" {
		line += "  " + dimStyle.Render("community: "+m.cfg.Community.InviteURL)
	}
	return footerStyle.Render(line)
}

func (m Model) renderModal() string {
	switch m.modal {
	case modalPullChat:
		item, _ := m.svc.Selection.Pending()
		body := fmt.Sprintf("Pull & Chat\n\n%s\n\nPrepare this document for chat?", wrap(item.Title, 50))
		if m.svc.Selection.Status() == service.StatusProvisioning {
			body = fmt.Sprintf("Pull & Chat\n\n%s\n\n%s Preparing document...", wrap(item.Title, 50), m.spin.View())
			return modalStyle.Render(body + "\n\n" + footerKeyStyle.Render("n") + footerStyle.Render(" cancel"))
		}
		return modalStyle.Render(body + "\n\n" + footerKeyStyle.Render("y") +
			footerStyle.Render(" confirm   ") + footerKeyStyle.Render("n") + footerStyle.Render(" cancel"))

	case modalMutation:
		title, remove, ok := m.svc.Workflow.PendingMutation()
		if !ok {
			return modalStyle.Render("Working...")
		}
		verb := "Add"
		if remove {
			verb = "Remove"
		}
		body := fmt.Sprintf("%s document\n\n%s", verb, wrap(title, 50))
		if m.svc.Workflow.Mutation() == service.MutationSubmitting {
			return modalStyle.Render(body + "\n\n" + m.spin.View() + " Working...")
		}
		return modalStyle.Render(body + "\n\n" + footerKeyStyle.Render("y") +
			footerStyle.Render(" confirm   ") + footerKeyStyle.Render("n") + footerStyle.Render(" cancel"))

	case modalDocument:
		body := fmt.Sprintf("Generated Document\n\n%s", wrap(docfile.Preview(m.docPreview), 60))
		keys := footerKeyStyle.Render("esc") + footerStyle.Render(" close")
		if m.docPreview != nil && m.docPreview.ContentBase64 != "" {
			keys = footerKeyStyle.Render("s") + footerStyle.Render(" save   ") + keys
		}
		return modalStyle.Render(body + "\n\n" + keys)

	case modalWorkflows:
		var b strings.Builder
		b.WriteString(sectionStyle.Render("Workflows") + "\n\n")
		workflows := m.svc.Workflow.Workflows()
		if len(workflows) == 0 {
			b.WriteString(dimStyle.Render("No workflows yet. Press n to create one.") + "\n")
		}
		for i, wf := range workflows {
			line := fmt.Sprintf("%s (%d docs)", wf.Name, len(wf.Documents))
			if i == m.workflowCursor {
				line = selectedItemStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + footerKeyStyle.Render("enter") + footerStyle.Render(" open   ") +
			footerKeyStyle.Render("n") + footerStyle.Render(" new   ") +
			footerKeyStyle.Render("x") + footerStyle.Render(" delete   ") +
			footerKeyStyle.Render("esc") + footerStyle.Render(" close"))
		return modalStyle.Render(b.String())

	case modalUpload:
		body := "Upload Regulatory Document\n\n" + m.pathInput.View()
		if m.svc.Upload.Busy() {
			return modalStyle.Render(body + "\n\n" + m.spin.View() + " Uploading...")
		}
		return modalStyle.Render(body + "\n\n" +
			footerKeyStyle.Render("enter") + footerStyle.Render(" upload   ") +
			footerKeyStyle.Render("esc") + footerStyle.Render(" cancel"))

	case modalNewWorkflow:
		return modalStyle.Render("New Workflow\n\n" + m.nameInput.View() + "\n\n" +
			footerKeyStyle.Render("enter") + footerStyle.Render(" create   ") +
			footerKeyStyle.Render("esc") + footerStyle.Render(" cancel"))

	case modalDeleteWorkflow:
		workflows := m.svc.Workflow.Workflows()
		name := ""
		if m.workflowCursor < len(workflows) {
			name = workflows[m.workflowCursor].Name
		}
		return modalStyle.Render(fmt.Sprintf("Delete workflow %q?\n\nThis cannot be undone.\n\n", name) +
			footerKeyStyle.Render("y") + footerStyle.Render(" delete   ") +
			footerKeyStyle.Render("n") + footerStyle.Render(" cancel"))
	}
	return ""
}

// truncate shortens to max display runes; slicing runes rather than bytes
// keeps multi-byte titles valid UTF-8.
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// wrap breaks text on spaces to fit the given width. Long unbreakable runs
// are left intact.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		lineLen := 0
		for j, word := range strings.Fields(line) {
			if j > 0 && lineLen+1+len(word) > width {
				b.WriteString("\n")
				lineLen = 0
			} else if j > 0 {
				b.WriteString(" ")
				lineLen++
			}
			b.WriteString(word)
			lineLen += len(word)
		}
	}
	return b.String()
}

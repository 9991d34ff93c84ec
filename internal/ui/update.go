package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/service"
)

// Update routes messages. Key handling depends on which surface has focus
// and whether a modal is open; service completion messages mostly just
// trigger a re-render because the services already hold the new state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chatView = viewport.New(m.chatWidth(), m.chatHeight())
		m.syncTranscript()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.chatBusy() {
			m.syncTranscript()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case feedRefreshedMsg:
		if msg.kind == m.feedKind {
			m.clampFeedCursor()
		}
		return m, nil

	case markReadDoneMsg:
		m.clampFeedCursor()
		return m, nil

	case chatHydratedMsg, summaryDoneMsg:
		m.syncTranscript()
		return m, nil

	case chatDoneMsg, workflowChatDoneMsg:
		m.syncTranscript()
		if doc := m.lastDocument(); doc != nil {
			m.docPreview = doc
			m.modal = modalDocument
		}
		return m, nil

	case selectionStagedMsg:
		if msg.err == nil {
			m.modal = modalPullChat
		}
		return m, nil

	case selectionCommittedMsg:
		if msg.err == nil {
			m.modal = modalNone
			m.focus = paneChat
			m.input.Placeholder = "Ask about this document..."
			m.input.Focus()
		} else {
			m.modal = modalNone
		}
		m.syncTranscript()
		return m, nil

	case workflowsLoadedMsg:
		if msg.err == nil {
			m.modal = modalWorkflows
			m.workflowCursor = 0
		}
		return m, nil

	case workflowOpenedMsg:
		if msg.err == nil {
			m.modal = modalNone
			m.focus = paneChat
			m.input.Focus()
		}
		m.syncTranscript()
		return m, nil

	case workflowCreatedMsg:
		if msg.err == nil && msg.workflow != nil {
			m.modal = modalNone
			return m, openWorkflowCmd(m.svc.Workflow, msg.workflow.ID)
		}
		return m, nil

	case workflowDeletedMsg:
		m.modal = modalWorkflows
		m.clampWorkflowCursor()
		m.syncTranscript()
		return m, nil

	case mutationDoneMsg:
		m.modal = modalNone
		m.clampFeedCursor()
		return m, nil

	case chatClearedMsg:
		m.syncTranscript()
		return m, nil

	case uploadDoneMsg:
		// The modal survives a failed upload so the path can be corrected.
		if msg.err == nil {
			m.modal = modalNone
			m.pathInput.Blur()
		}
		return m, nil

	case docSavedMsg:
		if msg.err != nil {
			m.svc.Notices.Error("Download", "Failed to save document")
		} else {
			m.svc.Notices.Success("Download", "Saved "+msg.path)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}

	if m.searching {
		switch msg.Type {
		case tea.KeyEsc:
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.clampFeedCursor()
			return m, nil
		case tea.KeyEnter:
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.clampFeedCursor()
		return m, cmd
	}

	if m.focus == paneChat && m.input.Focused() {
		switch msg.Type {
		case tea.KeyEsc:
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			return m.submitInput()
		case tea.KeyTab:
			// fall through to pane cycling below
		default:
			if m.inputEnabled() {
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.focus = m.nextPane()
		if m.focus == paneChat {
			m.input.Focus()
		} else {
			m.input.Blur()
		}
		return m, nil
	case "esc":
		if _, ok := m.svc.Workflow.Current(); ok {
			m.svc.Workflow.Close()
			m.syncTranscript()
			return m, nil
		}
		return m, nil
	case "w":
		return m, loadWorkflowsCmd(m.svc.Workflow)
	case "u":
		m.modal = modalUpload
		m.pathInput.SetValue("")
		m.pathInput.Focus()
		return m, nil
	case "D":
		m.svc.Notices.DismissOldest()
		return m, nil
	}

	switch m.focus {
	case paneFeed:
		return m.handleFeedKey(msg)
	case paneChat:
		return m.handleChatKey(msg)
	case paneWorkflow:
		return m.handleWorkflowKey(msg)
	}
	return m, nil
}

func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.visibleFeed()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "p":
		m.feedKind = domain.DocTypePressRelease
		m.cursor = 0
		m.category = 0
	case "c":
		m.feedKind = domain.DocTypeCircular
		m.cursor = 0
		m.category = 0
	case "left", "h":
		if m.category > 0 {
			m.category--
			m.clampFeedCursor()
		}
	case "right", "l":
		if m.category < len(m.svc.Feed.Categories())-1 {
			m.category++
			m.clampFeedCursor()
		}
	case "/":
		m.searching = true
		m.search.Focus()
	case "r":
		return m, refreshFeedCmd(m.svc.Feed, m.feedKind)
	case "m":
		if m.cursor < len(items) && m.feedKind == domain.DocTypePressRelease {
			return m, markReadCmd(m.svc.Feed, items[m.cursor].Link)
		}
	case "a":
		if m.cursor < len(items) {
			if _, ok := m.svc.Workflow.Current(); ok {
				if err := m.svc.Workflow.BeginAdd(items[m.cursor]); err == nil {
					m.modal = modalMutation
				}
			}
		}
	case "enter":
		if m.cursor < len(items) {
			return m, stageSelectionCmd(m.svc.Selection, items[m.cursor])
		}
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "i", "enter":
		if m.inputEnabled() {
			m.input.Focus()
		}
		return m, nil
	case "s":
		if _, ok := m.svc.Workflow.Current(); ok {
			return m, nil
		}
		if item, ok := m.svc.Selection.Current(); ok && !m.chatBusy() {
			return m, summarizeCmd(m.svc.Chat, item.DocID)
		}
		return m, nil
	case "d":
		if doc := m.lastDocument(); doc != nil {
			m.docPreview = doc
			m.modal = modalDocument
		}
		return m, nil
	case "x":
		if _, ok := m.svc.Workflow.Current(); ok {
			return m, clearWorkflowChatCmd(m.svc.Workflow)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	return m, cmd
}

func (m Model) handleWorkflowKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	docs := m.svc.Workflow.FilteredDocuments(m.search.Value())
	switch msg.String() {
	case "up", "k":
		if m.workflowCursor > 0 {
			m.workflowCursor--
		}
	case "down", "j":
		if m.workflowCursor < len(docs)-1 {
			m.workflowCursor++
		}
	case "x":
		if m.workflowCursor < len(docs) {
			if err := m.svc.Workflow.BeginRemove(docs[m.workflowCursor]); err == nil {
				m.modal = modalMutation
			}
		}
	case "enter":
		if m.workflowCursor < len(docs) {
			doc := docs[m.workflowCursor]
			if doc.Stub || doc.DocID == "" {
				return m, nil
			}
			m.svc.Workflow.Close()
			m.focus = paneChat
			return m, selectProvisionedCmd(m.svc.Selection, doc.FeedItem)
		}
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalPullChat:
		switch msg.String() {
		case "y", "enter":
			return m, confirmSelectionCmd(m.svc.Selection)
		case "n", "esc":
			m.svc.Selection.Cancel()
			m.modal = modalNone
		}
		return m, nil

	case modalMutation:
		switch msg.String() {
		case "y", "enter":
			if m.svc.Workflow.Mutation() == service.MutationConfirming {
				return m, confirmMutationCmd(m.svc.Workflow)
			}
		case "n", "esc":
			m.svc.Workflow.CancelMutation()
			m.modal = modalNone
		}
		return m, nil

	case modalDocument:
		switch msg.String() {
		case "s":
			if m.docPreview != nil && m.docPreview.ContentBase64 != "" {
				return m, saveDocCmd(m.docPreview, m.cfg.Download.Dir)
			}
		case "esc", "q", "enter":
			m.modal = modalNone
			m.docPreview = nil
		}
		return m, nil

	case modalWorkflows:
		workflows := m.svc.Workflow.Workflows()
		switch msg.String() {
		case "up", "k":
			if m.workflowCursor > 0 {
				m.workflowCursor--
			}
		case "down", "j":
			if m.workflowCursor < len(workflows)-1 {
				m.workflowCursor++
			}
		case "enter":
			if m.workflowCursor < len(workflows) {
				return m, openWorkflowCmd(m.svc.Workflow, workflows[m.workflowCursor].ID)
			}
		case "n":
			m.modal = modalNewWorkflow
			m.nameInput.SetValue("")
			m.nameInput.Focus()
		case "x":
			if m.workflowCursor < len(workflows) {
				m.modal = modalDeleteWorkflow
			}
		case "esc", "q":
			m.modal = modalNone
		}
		return m, nil

	case modalNewWorkflow:
		switch msg.Type {
		case tea.KeyEnter:
			name := m.nameInput.Value()
			m.nameInput.Blur()
			if name == "" {
				m.modal = modalWorkflows
				return m, nil
			}
			return m, createWorkflowCmd(m.svc.Workflow, name, "")
		case tea.KeyEsc:
			m.nameInput.Blur()
			m.modal = modalWorkflows
			return m, nil
		}
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd

	case modalUpload:
		switch msg.Type {
		case tea.KeyEnter:
			if m.svc.Upload.Busy() {
				return m, nil
			}
			path := m.pathInput.Value()
			if path == "" {
				m.pathInput.Blur()
				m.modal = modalNone
				return m, nil
			}
			return m, uploadDocCmd(m.svc.Upload, path)
		case tea.KeyEsc:
			m.pathInput.Blur()
			m.modal = modalNone
			return m, nil
		}
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd

	case modalDeleteWorkflow:
		workflows := m.svc.Workflow.Workflows()
		switch msg.String() {
		case "y", "enter":
			if m.workflowCursor < len(workflows) {
				return m, deleteWorkflowCmd(m.svc.Workflow, workflows[m.workflowCursor].ID)
			}
			m.modal = modalWorkflows
		case "n", "esc":
			m.modal = modalWorkflows
		}
		return m, nil
	}
	return m, nil
}

// submitInput dispatches the composed message to whichever conversation is
// active. The input clears immediately; the user's entry appears in the
// transcript synchronously because the services append it before calling out.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")

	if _, ok := m.svc.Workflow.Current(); ok {
		cmd := submitWorkflowChatCmd(m.svc.Workflow, text)
		m.syncTranscript()
		return m, cmd
	}
	item, ok := m.svc.Selection.Current()
	if !ok {
		return m, nil
	}
	cmd := submitChatCmd(m.svc.Chat, text, item.DocID)
	m.syncTranscript()
	return m, cmd
}

func (m *Model) nextPane() pane {
	switch m.focus {
	case paneFeed:
		return paneChat
	case paneChat:
		if _, ok := m.svc.Workflow.Current(); ok {
			return paneWorkflow
		}
		return paneFeed
	default:
		return paneFeed
	}
}

func (m *Model) clampFeedCursor() {
	n := len(m.visibleFeed())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) clampWorkflowCursor() {
	n := len(m.svc.Workflow.Workflows())
	if m.workflowCursor >= n {
		m.workflowCursor = n - 1
	}
	if m.workflowCursor < 0 {
		m.workflowCursor = 0
	}
}

// lastDocument returns the generated document attached to the newest
// transcript entry, if any.
func (m Model) lastDocument() *domain.GeneratedDocument {
	msgs := m.transcript()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1].Document
}

// syncTranscript re-renders the conversation into the viewport and keeps it
// pinned to the newest entry.
func (m *Model) syncTranscript() {
	if m.width == 0 {
		return
	}
	m.chatView.SetContent(m.renderTranscript())
	m.chatView.GotoBottom()
}

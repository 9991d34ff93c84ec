// Package ui renders the terminal front-end: feed sidebar, chat transcript,
// workflow document pane, and transient notices. All mutable application
// state lives in the services; the model only keeps view state (focus,
// cursors, inputs) and reads service snapshots when rendering.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/config"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
	"github.com/regdesk/regdesk/internal/service"
)

type pane int

const (
	paneFeed pane = iota
	paneChat
	paneWorkflow
)

type modal int

const (
	modalNone modal = iota
	modalPullChat
	modalMutation
	modalDocument
	modalWorkflows
	modalNewWorkflow
	modalDeleteWorkflow
	modalUpload
)

// Services groups the state owners the view reads from and dispatches to.
type Services struct {
	Feed      *service.FeedService
	Chat      *service.ChatService
	Selection *service.SelectionService
	Workflow  *service.WorkflowService
	Upload    *service.UploadService
	Notices   *notify.Center
}

// Model is the bubbletea model for the whole screen.
type Model struct {
	cfg    *config.Config
	logger *zap.Logger
	svc    Services

	width  int
	height int

	focus    pane
	feedKind domain.DocType
	cursor   int

	search    textinput.Model
	searching bool
	category  int

	input    textinput.Model
	chatView viewport.Model
	spin     spinner.Model

	modal          modal
	workflowCursor int
	nameInput      textinput.Model
	pathInput      textinput.Model

	docPreview *domain.GeneratedDocument

	quitting bool
}

// New builds the initial model.
func New(cfg *config.Config, logger *zap.Logger, svc Services) Model {
	search := textinput.New()
	search.Placeholder = "Search updates..."
	search.CharLimit = 120

	input := textinput.New()
	input.Placeholder = "Select a document to start chatting..."
	input.CharLimit = 2000

	name := textinput.New()
	name.Placeholder = "Workflow name"
	name.CharLimit = 120

	path := textinput.New()
	path.Placeholder = "Path to a PDF file"
	path.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:       cfg,
		logger:    logger,
		svc:       svc,
		feedKind:  domain.DocTypePressRelease,
		search:    search,
		input:     input,
		nameInput: name,
		pathInput: path,
		spin:      sp,
	}
}

// Init hydrates the transcript, fetches both feeds, and starts the spinner
// tick. Subsequent refreshes arrive from the feed service's poller.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		hydrateChatCmd(m.svc.Chat),
		refreshFeedCmd(m.svc.Feed, domain.DocTypePressRelease),
		refreshFeedCmd(m.svc.Feed, domain.DocTypeCircular),
		m.spin.Tick,
	)
}

// visibleFeed applies the local search/category narrowing for rendering.
func (m Model) visibleFeed() []domain.FeedItem {
	categories := m.svc.Feed.Categories()
	category := domain.CategoryAll
	if m.category < len(categories) {
		category = categories[m.category]
	}
	return m.svc.Feed.Filtered(m.feedKind, m.search.Value(), category)
}

// transcript picks the active conversation: workflow chat when a workflow
// is open, the global document chat otherwise.
func (m Model) transcript() []domain.ChatMessage {
	if _, ok := m.svc.Workflow.Current(); ok {
		return m.svc.Workflow.ChatMessages()
	}
	return m.svc.Chat.Messages()
}

func (m Model) chatBusy() bool {
	if _, ok := m.svc.Workflow.Current(); ok {
		return m.svc.Workflow.ChatBusy()
	}
	return m.svc.Chat.Busy()
}

// inputEnabled mirrors the affordance rules: disabled while a turn is
// outstanding, and in the global chat until a selection is ready.
func (m Model) inputEnabled() bool {
	if m.chatBusy() {
		return false
	}
	if _, ok := m.svc.Workflow.Current(); ok {
		return true
	}
	return m.svc.Selection.Ready()
}

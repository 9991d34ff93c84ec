package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/service"
	"github.com/regdesk/regdesk/pkg/docfile"
)

// Messages delivered back into Update after a service call finishes. The
// services own the results; messages only signal that a re-render (and
// occasionally a follow-up command) is due.
type (
	feedRefreshedMsg struct {
		kind domain.DocType
		err  error
	}
	markReadDoneMsg struct{ err error }

	chatHydratedMsg struct{}
	chatDoneMsg     struct{ err error }
	summaryDoneMsg  struct{ err error }

	selectionStagedMsg    struct{ err error }
	selectionCommittedMsg struct{ err error }

	workflowsLoadedMsg struct{ err error }
	workflowOpenedMsg  struct{ err error }
	workflowCreatedMsg struct {
		workflow *domain.Workflow
		err      error
	}
	workflowDeletedMsg  struct{ err error }
	mutationDoneMsg     struct{ err error }
	workflowChatDoneMsg struct{ err error }
	chatClearedMsg      struct{ err error }

	uploadDoneMsg struct{ err error }

	docSavedMsg struct {
		path string
		err  error
	}
)

// FeedRefreshed is the message a background poller sends into the program
// after it refreshes a feed, so the view re-reads the snapshot.
func FeedRefreshed(kind domain.DocType, err error) tea.Msg {
	return feedRefreshedMsg{kind: kind, err: err}
}

func refreshFeedCmd(feed *service.FeedService, kind domain.DocType) tea.Cmd {
	return func() tea.Msg {
		err := feed.Refresh(context.Background(), kind)
		return feedRefreshedMsg{kind: kind, err: err}
	}
}

func markReadCmd(feed *service.FeedService, link string) tea.Cmd {
	return func() tea.Msg {
		return markReadDoneMsg{err: feed.MarkRead(context.Background(), link)}
	}
}

func hydrateChatCmd(chat *service.ChatService) tea.Cmd {
	return func() tea.Msg {
		chat.Hydrate(context.Background())
		return chatHydratedMsg{}
	}
}

func submitChatCmd(chat *service.ChatService, text, docID string) tea.Cmd {
	return func() tea.Msg {
		return chatDoneMsg{err: chat.Submit(context.Background(), text, docID)}
	}
}

func summarizeCmd(chat *service.ChatService, docID string) tea.Cmd {
	return func() tea.Msg {
		return summaryDoneMsg{err: chat.Summarize(context.Background(), docID)}
	}
}

func stageSelectionCmd(sel *service.SelectionService, item domain.FeedItem) tea.Cmd {
	return func() tea.Msg {
		return selectionStagedMsg{err: sel.Stage(item)}
	}
}

func confirmSelectionCmd(sel *service.SelectionService) tea.Cmd {
	return func() tea.Msg {
		return selectionCommittedMsg{err: sel.Confirm(context.Background())}
	}
}

func selectProvisionedCmd(sel *service.SelectionService, item domain.FeedItem) tea.Cmd {
	return func() tea.Msg {
		return selectionCommittedMsg{err: sel.SelectProvisioned(item)}
	}
}

func loadWorkflowsCmd(wf *service.WorkflowService) tea.Cmd {
	return func() tea.Msg {
		return workflowsLoadedMsg{err: wf.List(context.Background())}
	}
}

func openWorkflowCmd(wf *service.WorkflowService, id string) tea.Cmd {
	return func() tea.Msg {
		return workflowOpenedMsg{err: wf.Open(context.Background(), id)}
	}
}

func createWorkflowCmd(wf *service.WorkflowService, name, description string) tea.Cmd {
	return func() tea.Msg {
		created, err := wf.Create(context.Background(), name, description)
		return workflowCreatedMsg{workflow: created, err: err}
	}
}

func deleteWorkflowCmd(wf *service.WorkflowService, id string) tea.Cmd {
	return func() tea.Msg {
		return workflowDeletedMsg{err: wf.Delete(context.Background(), id)}
	}
}

func confirmMutationCmd(wf *service.WorkflowService) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{err: wf.ConfirmMutation(context.Background())}
	}
}

func submitWorkflowChatCmd(wf *service.WorkflowService, text string) tea.Cmd {
	return func() tea.Msg {
		return workflowChatDoneMsg{err: wf.SubmitChat(context.Background(), text)}
	}
}

func clearWorkflowChatCmd(wf *service.WorkflowService) tea.Cmd {
	return func() tea.Msg {
		return chatClearedMsg{err: wf.ClearChat(context.Background())}
	}
}

func uploadDocCmd(up *service.UploadService, path string) tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg{err: up.Upload(context.Background(), path)}
	}
}

func saveDocCmd(doc *domain.GeneratedDocument, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := docfile.Save(doc, dir)
		return docSavedMsg{path: path, err: err}
	}
}

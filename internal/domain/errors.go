package domain

import "errors"

var (
	// ErrNotFound indicates the backend has no such resource.
	ErrNotFound = errors.New("resource not found")
	// ErrBackend indicates the backend answered with status "error".
	ErrBackend = errors.New("backend error")
	// ErrBusy indicates a request is already in flight for this resource.
	ErrBusy = errors.New("request already in flight")
	// ErrNoDocument indicates the item has no chat-able document identity.
	ErrNoDocument = errors.New("document not available for chat")
	// ErrEmptyMessage indicates a blank chat submission.
	ErrEmptyMessage = errors.New("empty message")
	// ErrUnauthenticated indicates no signed-in user identity.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrNoWorkflowDocuments indicates a workflow chat with an empty document set.
	ErrNoWorkflowDocuments = errors.New("no documents available in this workflow")
	// ErrNotPDF indicates an upload that is not a PDF file.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrCanceled indicates the user withdrew the operation before it settled.
	ErrCanceled = errors.New("operation canceled")
)

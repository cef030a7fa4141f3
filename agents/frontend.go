package agents

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
)

// Notification is a user-facing event collected by the frontend.
type Notification struct {
	Kind    string
	From    string
	Text    string
	Payload any
}

// Frontend turns agent messages into notifications for the user interface.
// Notifications beyond the buffer size are dropped.
type Frontend struct {
	*Agent
	out chan Notification
}

func NewFrontend(broker *messaging.Broker, buffer int, opts ...Option) (*Frontend, error) {
	a, err := newAgent(NameFrontend, "frontend", broker, nil, opts)
	if err != nil {
		return nil, err
	}
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Frontend{Agent: a, out: make(chan Notification, buffer)}, nil
}

// Notifications delivers collected notifications.
func (f *Frontend) Notifications() <-chan Notification {
	return f.out
}

// NotifyDocumentAdded tells the user a new document is being processed.
func (f *Frontend) NotifyDocumentAdded(path string) {
	f.push(Notification{
		Kind:    core.MessageTypeDocumentDetected,
		From:    NameWatcher,
		Text:    fmt.Sprintf("I notice you've added %q. Processing it now.", filepath.Base(path)),
		Payload: DocumentDetected{Path: path},
	})
}

func (f *Frontend) HandleMessage(ctx context.Context, msg core.Message) {
	n := Notification{Kind: msg.MessageType, From: msg.Sender, Payload: msg.Content}
	switch c := msg.Content.(type) {
	case Engagement:
		if c.Error != "" {
			n.Text = fmt.Sprintf("Could not analyze %s: %s", c.Document, c.Error)
		} else if c.Analysis != nil {
			n.Text = fmt.Sprintf("%s is about %s", c.Document, c.Analysis.Topic)
		} else {
			n.Text = fmt.Sprintf("Analysis ready for %s", c.Document)
		}
	case FormattedResults:
		n.Text = fmt.Sprintf("%d results for %q", len(c.Results), c.Query)
	case Answer:
		n.Text = c.Answer
		if c.Error != "" {
			n.Text = "I'm sorry, I couldn't find an answer to that question."
		}
	case FlowUpdate:
		n.Text = fmt.Sprintf("%s: %s", c.Document, c.Status)
	case Notice:
		n.Text = c.Error
	default:
		f.Agent.HandleMessage(ctx, msg)
		return
	}
	f.push(n)
}

func (f *Frontend) push(n Notification) {
	select {
	case f.out <- n:
	default:
		f.logger.Warn("notification buffer full, dropping", "kind", n.Kind)
	}
}

func (f *Frontend) Run(ctx context.Context) error {
	return f.Serve(ctx, f)
}

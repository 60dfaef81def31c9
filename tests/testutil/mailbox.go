package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// FakeMessage is one message held by FakeMailbox.
type FakeMessage struct {
	Ref         model.MessageRef
	Raw         []byte
	Tree        *model.Part
	Attachments []model.AttachmentRef

	// Content maps part refs to attachment bytes.
	Content map[string][]byte
}

// FakeMailbox is an in-memory source.Mailbox for tests.
type FakeMailbox struct {
	mu       sync.Mutex
	messages map[string]*FakeMessage
	tags     []model.MailTag

	Caps source.Capabilities

	// CreateTagErr, when set, is returned by CreateTag.
	CreateTagErr error

	// SetTagsErr, when set, is returned by SetMessageTags.
	SetTagsErr error

	// SetTagsCalls counts SetMessageTags invocations.
	SetTagsCalls int
}

var _ source.Mailbox = (*FakeMailbox)(nil)

// NewFakeMailbox returns an empty mailbox with a native tag catalogue.
func NewFakeMailbox() *FakeMailbox {
	return &FakeMailbox{
		messages: make(map[string]*FakeMessage),
		Caps:     source.Capabilities{TagCatalogue: true},
	}
}

// Add stores a message under m.Ref.ID.
func (f *FakeMailbox) Add(m *FakeMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.Content == nil {
		m.Content = make(map[string][]byte)
	}
	f.messages[m.Ref.ID] = m
}

// AddTag seeds the tag catalogue.
func (f *FakeMailbox) AddTag(tag model.MailTag) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tag)
}

// Tags returns the tag keys of a message.
func (f *FakeMailbox) Tags(messageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return nil
	}
	return append([]string(nil), m.Ref.Tags...)
}

func (f *FakeMailbox) get(messageID string) (*FakeMessage, error) {
	m, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, source.ErrMessageNotFound)
	}
	return m, nil
}

func (f *FakeMailbox) Message(_ context.Context, messageID string) (*model.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(messageID)
	if err != nil {
		return nil, err
	}
	ref := m.Ref
	ref.Tags = append([]string(nil), m.Ref.Tags...)
	return &ref, nil
}

func (f *FakeMailbox) ListAttachments(_ context.Context, messageID string) ([]model.AttachmentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(messageID)
	if err != nil {
		return nil, err
	}
	return append([]model.AttachmentRef(nil), m.Attachments...), nil
}

func (f *FakeMailbox) AttachmentBytes(_ context.Context, messageID, partRef string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(messageID)
	if err != nil {
		return nil, err
	}
	data, ok := m.Content[partRef]
	if !ok {
		return nil, fmt.Errorf("part %s: %w", partRef, source.ErrPartNotFound)
	}
	return data, nil
}

func (f *FakeMailbox) RawMessage(_ context.Context, messageID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(messageID)
	if err != nil {
		return nil, err
	}
	return m.Raw, nil
}

func (f *FakeMailbox) ParsedMessage(_ context.Context, messageID string) (*model.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.get(messageID)
	if err != nil {
		return nil, err
	}
	if m.Tree == nil {
		return &model.Part{}, nil
	}
	return m.Tree, nil
}

func (f *FakeMailbox) ListTags(context.Context) ([]model.MailTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MailTag(nil), f.tags...), nil
}

func (f *FakeMailbox) CreateTag(_ context.Context, tag model.MailTag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateTagErr != nil {
		return f.CreateTagErr
	}
	f.tags = append(f.tags, tag)
	return nil
}

func (f *FakeMailbox) SetMessageTags(_ context.Context, messageID string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetTagsCalls++
	if f.SetTagsErr != nil {
		return f.SetTagsErr
	}
	m, err := f.get(messageID)
	if err != nil {
		return err
	}
	m.Ref.Tags = append([]string(nil), keys...)
	return nil
}

func (f *FakeMailbox) Capabilities(context.Context) (source.Capabilities, error) {
	return f.Caps, nil
}

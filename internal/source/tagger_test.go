package source_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
	"github.com/nhle/paperless-upload/tests/testutil"
)

var paperlessTag = model.MailTag{Key: "paperless", Label: "Paperless", Color: "#17a2b8"}

func mailboxWithMessage(tags ...string) *testutil.FakeMailbox {
	mb := testutil.NewFakeMailbox()
	mb.Add(&testutil.FakeMessage{Ref: model.MessageRef{ID: "m1", Tags: tags}})
	return mb
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name string
		caps source.Capabilities
		want source.TagStrategy
	}{
		{"catalogue", source.Capabilities{TagCatalogue: true, Keywords: true}, source.TagsNative},
		{"keywords", source.Capabilities{Keywords: true}, source.TagsKeywords},
		{"none", source.Capabilities{}, source.TagsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := mailboxWithMessage()
			mb.Caps = tt.caps
			tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())
			if tagger.Strategy() != tt.want {
				t.Errorf("Strategy = %v, want %v", tagger.Strategy(), tt.want)
			}
		})
	}
}

func TestTagger_native(t *testing.T) {
	t.Run("creates tag and appends key", func(t *testing.T) {
		mb := mailboxWithMessage("$label1")
		tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())

		if err := tagger.TagMessage(context.Background(), "m1"); err != nil {
			t.Fatalf("TagMessage: %v", err)
		}
		if got := mb.Tags("m1"); !reflect.DeepEqual(got, []string{"$label1", "paperless"}) {
			t.Errorf("tags = %v", got)
		}
		tags, _ := mb.ListTags(context.Background())
		if len(tags) != 1 || tags[0].Color != "#17a2b8" {
			t.Errorf("catalogue = %v", tags)
		}
	})

	t.Run("matches existing label ignoring case", func(t *testing.T) {
		mb := mailboxWithMessage()
		mb.AddTag(model.MailTag{Key: "$custom7", Label: "PAPERLESS"})
		tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())

		if err := tagger.TagMessage(context.Background(), "m1"); err != nil {
			t.Fatalf("TagMessage: %v", err)
		}
		if got := mb.Tags("m1"); !reflect.DeepEqual(got, []string{"$custom7"}) {
			t.Errorf("tags = %v", got)
		}
	})

	t.Run("already tagged is a no-op", func(t *testing.T) {
		mb := mailboxWithMessage("paperless")
		mb.AddTag(paperlessTag)
		tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())

		if err := tagger.TagMessage(context.Background(), "m1"); err != nil {
			t.Fatalf("TagMessage: %v", err)
		}
		if mb.SetTagsCalls != 0 {
			t.Errorf("SetMessageTags called %d times", mb.SetTagsCalls)
		}
	})

	t.Run("create failure surfaces", func(t *testing.T) {
		mb := mailboxWithMessage()
		mb.CreateTagErr = errors.New("quota exceeded")
		tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())

		if err := tagger.TagMessage(context.Background(), "m1"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestTagger_keywordsAndUnavailable(t *testing.T) {
	mb := mailboxWithMessage()
	mb.Caps = source.Capabilities{Keywords: true}
	tagger := source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())
	if err := tagger.TagMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("TagMessage: %v", err)
	}
	if got := mb.Tags("m1"); !reflect.DeepEqual(got, []string{"paperless"}) {
		t.Errorf("tags = %v", got)
	}
	if tags, _ := mb.ListTags(context.Background()); len(tags) != 0 {
		t.Errorf("keyword strategy should not touch the catalogue: %v", tags)
	}

	mb = mailboxWithMessage()
	mb.Caps = source.Capabilities{}
	tagger = source.Negotiate(context.Background(), mb, paperlessTag, testutil.TestLogger())
	if err := tagger.TagMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("TagMessage: %v", err)
	}
	if mb.SetTagsCalls != 0 {
		t.Error("unavailable strategy must not set tags")
	}
}

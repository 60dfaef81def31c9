package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
	"github.com/nhle/paperless-upload/internal/store"
	"github.com/nhle/paperless-upload/tests/testutil"
)

const testMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n" +
	"Message-Id: <report-1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=b1\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"See attached.\r\n" +
	"--b1\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=report.pdf\r\n" +
	"\r\n" +
	"%PDF-1.7 fake\r\n" +
	"--b1--\r\n"

func TestSQLiteStore_ImportMessage(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id := testutil.ImportTestMessage(t, s, testMessage)

	again, err := s.ImportMessage(ctx, []byte(testMessage))
	if err != nil {
		t.Fatalf("second ImportMessage: %v", err)
	}
	if again != id {
		t.Errorf("duplicate import returned %s, want existing %s", again, id)
	}

	msgs, err := s.ListMessages(ctx, store.MessageFilter{Query: "quarterly"})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Subject != "Quarterly report" {
		t.Fatalf("ListMessages = %+v", msgs)
	}

	ref, err := s.Message(ctx, id)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if ref.Subject != "Quarterly report" || len(ref.Recipients) != 1 || ref.Date.Year() != 2024 {
		t.Errorf("Message = %+v", ref)
	}

	if _, err := s.ImportMessage(ctx, []byte("  ")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestSQLiteStore_attachments(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	id := testutil.ImportTestMessage(t, s, testMessage)

	atts, err := s.ListAttachments(ctx, id)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(atts) != 1 || atts[0].Name != "report.pdf" || !atts[0].IsPDF() {
		t.Fatalf("attachments = %+v", atts)
	}

	data, err := s.AttachmentBytes(ctx, id, atts[0].PartRef)
	if err != nil {
		t.Fatalf("AttachmentBytes: %v", err)
	}
	if string(data) != "%PDF-1.7 fake" {
		t.Errorf("data = %q", data)
	}

	if _, err := s.RawMessage(ctx, "missing"); !errors.Is(err, source.ErrMessageNotFound) {
		t.Errorf("RawMessage(missing) error = %v", err)
	}
}

func TestSQLiteStore_tags(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	id := testutil.ImportTestMessage(t, s, testMessage)

	if err := s.CreateTag(ctx, model.MailTag{Key: "paperless", Label: "Paperless", Color: "#17a2b8"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := s.CreateTag(ctx, model.MailTag{Key: "paperless", Label: "Again"}); err == nil {
		t.Error("expected duplicate key error")
	}

	if err := s.SetMessageTags(ctx, id, []string{"paperless", "paperless"}); err != nil {
		t.Fatalf("SetMessageTags: %v", err)
	}
	ref, _ := s.Message(ctx, id)
	if !reflect.DeepEqual(ref.Tags, []string{"paperless"}) {
		t.Errorf("Tags = %v", ref.Tags)
	}

	if err := s.SetMessageTags(ctx, id, []string{"unknown"}); err == nil {
		t.Error("expected foreign key error for unknown tag")
	}
	if err := s.SetMessageTags(ctx, "missing", nil); !errors.Is(err, source.ErrMessageNotFound) {
		t.Errorf("error = %v, want ErrMessageNotFound", err)
	}

	caps, _ := s.Capabilities(ctx)
	if !caps.TagCatalogue {
		t.Error("local store should report a tag catalogue")
	}
}

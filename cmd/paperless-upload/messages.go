package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source/email"
	"github.com/nhle/paperless-upload/internal/store"
	"github.com/nhle/paperless-upload/internal/theme"
)

func messagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Import and inspect messages",
	}
	cmd.AddCommand(messagesImportCmd(a))
	cmd.AddCommand(messagesListCmd(a))
	cmd.AddCommand(messagesAttachmentsCmd(a))
	return cmd
}

func messagesImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.eml>...",
		Short: "Import .eml files into the local mailbox ('-' reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.localStore()
			if err != nil {
				return err
			}
			for _, path := range args {
				raw, err := readInput(path)
				if err != nil {
					return err
				}
				id, err := s.ImportMessage(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				a.logger.Info("message imported", "file", path, "message_id", id)
				fmt.Println(id)
			}
			return nil
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func messagesListCmd(a *app) *cobra.Command {
	var (
		query string
		limit int
		days  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages in the configured mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mb, err := a.openMailbox()
			if err != nil {
				return err
			}

			t := newTable("ID", "DATE", "FROM", "SUBJECT")
			switch mb := mb.(type) {
			case *store.SQLiteStore:
				msgs, err := mb.ListMessages(cmd.Context(), store.MessageFilter{Query: query, Limit: limit})
				if err != nil {
					return err
				}
				for _, m := range msgs {
					t.Row(m.ID, m.Date.Local().Format("2006-01-02 15:04"), m.Author, m.Subject)
				}
			case *email.Mailbox:
				refs, err := mb.ListRecent(cmd.Context(), days, limit)
				if err != nil {
					return err
				}
				for _, r := range refs {
					t.Row(r.ID, r.Date.Local().Format("2006-01-02 15:04"), r.Author, r.Subject)
				}
			default:
				return fmt.Errorf("listing is not supported for this mailbox")
			}
			fmt.Println(t.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by subject or sender (local mailbox)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of messages")
	cmd.Flags().IntVar(&days, "days", 14, "look back this many days (IMAP)")
	return cmd
}

func messagesAttachmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attachments <message-id>",
		Short: "List the attachments of a message with their part refs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mb, err := a.openMailbox()
			if err != nil {
				return err
			}
			atts, err := mb.ListAttachments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t := newTable("PART", "NAME", "TYPE", "SIZE", "PDF")
			for _, att := range atts {
				t.Row(att.PartRef, att.Name, att.ContentType, strconv.FormatInt(att.Size, 10), pdfMark(att))
			}
			fmt.Println(t.String())
			return nil
		},
	}
}

func pdfMark(att model.AttachmentRef) string {
	if att.IsPDF() {
		return "✓"
	}
	return ""
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...)
}

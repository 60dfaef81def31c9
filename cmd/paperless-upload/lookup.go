package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/paperless-upload/internal/dispatch"
	"github.com/nhle/paperless-upload/internal/theme"
)

func lookupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "List server metadata",
	}

	kinds := []struct {
		use     string
		short   string
		command dispatch.Command
	}{
		{"correspondents", "List correspondents", dispatch.CmdListCorrespondents},
		{"tags", "List tags", dispatch.CmdListTags},
		{"document-types", "List document types", dispatch.CmdListDocumentTypes},
	}
	for _, k := range kinds {
		cmd.AddCommand(&cobra.Command{
			Use:   k.use,
			Short: k.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				resp, err := a.lookupDispatcher().Dispatch(cmd.Context(), dispatch.Request{Command: k.command})
				if err != nil {
					return err
				}
				fmt.Println(lookupTable(resp))
				return nil
			},
		})
	}
	return cmd
}

func lookupTable(resp dispatch.Response) string {
	t := newTable("ID", "NAME")

	for _, c := range resp.Correspondents {
		t.Row(strconv.Itoa(c.ID), c.Name)
	}
	for _, tag := range resp.Tags {
		t.Row(strconv.Itoa(tag.ID), tag.Name)
	}
	for _, dt := range resp.DocumentTypes {
		t.Row(strconv.Itoa(dt.ID), dt.Name)
	}
	return t.String()
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the server connection and the mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resp, err := a.lookupDispatcher().Dispatch(ctx, dispatch.Request{Command: dispatch.CmdCheckConnection})
			if err != nil {
				fmt.Println(theme.OutcomeStyle(theme.OutcomeFailed).Render("✗ Paperless") + "  " + err.Error())
				return err
			}
			fmt.Println(theme.OutcomeStyle(theme.OutcomeSuccess).Render("✓ Paperless") + "  " + resp.ServerURL)

			tagger, err := a.mailTagger(ctx)
			if err != nil {
				fmt.Println(theme.OutcomeStyle(theme.OutcomeFailed).Render("✗ Mailbox") + "  " + err.Error())
				return err
			}
			fmt.Println(theme.OutcomeStyle(theme.OutcomeSuccess).Render("✓ Mailbox") +
				"  mail tags: " + tagger.Strategy().String())
			return nil
		},
	}
}

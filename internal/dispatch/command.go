// Package dispatch routes typed upload and lookup commands to the services
// that carry them out.
package dispatch

import (
	"fmt"
	"strings"
)

// Command identifies one operation the dispatcher can run.
type Command int

const (
	CmdUnknown Command = iota
	CmdQuickUpload
	CmdAttachmentUpload
	CmdEmailUpload
	CmdListCorrespondents
	CmdListTags
	CmdListDocumentTypes
	CmdCheckConnection
)

var commandNames = map[Command]string{
	CmdQuickUpload:        "quick-upload",
	CmdAttachmentUpload:   "attachment-upload",
	CmdEmailUpload:        "email-upload",
	CmdListCorrespondents: "list-correspondents",
	CmdListTags:           "list-tags",
	CmdListDocumentTypes:  "list-document-types",
	CmdCheckConnection:    "check-connection",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// IsUpload reports whether c runs an upload workflow.
func (c Command) IsUpload() bool {
	return c == CmdQuickUpload || c == CmdAttachmentUpload || c == CmdEmailUpload
}

// ParseCommand maps a command name back to its value.
func ParseCommand(s string) (Command, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range commandNames {
		if name == s {
			return c, nil
		}
	}
	return CmdUnknown, fmt.Errorf("unknown command %q", s)
}

package render

import (
	"bytes"
)

// FixEnvelope returns a copy of raw with the From: header (and its folded
// continuation lines) moved to the top. Some type sniffers only accept a
// message as mail when From: comes first. Messages without a From: header
// in the header block come back unchanged. raw is never modified.
func FixEnvelope(raw []byte) []byte {
	lines := bytes.SplitAfter(bytes.Clone(raw), []byte("\n"))

	end := len(lines)
	for i, l := range lines {
		if len(bytes.TrimRight(l, "\r\n")) == 0 {
			end = i
			break
		}
	}

	from := -1
	for i := 0; i < end; i++ {
		if isFromHeader(lines[i]) {
			from = i
			break
		}
	}
	if from <= 0 {
		return bytes.Clone(raw)
	}

	stop := from + 1
	for stop < end && isContinuation(lines[stop]) {
		stop++
	}

	// A header block without a trailing newline on its last line would
	// otherwise glue the moved header to the next one.
	moved := make([][]byte, 0, stop-from)
	for _, l := range lines[from:stop] {
		if !bytes.HasSuffix(l, []byte("\n")) {
			l = append(l, lineEnding(lines[0])...)
		}
		moved = append(moved, l)
	}

	out := make([]byte, 0, len(raw)+2)
	for _, l := range moved {
		out = append(out, l...)
	}
	for i, l := range lines {
		if i >= from && i < stop {
			continue
		}
		out = append(out, l...)
	}
	return out
}

func isFromHeader(line []byte) bool {
	return len(line) >= 5 && bytes.EqualFold(line[:5], []byte("from:"))
}

func isContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func lineEnding(line []byte) []byte {
	if bytes.HasSuffix(line, []byte("\r\n")) {
		return []byte("\r\n")
	}
	return []byte("\n")
}

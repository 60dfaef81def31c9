package render

import (
	"bytes"
	"testing"
)

func TestFixEnvelope(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "from on line five moves first",
			in: "Received: by mx\r\n" +
				"Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n" +
				"To: bob@example.com\r\n" +
				"Subject: Hi\r\n" +
				"From: Alice <alice@example.com>\r\n" +
				"\r\n" +
				"body\r\n",
			want: "From: Alice <alice@example.com>\r\n" +
				"Received: by mx\r\n" +
				"Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n" +
				"To: bob@example.com\r\n" +
				"Subject: Hi\r\n" +
				"\r\n" +
				"body\r\n",
		},
		{
			name: "folded from header moves with its continuation",
			in: "Subject: Hi\n" +
				"from: \"Alice\n" +
				"\tExample\" <alice@example.com>\n" +
				"To: bob@example.com\n" +
				"\n" +
				"body\n",
			want: "from: \"Alice\n" +
				"\tExample\" <alice@example.com>\n" +
				"Subject: Hi\n" +
				"To: bob@example.com\n" +
				"\n" +
				"body\n",
		},
		{
			name: "already first",
			in:   "From: a@example.com\r\nTo: b@example.com\r\n\r\nbody",
			want: "From: a@example.com\r\nTo: b@example.com\r\n\r\nbody",
		},
		{
			name: "no from header",
			in:   "To: b@example.com\r\nSubject: x\r\n\r\nbody",
			want: "To: b@example.com\r\nSubject: x\r\n\r\nbody",
		},
		{
			name: "from in body is ignored",
			in:   "To: b@example.com\r\n\r\nFrom: someone quoted\r\n",
			want: "To: b@example.com\r\n\r\nFrom: someone quoted\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixEnvelope([]byte(tt.in)); string(got) != tt.want {
				t.Errorf("FixEnvelope() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestFixEnvelope_leavesSourceUntouched(t *testing.T) {
	src := []byte("To: b@example.com\r\nFrom: a@example.com\r\n\r\nbody")
	orig := bytes.Clone(src)

	out := FixEnvelope(src)
	if !bytes.Equal(src, orig) {
		t.Errorf("source mutated: %q", src)
	}
	out[0] = 'X'
	if src[0] != 'T' {
		t.Error("result shares memory with the source")
	}
}

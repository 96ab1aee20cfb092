package tune

import (
	"io"
	"os"

	"github.com/aymanbagabas/go-osc52/v2"

	"pipedream/debug"
)

// CopyLink puts link on the terminal's clipboard with an OSC 52 escape
// written to w. It reports whether the escape was written; terminals that
// ignore OSC 52 cannot be detected, so true means "sent", not "pasted".
func CopyLink(w io.Writer, link string) bool {
	if w == nil || link == "" {
		return false
	}
	seq := osc52.New(link)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(w); err != nil {
		debug.Log("share", "clipboard write failed: %v", err)
		return false
	}
	return true
}

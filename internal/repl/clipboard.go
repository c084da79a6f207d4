package repl

import (
	"errors"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// copyOutput puts text on the system clipboard using an OSC 52 escape, which
// works over SSH and inside tmux. Without a terminal the text is printed.
func (r *REPL) copyOutput(text string) error {
	if text == "" {
		return errors.New("nothing to copy")
	}
	if !r.tty {
		r.printf("%s\n", text)
		return nil
	}
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(os.Getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	r.outMu.Lock()
	_, err := seq.WriteTo(r.out)
	r.outMu.Unlock()
	if err != nil {
		return err
	}
	r.printf("%s\n", infoStyle.Render("copied to clipboard"))
	r.log.Debug().Int("bytes", len(text)).Msg("output copied")
	return nil
}

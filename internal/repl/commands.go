package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"llmeval/internal/render"
)

const helpText = `commands:
  :models            list models (* marks the selected one)
  :model <id|n>      select a model by id or list number
  :style [plain|md]  show or set the display style
  :load              load the selected model now
  :copy              copy the output to the clipboard
  :stats             show memory usage
  :help              show this help
  :quit              exit
anything else is sent as a prompt; an empty line uses the model's default prompt`

func (r *REPL) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":help", ":h", ":?":
		r.printf("%s\n", helpStyle.Render(helpText))
	case ":models":
		r.listModels()
	case ":model", ":m":
		return false, r.selectModel(arg)
	case ":style":
		return false, r.setStyle(arg)
	case ":load":
		return false, r.load(ctx)
	case ":copy":
		return false, r.copyOutput(r.ev.Snapshot().Session.Output)
	case ":stats":
		r.stats()
	default:
		return false, fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
	return false, nil
}

func (r *REPL) listModels() {
	selected := r.ev.Snapshot().Model.ID
	for i, m := range r.ev.Models() {
		mark := " "
		if m.ID == selected {
			mark = "*"
		}
		detail := m.Quant
		if m.Local() {
			detail = strings.TrimSpace(detail + " local")
		}
		if m.SizeMB > 0 {
			detail = strings.TrimSpace(fmt.Sprintf("%s %dMB", detail, m.SizeMB))
		}
		r.printf("%s %2d. %s %s\n", mark, i+1, m.ID, infoStyle.Render(detail))
	}
}

func (r *REPL) selectModel(arg string) error {
	if arg == "" {
		return errors.New("usage: :model <id|n>")
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		models := r.ev.Models()
		if n < 1 || n > len(models) {
			return fmt.Errorf("no model number %d", n)
		}
		id = models[n-1].ID
	}
	if err := r.ev.Select(id); err != nil {
		return err
	}
	snap := r.ev.Snapshot()
	r.printf("%s\n", infoStyle.Render("selected "+snap.Model.ID))
	r.hint(snap.Model)
	return nil
}

func (r *REPL) setStyle(arg string) error {
	if arg == "" {
		opts := make([]string, 0, len(render.Styles))
		for _, s := range render.Styles {
			opts = append(opts, s.String())
		}
		r.printf("style: %s (options: %s)\n", r.style, strings.Join(opts, ", "))
		return nil
	}
	s, err := render.ParseStyle(arg)
	if err != nil {
		return err
	}
	r.style = s
	r.printf("%s\n", infoStyle.Render("style "+s.String()))
	return nil
}

func (r *REPL) load(ctx context.Context) error {
	stop := r.watchLoad(ctx)
	_, err := r.ev.Load(ctx)
	stop()
	if err != nil {
		r.printf("%s\n", errorStyle.Render("Failed: "+err.Error()))
		return nil
	}
	r.printf("%s\n", statStyle.Render(r.ev.Snapshot().ModelInfo))
	return nil
}

func (r *REPL) stats() {
	st := r.ev.Memory()
	snap := r.ev.Snapshot()
	if snap.ModelInfo != "" {
		r.printf("%s\n", infoStyle.Render(snap.ModelInfo))
	}
	r.printf("active: %s  cache: %s  peak: %s  cache limit: %s\n",
		mib(st.Active), mib(st.Cache), mib(st.Peak), mib(st.CacheLimit))
	if snap.Stat != "" {
		r.printf("%s\n", statStyle.Render(snap.Stat))
	}
}

func mib(b int64) string {
	return fmt.Sprintf("%.1f MiB", float64(b)/(1<<20))
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	replPrompt  = "leapmix> "
	historyFile = ".leapmix_history"
)

// NewREPLCommand creates the interactive pipeline builder.
func NewREPLCommand() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:     "repl",
		Aliases: []string{"build"},
		Short:   "Interactively build a transformation pipeline",
		Long: `Start an interactive session that builds a transformation pipeline one
step at a time. The formula and its description are shown after every change.

Type .help inside the session for the list of commands.`,
		Example: `  leapmix repl
  leapmix repl -s cost_micros -a SUM`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.pipeline()
			if err != nil {
				return err
			}
			return runREPL(cmd, p)
		},
	}
	flags.register(cmd)

	return cmd
}

func runREPL(cmd *cobra.Command, p formula.Pipeline) error {
	c := NewCommandContext(cmd)
	s := newPipelineSession(c.Renderer, p)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(c.Cfg.ProjectRoot, historyFile),
		AutoComplete:    newSessionCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	c.Renderer.Println("LeapMix pipeline builder")
	c.Renderer.Println("Type .help for commands, .quit to exit")
	c.Renderer.Println()
	s.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if quit := s.exec(line); quit {
			break
		}
	}
	return nil
}

// pipelineSession holds the pipeline being edited by the builder.
type pipelineSession struct {
	r        *output.Renderer
	pipeline formula.Pipeline
}

func newPipelineSession(r *output.Renderer, p formula.Pipeline) *pipelineSession {
	return &pipelineSession{r: r, pipeline: p}
}

// exec runs one input line and reports whether the session should end.
func (s *pipelineSession) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	name, arg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		name, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	var err error
	switch strings.ToLower(name) {
	case ".quit", ".exit", "quit", "exit":
		return true
	case ".help", "help":
		printREPLHelp(s.r.Writer())
		return false
	case "show":
		s.show()
		return false
	case "source":
		if arg == "" {
			err = errors.New("usage: source <column>")
			break
		}
		s.pipeline.Source = arg
	case "agg":
		var agg formula.Aggregation
		if agg, err = formula.ParseAggregation(arg); err == nil {
			s.pipeline.Aggregation = agg
		}
	case "step":
		var step formula.TransformStep
		if step, err = formula.ParseStep(arg); err == nil {
			s.pipeline = s.pipeline.WithStep(step)
		}
	case "remove", "rm":
		if len(s.pipeline.Steps) == 0 {
			err = errors.New("no steps to remove")
			break
		}
		var n int
		n, err = strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(s.pipeline.Steps) {
			err = fmt.Errorf("usage: remove <1-%d>", len(s.pipeline.Steps))
			break
		}
		s.pipeline = s.pipeline.WithoutStep(n - 1)
	case "clear":
		s.pipeline.Steps = nil
	case "name":
		s.pipeline.Name = arg
	case "save":
		if arg == "" {
			err = errors.New("usage: save <file.yaml>")
			break
		}
		if err = s.save(arg); err == nil {
			s.r.Println(s.r.Styles().Success.Render("saved " + arg))
		}
		return false
	default:
		err = fmt.Errorf("unknown command: %s (type .help for commands)", name)
	}

	if err != nil {
		s.r.Warnf("%v", err)
		return false
	}
	s.show()
	return false
}

func (s *pipelineSession) show() {
	st := s.r.Styles()
	p := s.pipeline
	for i, step := range p.Steps {
		s.r.Printf("  %s %s\n", st.Muted.Render(fmt.Sprintf("%d.", i+1)), step.String())
	}
	s.r.Println(st.Code.Render(p.Formula()))
	if d := p.Description(); d != "" {
		s.r.Println(st.Muted.Render(d))
	}
	for _, issue := range p.Validate() {
		s.r.Warnf("%s", issue.String())
	}
}

func (s *pipelineSession) save(path string) error {
	data, err := yaml.Marshal(s.pipeline)
	if err != nil {
		return fmt.Errorf("failed to encode pipeline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  source <column>   Set the source column
  agg <AGG>         Set the aggregation (NONE, SUM, AVG, COUNT, MIN, MAX)
  step <op=value>   Append a transform step (e.g. step divide_by=clicks)
  remove <n>        Remove step n
  clear             Remove all steps
  name <name>       Name the pipeline
  show              Show the current formula
  save <file>       Write the pipeline as YAML
  .help             Show this help message
  .quit / .exit     Exit the builder
`
	_, _ = fmt.Fprintln(w, help)
}

func newSessionCompleter() *readline.PrefixCompleter {
	aggs := formula.Aggregations()
	aggItems := make([]readline.PrefixCompleterInterface, len(aggs))
	for i, a := range aggs {
		aggItems[i] = readline.PcItem(string(a))
	}

	ops := formula.Operations()
	stepItems := make([]readline.PrefixCompleterInterface, len(ops))
	for i, o := range ops {
		name := strings.ToLower(string(o))
		if o.TakesValue() {
			name += "="
		}
		stepItems[i] = readline.PcItem(name)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("source"),
		readline.PcItem("agg", aggItems...),
		readline.PcItem("step", stepItems...),
		readline.PcItem("remove"),
		readline.PcItem("clear"),
		readline.PcItem("name"),
		readline.PcItem("show"),
		readline.PcItem("save"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"streamdown/internal/config"
	"streamdown/internal/convert"
	"streamdown/internal/debuglog"
	"streamdown/internal/metrics"
	"streamdown/internal/pipeline"
	"streamdown/internal/schedule"
	"streamdown/internal/tui"
	"streamdown/internal/ui"
	"streamdown/internal/view"
)

var (
	renderChunkSize int
	renderFPS       int
	renderWidth     int
	renderTheme     string
	renderTUI       bool
	renderDelay     time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a markdown stream or file",
	Long: `Render markdown from a file or stdin. Input is consumed as a stream:
blocks appear as soon as their boundaries are known, without waiting for
the end of input.

Examples:
  streamdown render README.md
  cat notes.md | streamdown render
  streamdown render --tui --stats README.md
  streamdown render --delay 2ms README.md   # simulate token-by-token arrival`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderChunkSize, "chunk-size", 0, "Max blocks materialized per refresh (default from config)")
	renderCmd.Flags().IntVar(&renderFPS, "fps", 0, "Display refresh rate (default from config)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Render width (default: terminal width)")
	renderCmd.Flags().StringVar(&renderTheme, "theme", "", "Color theme: auto, dark, light, notty")
	renderCmd.Flags().BoolVar(&renderTUI, "tui", false, "Interactive scrollable viewer instead of printing to scrollback")
	renderCmd.Flags().DurationVar(&renderDelay, "delay", 0, "Pause between input chunks, to simulate a slow stream")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyRenderFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbg, err := debuglog.FromEnv()
	if err != nil {
		return err
	}
	defer dbg.Close()

	in, closeIn, err := openInput(args)
	if err != nil {
		return err
	}
	defer closeIn()

	width := cfg.Render.Width
	if width <= 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		} else {
			width = 80
		}
	}

	schedCfg := schedule.Config{
		ChunkSize: cfg.Render.ChunkSize,
		Refresh:   time.Second / time.Duration(cfg.Render.FPS),
		Backoff:   time.Duration(cfg.Render.BackoffMS) * time.Millisecond,
	}
	theme := ui.ResolveTheme(cfg.Theme)
	renderer := ui.NewBlockRenderer(theme)
	conv := convert.NewGoldmark()

	dbg.Log("start", map[string]any{
		"width":      width,
		"theme":      theme,
		"chunk_size": schedCfg.ChunkSize,
		"fps":        cfg.Render.FPS,
		"tui":        renderTUI,
	})

	if renderTUI {
		return runTUI(in, conv, schedCfg, renderer, width, cfg.Stats, dbg)
	}
	return runFlow(in, conv, schedCfg, renderer, width, cfg.Stats, dbg)
}

// runFlow prints rendered blocks straight to scrollback. Printed output
// cannot be withdrawn, so the pipeline runs without a provisional tail.
func runFlow(in io.Reader, conv convert.Converter, schedCfg schedule.Config, renderer view.RenderFunc, width int, stats bool, dbg *debuglog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	flow := view.NewFlow(os.Stdout, width, renderer)
	sched := schedule.New(flow, schedCfg)
	pipe := pipeline.New(conv, sched, pipeline.WithoutProvisional())

	go sched.Run(ctx)

	if err := feed(ctx, in, pipe, renderDelay); err != nil {
		return err
	}
	if err := pipe.Finish(ctx); err != nil {
		return err
	}
	sched.SetRenderedUnits(flow.Lines())

	st := pipe.Stats()
	dbg.Log("finish", map[string]any{"blocks": st.MaterializedBlocks, "lines": flow.Lines()})
	if stats {
		fmt.Fprintf(os.Stderr, "blocks: %d  lines: %d\n", st.MaterializedBlocks, flow.Lines())
	}
	return nil
}

// runTUI hands the stream to the interactive viewer. The bubbletea loop
// paces drains itself, so the scheduler's own Run loop is not started.
func runTUI(in io.Reader, conv convert.Converter, schedCfg schedule.Config, renderer view.RenderFunc, width int, stats bool, dbg *debuglog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	list := view.NewList(width, renderer)
	sched := schedule.New(list, schedCfg)
	pipe := pipeline.New(conv, sched)

	sampler := metrics.NewSampler(time.Second)
	go sampler.Run(ctx)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := feed(ctx, in, pipe, renderDelay); err != nil {
			done <- err
			return
		}
		if err := pipe.Finish(ctx); err != nil {
			done <- err
		}
	}()

	model := tui.New(tui.Options{
		Pipeline:  pipe,
		Scheduler: sched,
		List:      list,
		Sampler:   sampler,
		Refresh:   schedCfg.Refresh,
		Backoff:   schedCfg.Backoff,
		ShowStats: stats,
		Done:      done,
	})
	_, err := tea.NewProgram(model).Run()
	st := pipe.Stats()
	dbg.Log("finish", map[string]any{"blocks": st.MaterializedBlocks})
	return err
}

// feed reads the input in small chunks and appends each to the pipeline,
// mimicking how tokens arrive from a live stream.
func feed(ctx context.Context, in io.Reader, pipe *pipeline.Pipeline, delay time.Duration) error {
	buf := make([]byte, 512)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			pipe.Append(string(buf[:n]))
			if delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func applyRenderFlags(cfg *config.Config) {
	if renderChunkSize > 0 {
		cfg.Render.ChunkSize = renderChunkSize
	}
	if renderFPS > 0 {
		cfg.Render.FPS = renderFPS
	}
	if renderWidth > 0 {
		cfg.Render.Width = renderWidth
	}
	if renderTheme != "" {
		cfg.Theme = renderTheme
	}
	if showStats {
		cfg.Stats = true
	}
}

func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", args[0], err)
	}
	return f, func() { f.Close() }, nil
}

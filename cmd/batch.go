package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/ferama/ptyrun/pkg/autocomplete"
	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/rio"
	"github.com/ferama/ptyrun/pkg/session"
	"github.com/judwhite/go-svc"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("config", "c", "", "the batch config file path")
	batchCmd.Flags().IntP("max-workers", "w", 0, "sessions running at the same time. Overrides the config file value")
	batchCmd.Flags().BoolP("progress", "p", false, "show a live byte counter per session on stderr")
	batchCmd.Flags().StringSlice("only", nil, "run only the named sessions")
	batchCmd.MarkFlagRequired("config")

	batchCmd.RegisterFlagCompletionFunc("config", autocomplete.ConfigFile())
	batchCmd.RegisterFlagCompletionFunc("only", autocomplete.Sessions("config"))
}

// openSessionOutput creates the file configured for the session, or discards
// the output when none is set
func openSessionOutput(sc *conf.SessionConf) (io.WriteCloser, error) {
	if sc.Output == "" {
		return rio.NopWriteCloser(io.Discard), nil
	}
	return createOutput(sc.Output)
}

// batch implements svc.Service
type batch struct {
	cfg     *conf.Config
	manager *session.Manager
	bars    *mpb.Progress
	barsWG  sync.WaitGroup

	runCtx    context.Context
	cancelRun context.CancelFunc

	// done when every session has ended
	ctx    context.Context
	finish context.CancelFunc

	results []*session.Result
}

// Init prepares the batch run
func (b *batch) Init(env svc.Environment) error {
	b.manager = session.NewManager()
	b.runCtx, b.cancelRun = context.WithCancel(context.Background())
	b.ctx, b.finish = context.WithCancel(context.Background())
	return nil
}

// Start launches the sessions. It does not block
func (b *batch) Start() error {
	var progressFn session.ProgressFunc
	if b.bars != nil {
		progressFn = func(name string, progressCh chan int64) {
			b.barsWG.Add(1)
			defer b.barsWG.Done()
			newCounter(b.bars, name, progressCh)
		}
	}

	go func() {
		defer b.finish()
		b.results = session.RunBatch(b.runCtx, b.cfg, b.manager, openSessionOutput, progressFn)
	}()
	return nil
}

// Context is done once the batch completes, which stops the service
func (b *batch) Context() context.Context {
	return b.ctx
}

// Stop kills the running sessions, skips the pending ones and waits for the
// batch to return
func (b *batch) Stop() error {
	if b.ctx.Err() == nil {
		log.Printf("stopping: killing %d running sessions", b.manager.Len())
	}
	b.cancelRun()
	<-b.ctx.Done()
	if b.bars != nil {
		b.bars.Wait()
	}
	return nil
}

// report prints one line per session and returns the number of failures
func (b *batch) report(w io.Writer) int {
	failed := 0
	for _, r := range b.results {
		status := color.GreenString("ok")
		detail := fmt.Sprintf("exit %d", r.ExitCode)
		if !r.OK() {
			failed++
			status = color.RedString("fail")
			if r.Err != nil {
				detail = r.Err.Error()
			}
		}
		fmt.Fprintf(w, "%-4s %-20s %8d bytes %10s  %s\n",
			status, r.Name, r.Bytes, r.Duration.Round(time.Millisecond), detail)
	}
	return failed
}

var batchCmd = &cobra.Command{
	Use:   "batch -c config.yaml",
	Short: "Runs the sessions listed in a config file",
	Long: `Runs the sessions listed in a config file on a bounded number of workers.
Each session output is written to its output file. SIGINT or SIGTERM kills the
running sessions.`,
	Example: `
  # runs the batch with at most 2 sessions at a time
  $ ptyrun batch -c batch.yaml -w 2

  # runs only two of the configured sessions
  $ ptyrun batch -c batch.yaml --only build,lint
	`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config")
		maxWorkers, _ := cmd.Flags().GetInt("max-workers")
		progress, _ := cmd.Flags().GetBool("progress")
		only, _ := cmd.Flags().GetStringSlice("only")

		cfg, err := conf.LoadConfig(path)
		if err != nil {
			fatal(err)
		}
		if err := cfg.Select(only...); err != nil {
			fatal(err)
		}
		if maxWorkers > 0 {
			cfg.Workers = maxWorkers
		}

		prg := &batch{cfg: cfg}
		if progress && isatty.IsTerminal(os.Stderr.Fd()) {
			prg.bars = mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr), mpb.WithWaitGroup(&prg.barsWG))
		}
		if err := svc.Run(prg, syscall.SIGINT, syscall.SIGTERM); err != nil {
			fatal(err)
		}

		if failed := prg.report(os.Stdout); failed > 0 {
			log.Printf("%d of %d sessions failed", failed, len(prg.results))
			os.Exit(1)
		}
	},
}

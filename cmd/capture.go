package cmd

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/ferama/ptyrun/cmd/cmnflags"
	"github.com/ferama/ptyrun/pkg/session"
	"github.com/ferama/ptyrun/pkg/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func init() {
	rootCmd.AddCommand(captureCmd)

	cmnflags.AddSessionFlags(captureCmd.Flags())
	captureCmd.Flags().StringP("output", "o", "", "file receiving the terminal output. Defaults to stdout")
	captureCmd.Flags().BoolP("progress", "p", false, "show a live byte counter on stderr")
}

// newCounter adds an open ended byte counter named name to p and feeds it from
// progressCh until the channel is closed
func newCounter(p *mpb.Progress, name string, progressCh chan int64) {
	bar := p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(color.BlueString("⬇ %s ", name)),
		),
		mpb.AppendDecorators(
			decor.CurrentKibiByte("% .2f "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
		mpb.BarFillerClearOnComplete(),
	)

	for w := range progressCh {
		bar.IncrInt64(w)
	}
	// total follows current: marks the bar complete
	bar.SetTotal(-1, true)
}

func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

var captureCmd = &cobra.Command{
	Use:   "capture [flags] -- program args...",
	Short: "Runs a program inside a pseudo terminal and captures its output",
	Long: `Runs a program inside a pseudo terminal and captures everything it writes.
The program sees a terminal but does not receive any input.`,
	Example: `
  # captures the colored output of ls
  $ ptyrun capture -o ls.out -- ls --color=auto -l

  # shows a byte counter while capturing
  $ ptyrun capture -p -o build.log -- make
	`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		progress, _ := cmd.Flags().GetBool("progress")

		sc, err := cmnflags.GetSessionConf(cmd, args)
		if err != nil {
			fatal(err)
		}

		var out io.Writer = os.Stdout
		if output != "" {
			output, err = utils.ExpandUserHome(output)
			if err != nil {
				fatal(err)
			}
			f, err := createOutput(output)
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			out = f
		}

		s, err := session.Start(sc)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		var progressCh chan int64
		var progressWG sync.WaitGroup
		var bars *mpb.Progress
		if progress && isatty.IsTerminal(os.Stderr.Fd()) {
			bars = mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr), mpb.WithWaitGroup(&progressWG))
			progressCh = make(chan int64, 16)
			progressWG.Add(1)
			go func() {
				defer progressWG.Done()
				newCounter(bars, sc.Name, progressCh)
			}()
		}

		start := time.Now()
		n, copyErr := s.CopyOutput(out, progressCh)
		if bars != nil {
			close(progressCh)
			bars.Wait()
		}
		if copyErr != nil {
			log.Printf("error while capturing output: %s", copyErr)
		}

		code, err := s.Wait()
		if err != nil {
			fatal(err)
		}
		log.Printf("captured %s from %s in %s, exit code %d",
			utils.ByteCountSI(n), sc.Name, time.Since(start).Round(time.Millisecond), code)

		s.Close()
		if f, ok := out.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
		os.Exit(code)
	},
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/ferama/ptyrun/cmd/cmnflags"
	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/rio"
	"github.com/ferama/ptyrun/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(runCmd)

	cmnflags.AddSessionFlags(runCmd.Flags())
}

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- program args...]",
	Short: "Runs a program interactively inside a pseudo terminal",
	Long: `Runs a program interactively inside a pseudo terminal.
The local terminal is switched to raw mode and every key is relayed to the program.
Without a program the user shell is started.`,
	Example: `
  # starts the user shell
  $ ptyrun run

  # runs top on a 100x30 terminal
  $ ptyrun run --cols 100 --rows 30 -- top
	`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := cmnflags.GetSessionConf(cmd, args)
		if err != nil {
			fatal(err)
		}
		if !cmd.Flags().Changed("cols") && !cmd.Flags().Changed("rows") {
			inheritSize(sc)
		}

		code, err := runInteractive(sc)
		if err != nil {
			fatal(err)
		}
		os.Exit(code)
	},
}

// inheritSize sizes the session like the local terminal, when there is one
func inheritSize(sc *conf.SessionConf) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	ws, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		log.Printf("cannot read local terminal size: %s", err)
		return
	}
	if ws.Cols > 0 && ws.Rows > 0 {
		sc.Cols = uint32(ws.Cols)
		sc.Rows = uint32(ws.Rows)
	}
}

func runInteractive(sc *conf.SessionConf) (int, error) {
	s, err := session.Start(sc)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		state, err := term.MakeRaw(stdinFd)
		if err != nil {
			return 0, err
		}
		defer term.Restore(stdinFd, state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		_, err := s.CopyOutput(os.Stdout, nil)
		return err
	})
	g.Go(func() error {
		watchResize(ctx, s, stdinFd)
		return nil
	})
	// stdin cannot be interrupted: this copy ends with the process
	go rio.Copy(s.Terminal(), os.Stdin, nil)

	if err := g.Wait(); err != nil {
		log.Printf("relay stopped: %s", err)
	}
	return s.Wait()
}

// watchResize forwards local terminal size changes to the session until ctx
// is done
func watchResize(ctx context.Context, s *session.Session, fd int) {
	if !term.IsTerminal(fd) {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			w, h, err := term.GetSize(fd)
			if err != nil {
				continue
			}
			if err := s.Resize(uint32(w), uint32(h)); err != nil {
				log.Printf("cannot resize session %s: %s", s.Name, err)
			}
		}
	}
}

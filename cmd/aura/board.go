package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"aura-board/internal/board"
	"aura-board/internal/client"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultAdjustment int64 = 1_000_000

// openBoard starts a board on the current room. The returned stop function
// ends the board loop.
func (a *cli) openBoard(ctx context.Context, cmd *cobra.Command, opts board.Options) (*board.Board, func(), error) {
	if err := a.requireToken(); err != nil {
		return nil, nil, err
	}
	if a.session.CurrentRoomID == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), roomHint)
		return nil, nil, errors.New("no room selected")
	}
	if opts.Log == nil {
		opts.Log = logrus.WithField("component", "board")
	}

	b := board.NewBoard(client.NewRemoteStore(a.api), opts)
	loopCtx, cancel := context.WithCancel(context.Background())
	go b.Run(loopCtx)

	if err := b.JoinRoom(ctx, a.session.CurrentRoomID); err != nil {
		cancel()
		return nil, nil, a.dropRoom(cmd, err)
	}
	return b, cancel, nil
}

// dropRoom forgets a saved room the backend no longer serves.
func (a *cli) dropRoom(cmd *cobra.Command, err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("session expired; run `aura login` again: %w", err)
	}
	if !errors.Is(err, board.ErrNotFound) {
		return err
	}
	a.session.CurrentRoomID = 0
	if saveErr := a.save(); saveErr != nil {
		return saveErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), roomHint)
	return errors.New("saved room is gone")
}

// resolve finds an entity by id or, failing that, by case-insensitive name.
func resolve(ctx context.Context, b *board.Board, ref string) (board.Entity, error) {
	entities, _, err := b.Snapshot(ctx)
	if err != nil {
		return board.Entity{}, err
	}
	for _, e := range entities {
		if e.ID == ref {
			return e, nil
		}
	}
	for _, e := range entities {
		if strings.EqualFold(e.Name, ref) {
			return e, nil
		}
	}
	return board.Entity{}, fmt.Errorf("%q: %w", ref, board.ErrNotFound)
}

func printRanking(w io.Writer, rows []board.RankedEntity) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Nobody here yet. Add someone with `aura add NAME`.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tAURA\tID")
	for _, r := range rows {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\n", r.Rank, r.Entity.Name, board.FormatScore(r.Entity.Score), r.Entity.ID)
	}
	_ = tw.Flush()
}

func newListCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "ranking"},
		Short:   "Print the current room's ranking",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(ctx, cmd, board.Options{})
			if err != nil {
				return err
			}
			defer stop()
			rows, err := b.Ranking(ctx)
			if err != nil {
				return err
			}
			printRanking(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

func newWatchCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the ranking live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopSignals()

			out := cmd.OutOrStdout()
			joinCtx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(joinCtx, cmd, board.Options{
				OnRankingChange: func(rows []board.RankedEntity) {
					fmt.Fprintln(out)
					printRanking(out, rows)
				},
			})
			if err != nil {
				return err
			}
			defer stop()

			rows, err := b.Ranking(joinCtx)
			if err != nil {
				return err
			}
			printRanking(out, rows)
			<-ctx.Done()
			return nil
		},
	}
}

func newAddCmd(a *cli) *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add someone to the board at neutral aura",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dataURL string
			if image != "" {
				var err error
				if dataURL, err = client.ImageDataURL(image); err != nil {
					return err
				}
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(ctx, cmd, board.Options{})
			if err != nil {
				return err
			}
			defer stop()

			name := strings.Join(args, " ")
			id, err := b.Add(ctx, name, dataURL)
			if err != nil {
				if errors.Is(err, board.ErrCapacityExceeded) {
					return fmt.Errorf("the board is full (%d people max)", board.Capacity)
				}
				return err
			}
			if err := b.Flush(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (id %s).\n", name, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "JPEG avatar, up to 5MB")
	return cmd
}

func newAdjustCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust ID|NAME [AMOUNT]",
		Short: "Give or take aura (default +1M)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := defaultAdjustment
			if len(args) == 2 {
				n, err := strconv.ParseInt(strings.ReplaceAll(args[1], "_", ""), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", args[1], err)
				}
				delta = n
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(ctx, cmd, board.Options{})
			if err != nil {
				return err
			}
			defer stop()

			e, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}
			if err := b.Adjust(ctx, e.ID, delta); err != nil {
				return err
			}
			if err := b.Flush(ctx); err != nil {
				return err
			}
			return printEntity(ctx, cmd.OutOrStdout(), b, e.ID)
		},
	}
}

func newMoveCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID|NAME POSITION",
		Short: "Drag someone to a spot on the line, 0 (left) to 100 (right)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(ctx, cmd, board.Options{})
			if err != nil {
				return err
			}
			defer stop()

			e, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}
			// a 100px line makes pointer coordinates equal positions
			if err := b.SetLineWidth(ctx, 100); err != nil {
				return err
			}
			if err := b.BeginDrag(ctx, e.ID, e.Position); err != nil {
				return err
			}
			if err := b.MoveDrag(ctx, target); err != nil {
				return err
			}
			if err := b.EndDrag(ctx); err != nil {
				return err
			}
			if err := b.Flush(ctx); err != nil {
				return err
			}
			return printEntity(ctx, cmd.OutOrStdout(), b, e.ID)
		},
	}
}

func newRemoveCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID|NAME",
		Aliases: []string{"rm"},
		Short:   "Take someone off the board",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b, stop, err := a.openBoard(ctx, cmd, board.Options{})
			if err != nil {
				return err
			}
			defer stop()

			e, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}
			if err := b.Remove(ctx, e.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", e.Name)
			return nil
		},
	}
}

func printEntity(ctx context.Context, w io.Writer, b *board.Board, id string) error {
	e, err := resolve(ctx, b, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s is now at %s.\n", e.Name, board.FormatScore(e.Score))
	return nil
}

package collector

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/vytor/openingtiers/internal/lichess"
	"github.com/vytor/openingtiers/internal/logger"
)

type DiscoverOptions struct {
	MaxFirstMoves int
	MaxReplies    int
	MinGames      int
	MaxLines      int
}

// DefaultDiscoverOptions walks the 8 most played first moves and their 5 most
// played replies, keeping at most 50 lines of 100 games or more.
var DefaultDiscoverOptions = DiscoverOptions{
	MaxFirstMoves: 8,
	MaxReplies:    5,
	MinGames:      100,
	MaxLines:      50,
}

// Discovery is the catalog found by walking the explorer tree.
type Discovery struct {
	// Lines are two-ply SAN lines ("e4 c5"), most played first move first.
	Lines    []string
	Requests int
}

// Discover builds a catalog from the explorer's continuations over all
// games. A failed root request is an error; a failed branch is skipped.
func (c *Collector) Discover(ctx context.Context, opts DiscoverOptions) (*Discovery, error) {
	log := logger.FromContext(ctx).WithPrefix("discover")
	opts = withDiscoverDefaults(opts)

	var requests atomic.Int64
	res := &Discovery{}

	root, err := c.explore(ctx, lichess.Request{}, &requests)
	res.Requests = int(requests.Load())
	if err != nil {
		return res, fmt.Errorf("explore starting position: %w", err)
	}

	for _, first := range topMoves(root.Moves, opts.MaxFirstMoves, 0) {
		if len(res.Lines) >= opts.MaxLines {
			break
		}
		branch, err := c.explore(ctx, lichess.Request{Play: []string{first.UCI}}, &requests)
		res.Requests = int(requests.Load())
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("skipping replies to %s: %v", first.SAN, err)
			continue
		}
		for _, reply := range topMoves(branch.Moves, opts.MaxReplies, opts.MinGames) {
			if len(res.Lines) >= opts.MaxLines {
				break
			}
			res.Lines = append(res.Lines, first.SAN+" "+reply.SAN)
		}
	}

	log.Info("discovered %d lines with %d requests", len(res.Lines), res.Requests)
	return res, nil
}

// topMoves returns up to n moves with at least minGames games, most played
// first.
func topMoves(moves []lichess.Move, n, minGames int) []lichess.Move {
	out := make([]lichess.Move, 0, len(moves))
	for _, m := range moves {
		if m.SAN == "" || m.UCI == "" || m.Total() < minGames {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total() > out[j].Total()
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func withDiscoverDefaults(opts DiscoverOptions) DiscoverOptions {
	d := DefaultDiscoverOptions
	if opts.MaxFirstMoves > 0 {
		d.MaxFirstMoves = opts.MaxFirstMoves
	}
	if opts.MaxReplies > 0 {
		d.MaxReplies = opts.MaxReplies
	}
	if opts.MinGames > 0 {
		d.MinGames = opts.MinGames
	}
	if opts.MaxLines > 0 {
		d.MaxLines = opts.MaxLines
	}
	return d
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/services"
)

// resolution is the outcome of matching one local track.
type resolution struct {
	remoteID string
	reused   bool
	skip     string
}

// resolveTracks finds a remote id for every track of p, in order.
//
// Tracks already linked to the platform are reused without a lookup. Lookups run on a bounded pool behind a rate
// limiter and write only their own slot, so the id list keeps the local track order. New matches are recorded on
// p's tracks once every lookup has finished. Auth failures and cancellation abort; any other per-track failure
// becomes a skip.
func (e *SyncEngine) resolveTracks(ctx context.Context, s *session, p *models.Playlist, report *SyncReport, progress chan<- ProgressUpdate) ([]string, error) {
	name := s.platform.Name()
	total := len(p.Tracks)
	results := make([]resolution, total)

	sendProgress(progress, resolveTrackUpdate(0, total, nil, false))

	limiter := rate.NewLimiter(rate.Limit(e.opts.RateLimit), 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	var done atomic.Int64
	for i := range p.Tracks {
		track := p.Tracks[i].Clone()

		if id, ok := track.PlatformID(name); ok {
			results[i] = resolution{remoteID: id, reused: true}
			sendProgress(progress, resolveTrackUpdate(int(done.Add(1)), total, &track, true))
			continue
		}

		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			var match *models.Track
			err := e.call(gctx, s, "search", services.IsRetryable, func(ctx context.Context) error {
				m, err := s.platform.SearchTrack(ctx, track.Title, track.Artist)
				match = m
				return err
			})

			switch {
			case err == nil:
				if id, ok := match.PlatformID(name); ok {
					results[i] = resolution{remoteID: id}
				} else {
					results[i] = resolution{skip: "match carried no catalog id"}
				}
			case gctx.Err() != nil, errors.Is(err, context.Canceled):
				return err
			case services.KindOf(err) == services.KindAuth:
				return err
			case services.KindOf(err) == services.KindNotFound:
				results[i] = resolution{skip: "no catalog match"}
			default:
				results[i] = resolution{skip: fmt.Sprintf("lookup failed: %v", err)}
			}

			sendProgress(progress, resolveTrackUpdate(int(done.Add(1)), total, &track, results[i].skip == ""))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("resolve tracks on %s: %w", name, err)
	}

	ids := make([]string, 0, total)
	for i, r := range results {
		t := &p.Tracks[i]
		switch {
		case r.skip != "":
			report.Skipped = append(report.Skipped, SkippedTrack{Title: t.Title, Artist: t.Artist, Reason: r.skip})
			e.logger.Warn("skipped track", "platform", name, "title", t.Title, "artist", t.Artist, "reason", r.skip)
		case r.reused:
			report.Reused++
			ids = append(ids, r.remoteID)
		default:
			report.Searched++
			t.SetPlatformID(name, r.remoteID)
			ids = append(ids, r.remoteID)
		}
	}
	return ids, nil
}

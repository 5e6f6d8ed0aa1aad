package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/liquidfun/stackr/internal/config"
	"github.com/liquidfun/stackr/internal/domain"
	"github.com/liquidfun/stackr/internal/extract"
	"github.com/liquidfun/stackr/internal/ports"
	"github.com/liquidfun/stackr/internal/render"
	"github.com/liquidfun/stackr/internal/scorefunc"
)

// Tracker processes tracked series: it rebuilds each series' leaderboard
// from the platform's comment history and publishes or edits the standings
// comment under every post. One series is processed fully before the next
// begins; the tracker holds no cross-pass state.
type Tracker struct {
	client   ports.Client
	images   ports.ImageHost
	charts   ports.ChartRenderer
	compiler *scorefunc.Compiler
	log      *zap.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	// debug computes and logs everything but performs no platform writes.
	debug bool
	// now stamps rendered bodies; injectable for tests.
	now func() time.Time

	maintainer string
	sourceURL  string
}

// TrackerOption configures optional tracker collaborators.
type TrackerOption func(*Tracker)

// WithImageHost enables chart uploads.
func WithImageHost(images ports.ImageHost) TrackerOption {
	return func(t *Tracker) { t.images = images }
}

// WithChartRenderer enables score-history chart rendering.
func WithChartRenderer(charts ports.ChartRenderer) TrackerOption {
	return func(t *Tracker) { t.charts = charts }
}

// WithDebug suppresses all platform mutations.
func WithDebug(debug bool) TrackerOption {
	return func(t *Tracker) { t.debug = debug }
}

// WithLogger replaces the default no-op logger.
func WithLogger(log *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.log = log }
}

// WithMetrics replaces the default registry-backed metrics.
func WithMetrics(m *Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock replaces the wall clock used for body timestamps.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithFooter sets the maintainer and source link for comment footers.
func WithFooter(maintainer, sourceURL string) TrackerOption {
	return func(t *Tracker) {
		t.maintainer = maintainer
		t.sourceURL = sourceURL
	}
}

// NewTracker creates a tracker bound to a platform client and a score
// function compiler.
func NewTracker(client ports.Client, compiler *scorefunc.Compiler, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		client:   client,
		compiler: compiler,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("stackr/tracker"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = NewMetrics()
	}
	return t
}

// seriesPosts fetches and orders the posts belonging to a series, oldest
// first. Round indices follow this order and are 1-based.
func (t *Tracker) seriesPosts(ctx context.Context, series *config.Series) ([]ports.Post, error) {
	posts, err := t.client.PostsByAuthor(ctx, series.Author)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for %s: %w", series.Author, err)
	}
	matched := posts[:0]
	for _, post := range posts {
		if series.MatchesTitle(post.Title) {
			matched = append(matched, post)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Created.Before(matched[j].Created)
	})
	return matched, nil
}

// newBoard compiles the series' score function and prepares an empty
// leaderboard plus the extractor and ignore set for merging.
func (t *Tracker) newBoard(series *config.Series) (*domain.Leaderboard, *extract.Extractor, map[string]struct{}, error) {
	pipeline, err := t.compiler.Compile(series.ScoreFunction, series.CompileMode())
	if err != nil {
		return nil, nil, nil, err
	}
	extractor, err := extract.New(series)
	if err != nil {
		return nil, nil, nil, err
	}
	ignore := series.IgnoreSet()
	// The bot's own comments never contribute scores.
	ignore[t.client.Me()] = struct{}{}
	return domain.NewLeaderboard(pipeline), extractor, ignore, nil
}

// ProcessSeries runs one full pass over a series: every post oldest to
// newest, merging scores and publishing standings as it goes.
func (t *Tracker) ProcessSeries(ctx context.Context, series *config.Series) (err error) {
	passID := uuid.NewString()
	ctx, span := t.tracer.Start(ctx, "tracker.ProcessSeries",
		trace.WithAttributes(
			attribute.String("series.title", series.Title),
			attribute.String("pass.id", passID),
		))
	start := time.Now()
	defer func() {
		span.End()
		t.metrics.passDuration.WithLabelValues(series.Title).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.metrics.passErrors.WithLabelValues(series.Title).Inc()
			return
		}
		t.metrics.passes.WithLabelValues(series.Title).Inc()
	}()

	log := t.log.With(zap.String("series", series.Title), zap.String("pass_id", passID))

	posts, err := t.seriesPosts(ctx, series)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("series.posts", len(posts)))
	log.Info("processing series", zap.Int("posts", len(posts)))

	board, extractor, ignore, err := t.newBoard(series)
	if err != nil {
		return err
	}

	var prev time.Time
	for i, post := range posts {
		round := i + 1
		if round > 1 {
			reset, err := board.MaybeReset(prev, post.Created, domain.Cadence(series.Cadence()))
			if err != nil {
				return err
			}
			if reset {
				log.Info("leaderboard reset", zap.Int("round", round), zap.String("cadence", series.Cadence()))
			}
		}
		prev = post.Created

		comments, err := t.client.Comments(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch comments for %s: %w", post.ID, err)
		}

		scores := extract.RoundScores(extractor, comments, ignore)
		board.MergeRound(round, scores)
		t.metrics.postsProcessed.WithLabelValues(series.Title).Inc()
		t.metrics.scoresExtracted.WithLabelValues(series.Title).Add(float64(len(scores)))
		log.Debug("merged round",
			zap.Int("round", round),
			zap.String("post", post.Title),
			zap.Int("scores", len(scores)))

		if board.Len() == 0 {
			continue
		}
		if err := t.publish(ctx, log, series, post, comments, board.Rank(), round); err != nil {
			return err
		}
	}
	return nil
}

// Standings rebuilds a series' leaderboard without publishing anything and
// returns the final standings plus the number of processed rounds. Used by
// the workbook export.
func (t *Tracker) Standings(ctx context.Context, series *config.Series) ([]domain.Standing, int, error) {
	posts, err := t.seriesPosts(ctx, series)
	if err != nil {
		return nil, 0, err
	}
	board, extractor, ignore, err := t.newBoard(series)
	if err != nil {
		return nil, 0, err
	}
	var prev time.Time
	for i, post := range posts {
		round := i + 1
		if round > 1 {
			if _, err := board.MaybeReset(prev, post.Created, domain.Cadence(series.Cadence())); err != nil {
				return nil, 0, err
			}
		}
		prev = post.Created
		comments, err := t.client.Comments(ctx, post.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch comments for %s: %w", post.ID, err)
		}
		board.MergeRound(round, extract.RoundScores(extractor, comments, ignore))
	}
	return board.Rank(), len(posts), nil
}

// publish posts a new standings comment under the post, or edits the
// existing one. New comments also send the series author a CSV statistics
// message.
func (t *Tracker) publish(
	ctx context.Context,
	log *zap.Logger,
	series *config.Series,
	post ports.Post,
	comments []ports.Comment,
	standings []domain.Standing,
	round int,
) error {
	existing, found := t.findOwnComment(comments)

	opts := render.BodyOptions{
		PlotCount:  series.TopPlotCount,
		Limit:      series.TopCount,
		Hide:       series.HideSet(),
		UpdatedAt:  t.now(),
		Maintainer: t.maintainer,
		SourceURL:  t.sourceURL,
	}

	if !found {
		opts.ChartURL = t.chartURL(ctx, log, series, standings, round)
		body := render.Body(standings, opts)
		csv := render.CSV(standings, series.SheetExcludeSet())
		subject := fmt.Sprintf("Statistics for %q", post.Title)
		log.Info("posting new leaderboard comment", zap.String("post", post.Title))
		if t.debug {
			log.Info("debug mode, skipping reply", zap.String("body", body))
			return nil
		}
		if err := t.client.SendMessage(ctx, series.Author, subject, csv); err != nil {
			return fmt.Errorf("failed to send statistics message: %w", err)
		}
		if _, err := t.client.Reply(ctx, post.ID, body); err != nil {
			return fmt.Errorf("failed to post leaderboard comment: %w", err)
		}
		t.metrics.commentsPosted.WithLabelValues(series.Title).Inc()
		return nil
	}

	if render.NeedsChartUpdate(existing.Body, standings, series.TopPlotCount) {
		opts.ChartURL = t.chartURL(ctx, log, series, standings, round)
	} else {
		opts.ChartURL = render.ExistingChartURL(existing.Body)
	}
	body := render.Body(standings, opts)
	log.Info("editing leaderboard comment", zap.String("post", post.Title))
	if t.debug {
		log.Info("debug mode, skipping edit", zap.String("body", body))
		return nil
	}
	if err := t.client.EditComment(ctx, existing.ID, body); err != nil {
		return fmt.Errorf("failed to edit leaderboard comment: %w", err)
	}
	t.metrics.commentsEdited.WithLabelValues(series.Title).Inc()
	return nil
}

// Message sends a direct message through the platform client unless debug
// mode is active.
func (t *Tracker) Message(ctx context.Context, to, subject, body string) error {
	if t.debug {
		t.log.Info("debug mode, skipping message",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	return t.client.SendMessage(ctx, to, subject, body)
}

// findOwnComment locates the bot's leaderboard comment under a post by
// author and marker text.
func (t *Tracker) findOwnComment(comments []ports.Comment) (ports.Comment, bool) {
	me := t.client.Me()
	for _, comment := range comments {
		if comment.Author == me && strings.Contains(comment.Body, render.Marker) {
			return comment, true
		}
	}
	return ports.Comment{}, false
}

// chartURL renders and uploads the score-history chart, returning its URL.
// Charts need at least three rounds of history and both a renderer and an
// image host; otherwise the result is empty and the body omits the link.
func (t *Tracker) chartURL(
	ctx context.Context,
	log *zap.Logger,
	series *config.Series,
	standings []domain.Standing,
	round int,
) string {
	if t.charts == nil || t.images == nil || round <= 2 {
		return ""
	}
	top := standings
	if len(top) > series.TopPlotCount {
		top = top[:series.TopPlotCount]
	}
	png, err := t.charts.RenderHistory(top, round)
	if err != nil {
		log.Warn("chart rendering failed", zap.Error(err))
		return ""
	}
	if t.debug {
		log.Info("debug mode, skipping chart upload", zap.Int("bytes", len(png)))
		return ""
	}
	url, err := t.images.Upload(ctx, png, fmt.Sprintf("%s score history", series.Title))
	if err != nil {
		log.Warn("chart upload failed", zap.Error(err))
		return ""
	}
	t.metrics.chartsRendered.WithLabelValues(series.Title).Inc()
	log.Info("uploaded chart", zap.String("url", url))
	return url
}

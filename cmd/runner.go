package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/repositories"
	"github.com/desertthunder/songdl/internal/resolver"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/sources"
	"github.com/desertthunder/songdl/internal/tagger"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil in [RunnerOpts] are built from the loaded configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	getenv     func(string) string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	debug      bool
	searcher   services.Searcher
	downloader services.Downloader
	extractor  services.PlaylistExtractor
	spotify    sources.SpotifyLister
	tagger     tasks.Tagger
	ytdlp      *services.YTDLPService
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Getenv     func(string) string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader // stdin for "lines -"
	Searcher   services.Searcher
	Downloader services.Downloader
	Extractor  services.PlaylistExtractor
	Spotify    sources.SpotifyLister
	Tagger     tasks.Tagger
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		getenv:     opts.Getenv,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		searcher:   opts.Searcher,
		downloader: opts.Downloader,
		extractor:  opts.Extractor,
		spotify:    opts.Spotify,
		tagger:     opts.Tagger,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, resolveCommand, inspectCommand, cleanCommand, setupCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by every collaborator built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger != nil {
		logger.SetLevel(r.logger.GetLevel())
		r.logger = logger
	}
}

// prepare loads configuration for a command.
//
// Precedence, lowest first: embedded defaults, the config file, the environment (and an optional .env), flags.
func (r *Runner) prepare(cmd *cli.Command) error {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		if err := shared.LoadEnvFile(".env"); err != nil {
			r.logger.Warn("ignoring env file", "error", err)
		}
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv(r.getenv)
		r.config = config
	}

	if cmd.IsSet("output") {
		r.config.Output.Dir = cmd.String("output")
	}
	if cmd.IsSet("quality") {
		r.config.Output.Quality = cmd.String("quality")
	}
	if cmd.IsSet("format") {
		r.config.Output.Format = cmd.String("format")
	}
	if cmd.Bool("no-retry") {
		r.config.Resolver.DegradedRetry = false
	}
	if cmd.Bool("no-pacing") {
		r.config.Pacing.Enabled = false
	}

	r.debug = cmd.Bool("debug")
	if r.debug {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}

	return r.config.Validate()
}

// backend returns the yt-dlp service, installing a managed build when configured to.
func (r *Runner) backend(ctx context.Context) (*services.YTDLPService, error) {
	if r.ytdlp != nil {
		return r.ytdlp, nil
	}

	svc := services.NewYTDLPServiceFromConfig(r.config.YTDLP, r.logger)
	if r.config.YTDLP.Install {
		if err := svc.Install(ctx); err != nil {
			return nil, err
		}
	}
	r.ytdlp = svc
	return svc, nil
}

func (r *Runner) ensureSearcher(ctx context.Context) error {
	if r.searcher != nil {
		return nil
	}
	svc, err := r.backend(ctx)
	if err != nil {
		return err
	}
	r.searcher = svc
	return nil
}

func (r *Runner) ensureDownloader(ctx context.Context) error {
	if r.downloader != nil {
		return nil
	}
	svc, err := r.backend(ctx)
	if err != nil {
		return err
	}
	r.downloader = svc
	return nil
}

func (r *Runner) ensureExtractor(ctx context.Context) error {
	if r.extractor != nil {
		return nil
	}
	svc, err := r.backend(ctx)
	if err != nil {
		return err
	}
	r.extractor = svc
	return nil
}

func (r *Runner) ensureSpotify(ctx context.Context) error {
	if r.spotify != nil {
		return nil
	}
	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.logger)
	if err != nil {
		return err
	}
	if err := svc.Authenticate(ctx); err != nil {
		return err
	}
	r.spotify = svc
	return nil
}

// cacheDB opens the resolution cache when enabled. Returns nil without error when disabled.
func (r *Runner) cacheDB() (*sql.DB, error) {
	if r.db != nil || !r.config.Cache.Enabled {
		return r.db, nil
	}
	db, err := shared.OpenCacheDatabase(r.config.Cache)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) pacer() resolver.Pacer {
	if !r.config.Pacing.Enabled {
		return tasks.NoPacer{}
	}
	return tasks.NewJitterPacer(r.config.Pacing.MinDelay, r.config.Pacing.MaxDelay)
}

// newResolver wires the tiered resolver with the optional cache.
func (r *Runner) newResolver(ctx context.Context, pacer resolver.Pacer) (*resolver.Resolver, error) {
	if err := r.ensureSearcher(ctx); err != nil {
		return nil, err
	}

	opts := resolver.Options{
		OfficialSuffix: r.config.Resolver.OfficialSuffix,
		Pacer:          pacer,
		Logger:         r.logger,
	}

	db, err := r.cacheDB()
	if err != nil {
		r.logger.Warn("resolution cache unavailable", "error", err)
	} else if db != nil {
		opts.Cache = repositories.NewMediaCacheAdapter(repositories.NewMediaCacheRepository(db), r.logger)
	}

	return resolver.New(r.searcher, opts), nil
}

// newEngine wires resolver, acquirer and engine for one download run.
func (r *Runner) newEngine(ctx context.Context) (*tasks.Engine, error) {
	quality, err := models.ParseQuality(r.config.Output.Quality)
	if err != nil {
		return nil, err
	}
	if err := r.ensureDownloader(ctx); err != nil {
		return nil, err
	}

	pacer := r.pacer()
	res, err := r.newResolver(ctx, pacer)
	if err != nil {
		return nil, err
	}

	tg := r.tagger
	if tg == nil {
		tg = tagger.New(r.logger)
	}

	acquirer := tasks.NewAcquirer(tasks.AcquirerOpts{
		OutputDir:     r.config.Output.Dir,
		Format:        r.config.Output.Format,
		Quality:       quality,
		DegradedRetry: r.config.Resolver.DegradedRetry,
		Resolver:      res,
		Downloader:    r.downloader,
		Tagger:        tg,
		Pacer:         pacer,
		Logger:        r.logger,
	})

	opts := tasks.EngineOpts{
		OutputDir: r.config.Output.Dir,
		Acquirer:  acquirer,
		Pacer:     pacer,
		Logger:    r.logger,
	}
	if r.db != nil {
		opts.Recorder = repositories.NewRunRepository(r.db)
	}
	return tasks.NewEngine(opts), nil
}

// newSource builds the adapter for kind, connecting the collaborators it needs.
func (r *Runner) newSource(ctx context.Context, kind sources.Kind, arg string) (sources.Source, error) {
	switch kind {
	case sources.KindCSV:
		return &sources.CSVSource{Path: arg, Logger: r.logger}, nil
	case sources.KindLines:
		return &sources.LinesSource{Path: arg, Stdin: r.input, Logger: r.logger}, nil
	case sources.KindPlaylist:
		if err := r.ensureExtractor(ctx); err != nil {
			return nil, err
		}
		return &sources.PlaylistSource{URL: arg, Extractor: r.extractor, Logger: r.logger}, nil
	case sources.KindSpotify:
		if err := r.ensureSpotify(ctx); err != nil {
			return nil, err
		}
		return &sources.SpotifySource{URL: arg, Client: r.spotify, Logger: r.logger}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %v", shared.ErrInvalidArgument, kind)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

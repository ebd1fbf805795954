package cli

import (
	"fmt"
	"log/slog"
	"os"

	"issueflow/internal/annotation"
	"issueflow/internal/config"
	"issueflow/internal/jira"
	"issueflow/internal/output"
	"issueflow/internal/tracker"
	"issueflow/internal/tracker/filetracker"
	"issueflow/internal/workflow"
)

// App is the dependency container shared by all commands.
//
// Tests build an App directly with mocks; production code uses [NewApp].
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Printer *output.Printer
	Tracker tracker.Tracker
	Rules   *workflow.Loader
}

// NewApp wires an [App] from configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := NewTracker(cfg, logger)
	if err != nil {
		return nil, err
	}

	printer := output.NewPrinter()
	if cfg.Output.Style == config.StylePlain {
		printer = output.NewPlainPrinter(os.Stdout)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Printer: printer,
		Tracker: t,
		Rules:   workflow.NewLoader(logger),
	}, nil
}

// NewTracker builds the tracker backend selected by tracker.kind.
func NewTracker(cfg *config.Config, logger *slog.Logger) (tracker.Tracker, error) {
	switch cfg.Tracker.Kind {
	case config.TrackerJira:
		return jira.NewClient(jira.Options{
			URL:        cfg.Tracker.URL,
			Username:   cfg.Tracker.Username,
			APIToken:   cfg.Tracker.APIToken,
			Timeout:    cfg.Tracker.Timeout,
			MaxRetries: cfg.Tracker.MaxRetries,
			Logger:     logger,
		}), nil
	case config.TrackerFile:
		return filetracker.New(cfg.Tracker.FilePath), nil
	default:
		return nil, fmt.Errorf("unknown tracker kind %q", cfg.Tracker.Kind)
	}
}

// rulesLoader returns the app's rule loader, creating one if tests left it unset.
func (a *App) rulesLoader() *workflow.Loader {
	if a.Rules == nil {
		a.Rules = workflow.NewLoader(a.logger())
	}
	return a.Rules
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// loadAnnotations reads the configured annotation manifest. No path means no
// static annotations.
func (a *App) loadAnnotations() (*annotation.Manifest, error) {
	if a.Config.Annotations.Path == "" {
		return nil, nil
	}
	return annotation.ReadFromFile(a.Config.Annotations.Path, annotation.Options{
		IssuePrefix: a.Config.Annotations.IssuePrefix,
	})
}

// rulesSourceName describes the configured rule source for display.
func (a *App) rulesSourceName() string {
	if a.Config.Workflow.RulesPath == workflow.BundledSource {
		return "bundled"
	}
	return a.Config.Workflow.RulesPath
}

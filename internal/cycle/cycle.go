// Package cycle runs one sync, dry-run and notify pass.
//
// The steps run strictly in order:
//
//	sync tree → [sync overlays] → [sync remote index] → dry-run update →
//	connect channels → send and disconnect each channel
//
// Only an invalid configuration or a capture file that cannot be created
// stops a run. Every other failure is logged and the run goes on.
package cycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/common/shell"
	"github.com/obentoo/gun/internal/notify"
	"github.com/obentoo/gun/internal/report"
)

var ErrNoConfig = errors.New("no configuration given")

// Connector connects the notification channel registered under name
type Connector func(ctx context.Context, name string) (notify.Channel, error)

// Step is one optional or mandatory sync command
type Step struct {
	Name    string
	Enabled bool
	Command string
}

// Result describes what a run did
type Result struct {
	SyncErrors map[string]error // keyed by step name
	UpdateErr  error            // Non-zero exit of the dry-run; its output was still reported
	Summary    report.Summary
	Sent       []string
	Failed     map[string]error // keyed by channel name
}

// Cycle holds everything a run needs. It does not modify the configuration.
type Cycle struct {
	cfg      *config.Config
	exec     shell.Executor
	connect  Connector
	renderer *report.Renderer
}

// Option configures a Cycle
type Option func(*Cycle)

// WithExecutor sets the executor for sync and dry-run commands
func WithExecutor(e shell.Executor) Option {
	return func(c *Cycle) {
		c.exec = e
	}
}

// WithConnector replaces how notification channels are connected
func WithConnector(connect Connector) Option {
	return func(c *Cycle) {
		c.connect = connect
	}
}

// RendererFor builds the report renderer selected by the [report] section
func RendererFor(cfg *config.Config) *report.Renderer {
	return report.NewRenderer(
		report.WithTrim(report.TrimOptions{
			Header: cfg.Report.TrimHeader,
			Footer: cfg.Report.TrimFooter,
		}),
		report.WithStripUnknown(cfg.StripUnknownEscapes()),
	)
}

// New validates cfg and prepares a run
func New(cfg *config.Config, opts ...Option) (*Cycle, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cycle{
		cfg:      cfg,
		exec:     shell.NewRunner(),
		renderer: RendererFor(cfg),
	}
	c.connect = func(ctx context.Context, name string) (notify.Channel, error) {
		return notify.New(ctx, name, c.cfg, notify.WithRenderer(c.renderer))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Renderer returns the renderer used for every channel
func (c *Cycle) Renderer() *report.Renderer {
	return c.renderer
}

// Steps returns the sync steps in execution order
func (c *Cycle) Steps() []Step {
	s := c.cfg.Sync
	return []Step{
		{Name: "tree", Enabled: true, Command: shell.Join(s.TreeCommand, s.TreeOptions)},
		{Name: "overlays", Enabled: c.cfg.General.SyncOverlays, Command: shell.Join(s.OverlaysCommand, s.OverlaysOptions)},
		{Name: "remote index", Enabled: c.cfg.General.SyncRemoteIndex, Command: shell.Join(s.RemoteIndexCommand, s.RemoteIndexOptions)},
	}
}

// Sync runs every enabled sync step. Failures are logged and returned per
// step; they never stop the remaining steps.
func (c *Cycle) Sync(ctx context.Context) map[string]error {
	failed := make(map[string]error)
	for _, step := range c.Steps() {
		if !step.Enabled {
			logger.Info("Skipping %s sync (disabled)", step.Name)
			continue
		}
		logger.Info("Syncing %s: %s", step.Name, step.Command)
		if err := c.exec.Run(ctx, step.Command); err != nil {
			logger.Error("Syncing %s failed: %v", step.Name, err)
			failed[step.Name] = err
		}
	}
	return failed
}

// DryRunCommand returns the update command with pretend and color flags
func (c *Cycle) DryRunCommand() string {
	return report.DryRunCommand(c.cfg.Update.Command, c.cfg.Update.Options)
}

// DryRun captures the dry-run update output into buf. The command's own
// failure is returned as updateErr and does not prevent reporting; err is
// set only when nothing could be captured.
func (c *Cycle) DryRun(ctx context.Context, buf *report.Buffer) (updateErr, err error) {
	command := c.DryRunCommand()
	logger.Info("Checking for updates: %s", command)

	runErr := buf.Capture(ctx, c.exec, command)
	if _, textErr := buf.Text(); textErr != nil {
		return nil, fmt.Errorf("capturing update output: %w", errors.Join(runErr, textErr))
	}
	if runErr != nil {
		logger.Warn("Update command failed, reporting its output as is: %v", runErr)
	}
	return runErr, nil
}

// Run performs one complete cycle
func (c *Cycle) Run(ctx context.Context) (*Result, error) {
	// The capture file comes first so a full /var/tmp aborts before any
	// command touches the system
	buf, err := report.NewBuffer(c.cfg.General.TmpDir)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	res := &Result{Failed: make(map[string]error)}
	res.SyncErrors = c.Sync(ctx)

	res.UpdateErr, err = c.DryRun(ctx, buf)
	if err != nil {
		return res, err
	}

	if plain, err := c.renderer.Plain(buf); err == nil {
		res.Summary = report.Summarize(plain)
		logger.Info("Pending updates: %s", res.Summary)
	}

	channels := c.connectAll(ctx, res)
	if len(channels) == 0 {
		logger.Warn("No notification channel available, report not sent")
		return res, nil
	}

	c.notifyAll(ctx, channels, buf, res)
	return res, nil
}

// connectAll connects the enabled channels in configured order and drops
// those that fail
func (c *Cycle) connectAll(ctx context.Context, res *Result) []notify.Channel {
	var channels []notify.Channel
	for _, name := range c.cfg.Channels() {
		ch, err := c.connect(ctx, name)
		if err != nil {
			logger.Warn("Notification channel %s unavailable: %v", name, err)
			res.Failed[name] = err
			continue
		}
		channels = append(channels, ch)
	}
	return channels
}

// notifyAll sends through every channel, then disconnects it
func (c *Cycle) notifyAll(ctx context.Context, channels []notify.Channel, buf *report.Buffer, res *Result) {
	for _, ch := range channels {
		if err := ch.Send(ctx, buf); err != nil {
			logger.Error("Sending report via %s failed: %v", ch.Name(), err)
			res.Failed[ch.Name()] = err
		} else {
			res.Sent = append(res.Sent, ch.Name())
		}

		if err := ch.Disconnect(); err != nil {
			logger.Warn("Disconnecting %s: %v", ch.Name(), err)
		}
	}
}

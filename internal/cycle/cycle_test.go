package cycle

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/shell"
	"github.com/obentoo/gun/internal/notify"
	"github.com/obentoo/gun/internal/report"
)

const updateOutput = "\nThese are the packages that would be merged, in order:\n\n" +
	"[\x1b[32mebuild\x1b[39;49;00m     \x1b[36;01mU\x1b[39;49;00m  ] \x1b[32;01mapp-misc/foo-2.0\x1b[39;49;00m \x1b[34;01m[1.0]\x1b[39;49;00m\n" +
	"\nTotal: 1 package (1 upgrade), Size of downloads: 0 KiB\n"

// stubChannel records how the cycle used it
type stubChannel struct {
	name         string
	sendErr      error
	received     []string
	disconnected int
	log          *[]string
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(_ context.Context, buf *report.Buffer) error {
	*s.log = append(*s.log, "send "+s.name)
	text, err := buf.Text()
	if err != nil {
		return err
	}
	s.received = append(s.received, text)
	return s.sendErr
}

func (s *stubChannel) Disconnect() error {
	*s.log = append(*s.log, "disconnect "+s.name)
	s.disconnected++
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.General.TmpDir = t.TempDir()
	cfg.Sync = config.SyncConfig{
		TreeCommand:        "emerge",
		TreeOptions:        "--sync",
		OverlaysCommand:    "layman",
		OverlaysOptions:    "-S",
		RemoteIndexCommand: "eix-remote",
		RemoteIndexOptions: "update",
	}
	cfg.Update = config.UpdateConfig{Command: "emerge", Options: "-uDN @world"}
	cfg.Notify = config.NotifyConfig{}
	return cfg
}

func updateExecutor() *shell.MockExecutor {
	return &shell.MockExecutor{
		CaptureFunc: func(_ context.Context, _ string, w io.Writer) error {
			_, err := io.WriteString(w, updateOutput)
			return err
		},
	}
}

func TestRunSkipsDisabledOverlaySync(t *testing.T) {
	cfg := testConfig(t)
	exec := updateExecutor()

	c, err := New(cfg, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if n := exec.Count("layman -S"); n != 0 {
		t.Errorf("overlay sync invoked %d times, want 0", n)
	}
	if n := exec.Count("eix-remote update"); n != 0 {
		t.Errorf("remote index sync invoked %d times, want 0", n)
	}
	want := []string{"emerge --sync", "emerge --pretend --color y -uDN @world"}
	if !reflect.DeepEqual(exec.Commands, want) {
		t.Errorf("commands = %v, want %v", exec.Commands, want)
	}
}

func TestRunOptionalSyncOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.SyncOverlays = true
	cfg.General.SyncRemoteIndex = true
	exec := updateExecutor()

	c, err := New(cfg, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"emerge --sync", "layman -S", "eix-remote update", "emerge --pretend --color y -uDN @world"}
	if !reflect.DeepEqual(exec.Commands, want) {
		t.Errorf("commands = %v, want %v", exec.Commands, want)
	}
}

// TestPropertyOptionalStepsFollowToggles checks that each optional sync
// command runs exactly when its toggle is on
func TestPropertyOptionalStepsFollowToggles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("optional steps follow their toggles", prop.ForAll(
		func(overlays, remote bool) bool {
			cfg := testConfig(t)
			cfg.General.SyncOverlays = overlays
			cfg.General.SyncRemoteIndex = remote
			exec := updateExecutor()

			c, err := New(cfg, WithExecutor(exec))
			if err != nil {
				return false
			}
			if _, err := c.Run(context.Background()); err != nil {
				return false
			}
			return exec.Count("emerge --sync") == 1 &&
				(exec.Count("layman -S") == 1) == overlays &&
				(exec.Count("eix-remote update") == 1) == remote
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestRunWithoutChannelsSucceeds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify = config.NotifyConfig{Email: true, Jabber: true}
	cfg.Email = config.EmailConfig{Host: "mail.example.org", Port: 25, MailFrom: "gun@example.org", MailTo: "root@example.org"}
	cfg.Jabber = config.JabberConfig{Host: "example.org", Port: 5222, From: "gun@example.org", Password: "pw", To: "root@example.org"}

	refused := func(_ context.Context, name string) (notify.Channel, error) {
		return nil, &notify.Error{Channel: name, Kind: notify.KindConnect, Err: errors.New("connection refused")}
	}

	c, err := New(cfg, WithExecutor(updateExecutor()), WithConnector(refused))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want success with no channels", err)
	}
	if len(res.Sent) != 0 || len(res.Failed) != 2 {
		t.Errorf("Sent = %v, Failed = %v", res.Sent, res.Failed)
	}
	if kind, _ := notify.KindOf(res.Failed["email"]); kind != notify.KindConnect {
		t.Errorf("email failure kind = %v", kind)
	}
}

func TestRunNothingEnabled(t *testing.T) {
	c, err := New(testConfig(t), WithExecutor(updateExecutor()), WithConnector(func(context.Context, string) (notify.Channel, error) {
		t.Error("no channel should be connected")
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Pending() != 1 {
		t.Errorf("Summary = %s", res.Summary)
	}
}

func TestRunDropsFailedChannelAndKeepsOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify = config.NotifyConfig{Email: true, Jabber: true, Order: []string{"jabber", "email"}}
	cfg.Email = config.EmailConfig{Host: "mail.example.org", Port: 25, MailFrom: "gun@example.org", MailTo: "root@example.org"}
	cfg.Jabber = config.JabberConfig{Host: "example.org", Port: 5222, From: "gun@example.org", Password: "pw", To: "root@example.org"}

	var log []string
	chat := &stubChannel{name: "jabber", log: &log}
	connect := func(_ context.Context, name string) (notify.Channel, error) {
		log = append(log, "connect "+name)
		if name == "email" {
			return nil, &notify.Error{Channel: name, Kind: notify.KindAuth, Err: errors.New("535 bad credentials")}
		}
		return chat, nil
	}

	c, err := New(cfg, WithExecutor(updateExecutor()), WithConnector(connect))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"connect jabber", "connect email", "send jabber", "disconnect jabber"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
	if !reflect.DeepEqual(res.Sent, []string{"jabber"}) {
		t.Errorf("Sent = %v", res.Sent)
	}
	if len(chat.received) != 1 || chat.received[0] != updateOutput {
		t.Errorf("channel received %q", chat.received)
	}
}

func TestRunSendFailureStillDisconnects(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify = config.NotifyConfig{Email: true, Jabber: true}
	cfg.Email = config.EmailConfig{Host: "mail.example.org", Port: 25, MailFrom: "gun@example.org", MailTo: "root@example.org"}
	cfg.Jabber = config.JabberConfig{Host: "example.org", Port: 5222, From: "gun@example.org", Password: "pw", To: "root@example.org"}

	var log []string
	stubs := map[string]*stubChannel{
		"email":  {name: "email", sendErr: notify.ErrAllRecipientsRejected, log: &log},
		"jabber": {name: "jabber", log: &log},
	}
	connect := func(_ context.Context, name string) (notify.Channel, error) {
		return stubs[name], nil
	}

	c, err := New(cfg, WithExecutor(updateExecutor()), WithConnector(connect))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"send email", "disconnect email", "send jabber", "disconnect jabber"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
	if !errors.Is(res.Failed["email"], notify.ErrAllRecipientsRejected) || !reflect.DeepEqual(res.Sent, []string{"jabber"}) {
		t.Errorf("Sent = %v, Failed = %v", res.Sent, res.Failed)
	}
}

func TestRunSyncFailureDoesNotAbort(t *testing.T) {
	exec := updateExecutor()
	exec.RunFunc = func(context.Context, string) error {
		return errors.New("rsync: connection timed out")
	}

	c, err := New(testConfig(t), WithExecutor(exec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := res.SyncErrors["tree"]; !ok {
		t.Errorf("SyncErrors = %v", res.SyncErrors)
	}
	if exec.Count("emerge --pretend --color y -uDN @world") != 1 {
		t.Error("dry-run must still run after a failed sync")
	}
}

func TestRunReportsOutputOfFailedUpdate(t *testing.T) {
	exec := &shell.MockExecutor{
		CaptureFunc: func(_ context.Context, _ string, w io.Writer) error {
			io.WriteString(w, "emerge: there are no ebuilds to satisfy \"@wrld\".\n")
			return errors.New("exit status 1")
		},
	}

	var log []string
	chat := &stubChannel{name: "jabber", log: &log}
	cfg := testConfig(t)
	cfg.Notify.Jabber = true
	cfg.Jabber = config.JabberConfig{Host: "example.org", Port: 5222, From: "gun@example.org", Password: "pw", To: "root@example.org"}

	c, err := New(cfg, WithExecutor(exec), WithConnector(func(context.Context, string) (notify.Channel, error) {
		return chat, nil
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.UpdateErr == nil {
		t.Error("UpdateErr should record the failed dry-run")
	}
	if len(chat.received) != 1 || !strings.Contains(chat.received[0], "no ebuilds") {
		t.Errorf("channel received %q", chat.received)
	}
}

func TestRunCaptureFileFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.TmpDir = filepath.Join(t.TempDir(), "missing")
	exec := updateExecutor()

	c, err := New(cfg, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, report.ErrCaptureFile) {
		t.Fatalf("Run() error = %v, want ErrCaptureFile", err)
	}
	if len(exec.Commands) != 0 {
		t.Errorf("commands ran before the fatal error: %v", exec.Commands)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Email = true
	cfg.Email = config.EmailConfig{}

	_, err := New(cfg)
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("New() error = %v, want *config.ValidationError", err)
	}

	if _, err := New(nil); !errors.Is(err, ErrNoConfig) {
		t.Errorf("New(nil) error = %v, want ErrNoConfig", err)
	}
}

func TestRendererFollowsReportSection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.TrimHeader = true
	cfg.Report.TrimFooter = true

	plain, err := RendererFor(cfg).Plain(report.FromText(updateOutput))
	if err != nil {
		t.Fatalf("Plain() error = %v", err)
	}
	if plain != "[ebuild     U  ] app-misc/foo-2.0 [1.0]\n" {
		t.Errorf("Plain() = %q", plain)
	}
}

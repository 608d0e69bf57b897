package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/obentoo/gun/internal/common/logger"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrUnsupportedFormat = errors.New("unsupported configuration format: use .toml, .yaml or .yml")
)

const (
	DefaultEmailPort  = 25
	DefaultJabberPort = 5222
	DefaultTmpDir     = "/var/tmp"

	ChannelEmail  = "email"
	ChannelJabber = "jabber"
)

// Config represents the application configuration.
// It is loaded once at startup and never modified afterwards.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Sync    SyncConfig    `toml:"sync" yaml:"sync"`
	Update  UpdateConfig  `toml:"update" yaml:"update"`
	Report  ReportConfig  `toml:"report" yaml:"report"`
	Notify  NotifyConfig  `toml:"notify" yaml:"notify"`
	Email   EmailConfig   `toml:"email" yaml:"email"`
	Jabber  JabberConfig  `toml:"jabber" yaml:"jabber"`
}

// GeneralConfig holds the optional step toggles and runtime paths
type GeneralConfig struct {
	SyncOverlays    bool   `toml:"sync_overlays" yaml:"sync_overlays"`
	SyncRemoteIndex bool   `toml:"sync_remote_index" yaml:"sync_remote_index"`
	TmpDir          string `toml:"tmp_dir,omitempty" yaml:"tmp_dir,omitempty"`   // Directory for the capture file
	LogFile         string `toml:"log_file,omitempty" yaml:"log_file,omitempty"` // Empty disables file logging
}

// SyncConfig holds the tree, overlay and remote index sync commands
type SyncConfig struct {
	TreeCommand        string `toml:"tree_command" yaml:"tree_command"`
	TreeOptions        string `toml:"tree_options" yaml:"tree_options"`
	OverlaysCommand    string `toml:"overlays_command" yaml:"overlays_command"`
	OverlaysOptions    string `toml:"overlays_options" yaml:"overlays_options"`
	RemoteIndexCommand string `toml:"remote_index_command" yaml:"remote_index_command"`
	RemoteIndexOptions string `toml:"remote_index_options" yaml:"remote_index_options"`
}

// UpdateConfig holds the dry-run update command
type UpdateConfig struct {
	Command string `toml:"command" yaml:"command"`
	Options string `toml:"options" yaml:"options"`
}

// ReportConfig holds report filters
type ReportConfig struct {
	TrimHeader   bool  `toml:"trim_header" yaml:"trim_header"`
	TrimFooter   bool  `toml:"trim_footer" yaml:"trim_footer"`
	StripUnknown *bool `toml:"strip_unknown,omitempty" yaml:"strip_unknown,omitempty"` // Defaults to true
}

// NotifyConfig holds the notification toggles
type NotifyConfig struct {
	Email  bool     `toml:"email" yaml:"email"`
	Jabber bool     `toml:"jabber" yaml:"jabber"`
	Order  []string `toml:"order,omitempty" yaml:"order,omitempty"`
}

// EmailConfig holds the mail relay settings
type EmailConfig struct {
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	MailFrom string `toml:"mailfrom" yaml:"mailfrom"`
	MailTo   string `toml:"mailto" yaml:"mailto"` // Comma-separated list
}

// JabberConfig holds the XMPP server settings
type JabberConfig struct {
	Host     string `toml:"host,omitempty" yaml:"host,omitempty"` // Defaults to the domain of From
	Port     int    `toml:"port,omitempty" yaml:"port,omitempty"`
	From     string `toml:"jabber_from" yaml:"jabber_from"`
	Password string `toml:"password" yaml:"password"`
	To       string `toml:"jabber_to" yaml:"jabber_to"`
}

// Default returns a configuration that syncs the tree with emerge and
// reports by email to root@localhost
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			TmpDir: DefaultTmpDir,
		},
		Sync: SyncConfig{
			TreeCommand:        "emerge",
			TreeOptions:        "--sync --quiet",
			OverlaysCommand:    "layman",
			OverlaysOptions:    "--sync-all --quiet",
			RemoteIndexCommand: "eix-remote",
			RemoteIndexOptions: "update",
		},
		Update: UpdateConfig{
			Command: "emerge",
			Options: "--pretend --verbose --update --deep --newuse --color y @world",
		},
		Notify: NotifyConfig{
			Email: true,
		},
		Email: EmailConfig{
			Host:     "localhost",
			Port:     DefaultEmailPort,
			MailFrom: "gun@localhost",
			MailTo:   "root@localhost",
		},
	}
}

// ConfigPaths returns all possible config file paths in priority order
// 1. $GUN_CONFIG
// 2. /etc/gun/gun.toml
// 3. /etc/gun.toml
// 4. ~/.config/gun/gun.toml (XDG)
func ConfigPaths() []string {
	var paths []string
	if env := os.Getenv("GUN_CONFIG"); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths,
		filepath.Join("/etc", "gun", "gun.toml"),
		filepath.Join("/etc", "gun.toml"),
	)

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		if home, err := os.UserHomeDir(); err == nil {
			xdgConfig = filepath.Join(home, ".config")
		}
	}
	if xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "gun", "gun.toml"))
	}
	return paths
}

// FindConfigPath returns the first existing config file path
func FindConfigPath() (string, error) {
	paths := ConfigPaths()
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (searched %s)", ErrConfigNotFound, strings.Join(paths, ", "))
}

// Load reads and validates configuration from path, or from the first
// available config file when path is empty
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = FindConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, unknown, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	for _, key := range unknown {
		logger.Warn("%s: unknown setting %q ignored", path, key)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path without validating it.
// The returned keys are settings present in the file that gun does not know.
func LoadFrom(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, nil, err
	}

	var cfg Config
	var unknown []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".conf", "":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			unknown = append(unknown, key.String())
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	cfg.applyDefaults()
	return &cfg, unknown, nil
}

// SaveTo writes configuration to a specific file path.
// The format follows the file extension.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".conf", "":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		data = buf.Bytes()
	case ".yaml", ".yml":
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	// Credentials live in this file
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyDefaults() {
	if c.General.TmpDir == "" {
		c.General.TmpDir = DefaultTmpDir
	}
	if c.Email.Port == 0 {
		c.Email.Port = DefaultEmailPort
	}
	if c.Jabber.Port == 0 {
		c.Jabber.Port = DefaultJabberPort
	}
	if c.Jabber.Host == "" {
		if _, domain, ok := strings.Cut(c.Jabber.From, "@"); ok {
			domain, _, _ = strings.Cut(domain, "/")
			c.Jabber.Host = domain
		}
	}
}

// ValidationError lists every problem found in a configuration
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	msg := "invalid configuration:"
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// Validate checks that every required field is present.
// All problems are reported at once.
func (c *Config) Validate() error {
	var problems []string
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, "missing required field: "+key)
		}
	}
	checkPort := func(port int, key string) {
		if port < 1 || port > 65535 {
			problems = append(problems, key+": port must be between 1 and 65535, got "+strconv.Itoa(port))
		}
	}

	require(c.Sync.TreeCommand, "sync.tree_command")
	require(c.Update.Command, "update.command")
	if c.General.SyncOverlays {
		require(c.Sync.OverlaysCommand, "sync.overlays_command")
	}
	if c.General.SyncRemoteIndex {
		require(c.Sync.RemoteIndexCommand, "sync.remote_index_command")
	}

	if c.Notify.Email {
		require(c.Email.Host, "email.host")
		require(c.Email.MailFrom, "email.mailfrom")
		if len(c.Email.Recipients()) == 0 {
			problems = append(problems, "missing required field: email.mailto")
		}
		checkPort(c.Email.Port, "email.port")
	}
	if c.Notify.Jabber {
		require(c.Jabber.From, "jabber.jabber_from")
		require(c.Jabber.Password, "jabber.password")
		require(c.Jabber.To, "jabber.jabber_to")
		if c.Jabber.From != "" && !strings.Contains(c.Jabber.From, "@") {
			problems = append(problems, "jabber.jabber_from: want user@domain, got "+c.Jabber.From)
		}
		require(c.Jabber.Host, "jabber.host")
		checkPort(c.Jabber.Port, "jabber.port")
	}

	for _, name := range c.Notify.Order {
		if name != ChannelEmail && name != ChannelJabber {
			problems = append(problems, "notify.order: unknown channel "+strconv.Quote(name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Channels returns the enabled notification channels in send order
func (c *Config) Channels() []string {
	order := c.Notify.Order
	if len(order) == 0 {
		order = []string{ChannelEmail, ChannelJabber}
	}

	var channels []string
	seen := make(map[string]bool)
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		switch {
		case name == ChannelEmail && c.Notify.Email:
			channels = append(channels, name)
		case name == ChannelJabber && c.Notify.Jabber:
			channels = append(channels, name)
		}
	}
	return channels
}

// StripUnknownEscapes reports whether escape sequences missing from the
// escape map are removed from rendered reports
func (c *Config) StripUnknownEscapes() bool {
	if c.Report.StripUnknown == nil {
		return true
	}
	return *c.Report.StripUnknown
}

// Address returns host:port of the mail relay
func (e EmailConfig) Address() string {
	return fmtAddress(e.Host, e.Port)
}

// Recipients returns the trimmed, non-empty entries of MailTo
func (e EmailConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(e.MailTo, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Address returns host:port of the XMPP server
func (j JabberConfig) Address() string {
	return fmtAddress(j.Host, j.Port)
}

func fmtAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Package notify delivers a captured update report through the configured
// notification channels.
//
// A Channel holds one live transport session. It is connected by its
// constructor, used for a single Send and released with Disconnect.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/report"
)

var (
	ErrUnknownChannel        = errors.New("unknown notification channel")
	ErrNotConnected          = errors.New("channel is not connected")
	ErrNoRecipients          = errors.New("no recipients configured")
	ErrAllRecipientsRejected = errors.New("every recipient was rejected")
	ErrTimeout               = errors.New("connection timed out")
)

// DefaultTimeout bounds connecting to a mail relay or chat server
const DefaultTimeout = 30 * time.Second

// Channel is a connected notification transport
type Channel interface {
	// Name returns the configuration name of the channel, e.g. "email"
	Name() string
	// Send renders buf and delivers it. buf is only read.
	Send(ctx context.Context, buf *report.Buffer) error
	// Disconnect ends the session. Calling it again is a no-op.
	Disconnect() error
}

// ErrorKind tells which step of a channel's lifecycle failed
type ErrorKind int

const (
	KindConnect ErrorKind = iota + 1
	KindAuth
	KindSend
	KindDisconnect
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindAuth:
		return "authentication"
	case KindSend:
		return "send"
	case KindDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by every channel operation that fails
type Error struct {
	Channel string
	Kind    ErrorKind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Channel, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.Kind, true
	}
	return 0, false
}

type options struct {
	renderer *report.Renderer
	now      func() time.Time
	hostname string
	timeout  time.Duration
	dialSMTP smtpDialer
	dialXMPP xmppDialer
}

// Option configures channel construction
type Option func(*options)

// WithRenderer sets the renderer used to turn the report buffer into text
func WithRenderer(r *report.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithClock sets the clock used for the mail Date and Subject headers
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithHostname overrides the host name shown in the mail subject and
// sent in EHLO
func WithHostname(name string) Option {
	return func(o *options) {
		o.hostname = name
	}
}

// WithTimeout sets the connect timeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		renderer: report.NewRenderer(),
		now:      time.Now,
		timeout:  DefaultTimeout,
		dialSMTP: dialSMTP,
		dialXMPP: dialXMPP,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.hostname == "" {
		o.hostname = localHostname()
	}
	return o
}

func localHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

// Constructor connects one channel from the configuration
type Constructor func(ctx context.Context, cfg *config.Config, opts ...Option) (Channel, error)

var constructors = map[string]Constructor{
	config.ChannelEmail: func(ctx context.Context, cfg *config.Config, opts ...Option) (Channel, error) {
		return NewEmail(ctx, cfg.Email, opts...)
	},
	config.ChannelJabber: func(ctx context.Context, cfg *config.Config, opts ...Option) (Channel, error) {
		return NewChat(ctx, cfg.Jabber, opts...)
	},
}

// New connects the channel registered under name
func New(ctx context.Context, name string, cfg *config.Config, opts ...Option) (Channel, error) {
	construct, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return construct(ctx, cfg, opts...)
}

// isClosed reports whether err means the peer already ended the session
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

package notify

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/xmppo/go-xmpp"
	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/report"
)

// DefaultResource is the XMPP resource used when the login identity has none
const DefaultResource = "gun"

// xmppsPort is the legacy port that expects TLS from the first byte
const xmppsPort = 5223

// xmppClient is the subset of *xmpp.Client used by Chat
type xmppClient interface {
	Send(chat xmpp.Chat) (int, error)
	Close() error
}

type xmppDialer func(opts xmpp.Options) (xmppClient, error)

func dialXMPP(opts xmpp.Options) (xmppClient, error) {
	c, err := opts.NewClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Chat sends the plain-text report as one XMPP message
type Chat struct {
	cfg      config.JabberConfig
	client   xmppClient
	renderer *report.Renderer
}

// NewChat connects and authenticates to the XMPP server of cfg
func NewChat(ctx context.Context, cfg config.JabberConfig, opts ...Option) (*Chat, error) {
	o := buildOptions(opts)

	user, resource, _ := strings.Cut(cfg.From, "/")
	if resource == "" {
		resource = DefaultResource
	}
	_, domain, _ := strings.Cut(user, "@")

	// Outside port 5223 the stream starts in plaintext and is upgraded when
	// the server offers STARTTLS. Servers without it still get SASL.
	plaintext := cfg.Port != xmppsPort
	xo := xmpp.Options{
		Host:                         cfg.Address(),
		User:                         user,
		Password:                     cfg.Password,
		Resource:                     resource,
		NoTLS:                        plaintext,
		StartTLS:                     plaintext,
		InsecureAllowUnencryptedAuth: plaintext,
		TLSConfig:                    &tls.Config{ServerName: domain},
		Session:                      true,
	}
	if plaintext {
		logger.Debug("XMPP login for %s may be sent unencrypted if %s does not offer STARTTLS", user, xo.Host)
	}

	type result struct {
		client xmppClient
		err    error
	}
	done := make(chan result, 1)
	go func() {
		c, err := o.dialXMPP(xo)
		done <- result{client: c, err: err}
	}()

	// go-xmpp has no context support; a late connection is closed once it
	// finally arrives
	abandon := func() {
		go func() {
			if r := <-done; r.client != nil {
				r.client.Close()
			}
		}()
	}

	logger.Debug("Connecting to XMPP server %s as %s", xo.Host, user)
	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &Error{Channel: config.ChannelJabber, Kind: classifyXMPP(r.err), Err: r.err}
		}
		return &Chat{cfg: cfg, client: r.client, renderer: o.renderer}, nil
	case <-timer.C:
		abandon()
		return nil, &Error{Channel: config.ChannelJabber, Kind: KindConnect, Err: ErrTimeout}
	case <-ctx.Done():
		abandon()
		return nil, &Error{Channel: config.ChannelJabber, Kind: KindConnect, Err: ctx.Err()}
	}
}

// saslFailures are fragments of the errors go-xmpp returns when the
// server rejects the login
var saslFailures = []string{
	"auth failure", "auth mechanism", "authenticat", "not-authorized", "sasl",
}

// classifyXMPP separates SASL failures from transport failures. go-xmpp
// reports both as plain errors.
func classifyXMPP(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	for _, frag := range saslFailures {
		if strings.Contains(msg, frag) {
			return KindAuth
		}
	}
	return KindConnect
}

func (c *Chat) Name() string {
	return config.ChannelJabber
}

// Send renders buf as plain text and sends it to the configured recipient
func (c *Chat) Send(ctx context.Context, buf *report.Buffer) error {
	if c.client == nil {
		return &Error{Channel: c.Name(), Kind: KindSend, Err: ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Channel: c.Name(), Kind: KindSend, Err: err}
	}

	text, err := c.renderer.Plain(buf)
	if err != nil {
		return &Error{Channel: c.Name(), Kind: KindSend, Err: err}
	}

	if _, err := c.client.Send(xmpp.Chat{Remote: c.cfg.To, Type: "chat", Text: text}); err != nil {
		return &Error{Channel: c.Name(), Kind: KindSend, Err: err}
	}
	logger.Info("Report sent to %s", c.cfg.To)
	return nil
}

// Disconnect closes the stream. Closing an absent or already closed
// session is tolerated.
func (c *Chat) Disconnect() error {
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil

	if err := client.Close(); err != nil && !isClosed(err) {
		return &Error{Channel: c.Name(), Kind: KindDisconnect, Err: err}
	}
	return nil
}

var _ Channel = (*Chat)(nil)

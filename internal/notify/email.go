package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/common/version"
	"github.com/obentoo/gun/internal/report"
)

// smtpsPort is the submission port that expects TLS from the first byte
const smtpsPort = 465

// smtpClient is the subset of *smtp.Client used by Email
type smtpClient interface {
	Hello(localName string) error
	Extension(ext string) (bool, string)
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Reset() error
	Quit() error
	Close() error
}

type smtpDialer func(ctx context.Context, addr, host string, implicitTLS bool, timeout time.Duration) (smtpClient, error)

func dialSMTP(ctx context.Context, addr, host string, implicitTLS bool, timeout time.Duration) (smtpClient, error) {
	d := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if implicitTLS {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: host}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	// The greeting is read by NewClient and must not block forever
	conn.SetDeadline(time.Now().Add(timeout))
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return c, nil
}

// Email sends the HTML report through an SMTP relay
type Email struct {
	cfg      config.EmailConfig
	client   smtpClient
	renderer *report.Renderer
	now      func() time.Time
	hostname string
}

// NewEmail connects to the relay and authenticates when a user is set.
// On port 465 TLS is negotiated before the greeting; on any other port
// STARTTLS is attempted when offered and its failure is only logged.
func NewEmail(ctx context.Context, cfg config.EmailConfig, opts ...Option) (*Email, error) {
	o := buildOptions(opts)
	if len(cfg.Recipients()) == 0 {
		return nil, &Error{Channel: config.ChannelEmail, Kind: KindConnect, Err: ErrNoRecipients}
	}

	implicitTLS := cfg.Port == smtpsPort
	logger.Debug("Connecting to mail relay %s", cfg.Address())
	client, err := o.dialSMTP(ctx, cfg.Address(), cfg.Host, implicitTLS, o.timeout)
	if err != nil {
		return nil, &Error{Channel: config.ChannelEmail, Kind: KindConnect, Err: err}
	}

	if err := client.Hello(o.hostname); err != nil {
		client.Close()
		return nil, &Error{Channel: config.ChannelEmail, Kind: KindConnect, Err: err}
	}

	encrypted := implicitTLS
	if !implicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				logger.Warn("email: STARTTLS failed, continuing unencrypted: %v", err)
			} else {
				encrypted = true
			}
		}
	}

	if cfg.User != "" {
		if !encrypted {
			logger.Warn("email: sending credentials for %s over an unencrypted connection", cfg.User)
		}
		if err := client.Auth(authFor(client, cfg, encrypted)); err != nil {
			client.Close()
			return nil, &Error{Channel: config.ChannelEmail, Kind: KindAuth, Err: err}
		}
	}

	return &Email{
		cfg:      cfg,
		client:   client,
		renderer: o.renderer,
		now:      o.now,
		hostname: o.hostname,
	}, nil
}

// authFor prefers CRAM-MD5 when the relay offers it. PLAIN is allowed on
// an unencrypted session, which net/smtp otherwise refuses for any host
// but localhost.
func authFor(client smtpClient, cfg config.EmailConfig, encrypted bool) smtp.Auth {
	if ok, mechs := client.Extension("AUTH"); ok {
		for _, m := range strings.Fields(mechs) {
			if strings.EqualFold(m, "CRAM-MD5") {
				return smtp.CRAMMD5Auth(cfg.User, cfg.Password)
			}
		}
	}
	plain := smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	if encrypted {
		return plain
	}
	return plaintextAuth{plain}
}

// plaintextAuth runs PLAIN without the TLS check of smtp.PlainAuth
type plaintextAuth struct {
	smtp.Auth
}

func (a plaintextAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	info := *server
	info.TLS = true
	return a.Auth.Start(&info)
}

func (e *Email) Name() string {
	return config.ChannelEmail
}

// Send renders buf as an HTML document and mails it to every recipient.
// Rejected recipients are logged; Send fails only when none is accepted.
func (e *Email) Send(ctx context.Context, buf *report.Buffer) error {
	if e.client == nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}

	msg, err := e.compose(buf)
	if err != nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}

	if err := e.client.Mail(e.cfg.MailFrom); err != nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}

	var accepted []string
	for _, rcpt := range e.cfg.Recipients() {
		if err := e.client.Rcpt(rcpt); err != nil {
			logger.Warn("email: recipient %s rejected: %v", rcpt, err)
			continue
		}
		accepted = append(accepted, rcpt)
	}
	if len(accepted) == 0 {
		e.client.Reset()
		return &Error{Channel: e.Name(), Kind: KindSend, Err: ErrAllRecipientsRejected}
	}

	w, err := e.client.Data()
	if err != nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}
	if err := w.Close(); err != nil {
		return &Error{Channel: e.Name(), Kind: KindSend, Err: err}
	}

	logger.Info("Report mailed to %s", strings.Join(accepted, ", "))
	return nil
}

// Compose returns the complete message, headers included, that an Email
// channel for cfg would transmit for buf
func Compose(cfg config.EmailConfig, buf *report.Buffer, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	e := &Email{cfg: cfg, renderer: o.renderer, now: o.now, hostname: o.hostname}
	return e.compose(buf)
}

func (e *Email) compose(buf *report.Buffer) ([]byte, error) {
	fragment, err := e.renderer.HTML(buf)
	if err != nil {
		return nil, err
	}
	return e.message(report.HTMLDocument(fragment)), nil
}

// Subject returns "[host] 2006-01-02 Packages to update"
func (e *Email) Subject() string {
	return fmt.Sprintf("[%s] %s Packages to update", e.hostname, e.now().Format("2006-01-02"))
}

// message prepends the mail headers to an HTML document
func (e *Email) message(document string) []byte {
	var b bytes.Buffer
	header := func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	header("From", e.cfg.MailFrom)
	header("To", strings.Join(e.cfg.Recipients(), ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", e.Subject()))
	header("Date", e.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=utf-8")
	header("X-Mailer", version.UserAgent())
	b.WriteString("\r\n")
	b.WriteString(document)
	return b.Bytes()
}

// Disconnect sends QUIT. A session the relay already closed is not an error.
func (e *Email) Disconnect() error {
	if e.client == nil {
		return nil
	}
	client := e.client
	e.client = nil

	if err := client.Quit(); err != nil {
		client.Close()
		if isClosed(err) {
			return nil
		}
		return &Error{Channel: e.Name(), Kind: KindDisconnect, Err: err}
	}
	return nil
}

var _ Channel = (*Email)(nil)

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xmppo/go-xmpp"
)

// fakeSMTP records the SMTP conversation. Func fields override the
// default success behavior. Auth starts the mechanism the way
// *smtp.Client does, so mechanisms that refuse the session fail here too.
type fakeSMTP struct {
	extensions map[string]string
	host       string // set by the dialer, as smtp.NewClient does
	tls        bool
	calls      []string
	auth       smtp.Auth
	from       string
	rcpts      []string
	data       bytes.Buffer

	StartTLSFunc func(*tls.Config) error
	AuthFunc     func(smtp.Auth) error
	RcptFunc     func(string) error
	QuitFunc     func() error
}

func (f *fakeSMTP) Hello(name string) error {
	f.calls = append(f.calls, "HELLO "+name)
	return nil
}

func (f *fakeSMTP) Extension(ext string) (bool, string) {
	params, ok := f.extensions[ext]
	return ok, params
}

func (f *fakeSMTP) StartTLS(cfg *tls.Config) error {
	f.calls = append(f.calls, "STARTTLS")
	if f.StartTLSFunc != nil {
		if err := f.StartTLSFunc(cfg); err != nil {
			return err
		}
	}
	f.tls = true
	return nil
}

func (f *fakeSMTP) Auth(a smtp.Auth) error {
	_, mechs := f.Extension("AUTH")
	info := &smtp.ServerInfo{Name: f.host, TLS: f.tls, Auth: strings.Fields(mechs)}
	if _, _, err := a.Start(info); err != nil {
		return err
	}
	f.calls = append(f.calls, "AUTH")
	f.auth = a
	if f.AuthFunc != nil {
		return f.AuthFunc(a)
	}
	return nil
}

func (f *fakeSMTP) Mail(from string) error {
	f.calls = append(f.calls, "MAIL")
	f.from = from
	return nil
}

func (f *fakeSMTP) Rcpt(to string) error {
	f.calls = append(f.calls, "RCPT "+to)
	if f.RcptFunc != nil {
		if err := f.RcptFunc(to); err != nil {
			return err
		}
	}
	f.rcpts = append(f.rcpts, to)
	return nil
}

func (f *fakeSMTP) Data() (io.WriteCloser, error) {
	f.calls = append(f.calls, "DATA")
	return nopCloser{&f.data}, nil
}

func (f *fakeSMTP) Reset() error {
	f.calls = append(f.calls, "RSET")
	return nil
}

func (f *fakeSMTP) Quit() error {
	f.calls = append(f.calls, "QUIT")
	if f.QuitFunc != nil {
		return f.QuitFunc()
	}
	return nil
}

func (f *fakeSMTP) Close() error {
	f.calls = append(f.calls, "CLOSE")
	return nil
}

func (f *fakeSMTP) called(call string) bool {
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type smtpDial struct {
	addr        string
	host        string
	implicitTLS bool
}

// withFakeSMTP makes construction use client instead of the network
func withFakeSMTP(client *fakeSMTP, dials *[]smtpDial) Option {
	return func(o *options) {
		o.dialSMTP = func(_ context.Context, addr, host string, implicitTLS bool, _ time.Duration) (smtpClient, error) {
			client.host = host
			client.tls = implicitTLS
			if dials != nil {
				*dials = append(*dials, smtpDial{addr: addr, host: host, implicitTLS: implicitTLS})
			}
			return client, nil
		}
	}
}

func withSMTPDialError(err error) Option {
	return func(o *options) {
		o.dialSMTP = func(context.Context, string, string, bool, time.Duration) (smtpClient, error) {
			return nil, err
		}
	}
}

// fakeXMPP records sent messages
type fakeXMPP struct {
	sent    []xmpp.Chat
	closed  atomic.Int32
	SendErr error
	CloseFn func() error
}

func (f *fakeXMPP) Send(chat xmpp.Chat) (int, error) {
	if f.SendErr != nil {
		return 0, f.SendErr
	}
	f.sent = append(f.sent, chat)
	return len(chat.Text), nil
}

func (f *fakeXMPP) Close() error {
	f.closed.Add(1)
	if f.CloseFn != nil {
		return f.CloseFn()
	}
	return nil
}

func withFakeXMPP(client *fakeXMPP, got *xmpp.Options) Option {
	return func(o *options) {
		o.dialXMPP = func(opts xmpp.Options) (xmppClient, error) {
			if got != nil {
				*got = opts
			}
			return client, nil
		}
	}
}

func withXMPPDialer(dial xmppDialer) Option {
	return func(o *options) {
		o.dialXMPP = dial
	}
}

var errRejected = errors.New("550 5.1.1 mailbox unavailable")

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 4, 5, 6, 0, time.UTC)
}

func lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

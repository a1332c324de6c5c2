// Package notify reports build failures, e.g. to the console or by mail.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

type Notifier interface {
	Notify(ctx context.Context, subject string, err error) error
}

// Notifiers notifies all its notifiers and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, subject string, err error) error {
	var errs []error
	for _, n := range ns {
		if e := n.Notify(ctx, subject, err); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

type TraceNotifier struct {
	Trace *mkcore.Trace
}

func (n TraceNotifier) Notify(_ context.Context, subject string, err error) error {
	n.Trace.Warn("`subject`: `error`", `subject`, subject, `error`, err)
	return nil
}

type MailNotifier struct {
	// Addr is the SMTP server's host:port
	Addr string
	From string
	To   []string
	// Auth is one of "", "plain" or "login".
	Auth     string
	User     string
	Password string

	send func(addr string, a sasl.Client, from string, to []string, r io.Reader) error
}

// Notify sends nothing when ctx is already done.
func (n *MailNotifier) Notify(ctx context.Context, subject string, err error) error {
	if len(n.To) == 0 {
		return errors.New("mail notifier without recipients")
	}
	if e := ctx.Err(); e != nil {
		return fmt.Errorf("notification not sent: %w", e)
	}
	msg, e := n.Compose(subject, err, time.Now())
	if e != nil {
		return e
	}
	var auth sasl.Client
	switch strings.ToLower(n.Auth) {
	case "":
	case "plain":
		auth = sasl.NewPlainClient("", n.User, n.Password)
	case "login":
		auth = sasl.NewLoginClient(n.User, n.Password)
	default:
		return fmt.Errorf("unsupported SMTP auth '%s'", n.Auth)
	}
	send := n.send
	if send == nil {
		send = smtp.SendMail
	}
	if e := send(n.Addr, auth, n.From, n.To, bytes.NewReader(msg)); e != nil {
		return fmt.Errorf("send notification to %s: %w", n.Addr, e)
	}
	return nil
}

// Compose creates the plain text mail for the build error err.
func (n *MailNotifier) Compose(subject string, err error, at time.Time) ([]byte, error) {
	from, e := mail.ParseAddress(n.From)
	if e != nil {
		return nil, fmt.Errorf("notification sender: %w", e)
	}
	to := make([]*mail.Address, 0, len(n.To))
	for _, rcpt := range n.To {
		addr, e := mail.ParseAddress(rcpt)
		if e != nil {
			return nil, fmt.Errorf("notification recipient: %w", e)
		}
		to = append(to, addr)
	}
	var h mail.Header
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(subject)
	h.SetDate(at)
	h.SetMessageID(uuid.NewString() + "@webmk")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, e := mail.CreateSingleInlineWriter(&buf, h)
	if e != nil {
		return nil, e
	}
	host, _ := os.Hostname()
	fmt.Fprintf(w, "webmk on %s failed at %s:\n\n%s\n", host, at.Format(time.RFC3339), err)
	if e := w.Close(); e != nil {
		return nil, e
	}
	return buf.Bytes(), nil
}

// SPDX-License-Identifier: EPL-2.0

// Package control applies parameter updates received over NATS to a running
// layer. Updates are JSON Params messages on audloop.<layer>.params or
// audloop.broadcast.params; a request on audloop.<layer>.status is answered
// with the layer's current settings.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	subjectPrefix    = "audloop"
	BroadcastSubject = subjectPrefix + ".broadcast.params"
)

func ParamsSubject(name string) string { return subjectPrefix + "." + name + ".params" }
func StatusSubject(name string) string { return subjectPrefix + "." + name + ".status" }

// Conn is the part of *nats.Conn the subscriber needs.
type Conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
	Close()
}

var _ Conn = (*nats.Conn)(nil)

// Connect dials url and keeps reconnecting in the background for as long
// as the process runs.
func Connect(url, clientName string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	logger.Info("nats connected", "url", url)

	return nc, nil
}

// Subscriber routes control messages to one target.
type Subscriber struct {
	conn   Conn
	name   string
	target Target
	logger *slog.Logger
	subs   []*nats.Subscription
}

func NewSubscriber(conn Conn, name string, target Target, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}

	return &Subscriber{
		conn:   conn,
		name:   name,
		target: target,
		logger: logger.With("layer", name),
	}
}

// Start subscribes to the layer's params and status subjects and to the
// broadcast params subject.
func (s *Subscriber) Start() error {
	routes := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{ParamsSubject(s.name), s.handleParams},
		{BroadcastSubject, s.handleParams},
		{StatusSubject(s.name), s.handleStatus},
	}

	for _, r := range routes {
		sub, err := s.conn.Subscribe(r.subject, r.handler)
		if err != nil {
			return errors.Join(fmt.Errorf("subscribing to %s: %w", r.subject, err), s.Stop())
		}
		s.subs = append(s.subs, sub)
	}

	s.logger.Info("control subscribed", "subjects", []string{
		ParamsSubject(s.name), BroadcastSubject, StatusSubject(s.name),
	})

	return nil
}

// Stop removes every subscription made by Start. The connection stays open.
func (s *Subscriber) Stop() error {
	var errs []error
	for _, sub := range s.subs {
		if sub == nil {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing %s: %w", sub.Subject, err))
		}
	}
	s.subs = nil

	return errors.Join(errs...)
}

// Close stops the subscriber and closes the connection.
func (s *Subscriber) Close() error {
	err := s.Stop()
	s.conn.Close()
	return err
}

func (s *Subscriber) handleParams(msg *nats.Msg) {
	var p Params
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		s.logger.Warn("bad control message", "subject", msg.Subject, "error", err)
		return
	}
	if err := p.Validate(); err != nil {
		s.logger.Warn("rejected control message", "subject", msg.Subject, "error", err)
		return
	}

	Apply(s.target, p)
	s.logger.Debug("parameters applied", "subject", msg.Subject)

	if msg.Reply != "" {
		s.reply(msg.Reply)
	}
}

func (s *Subscriber) handleStatus(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	s.reply(msg.Reply)
}

func (s *Subscriber) reply(subject string) {
	data, err := json.Marshal(s.target.Settings())
	if err != nil {
		s.logger.Error("encoding settings", "error", err)
		return
	}
	if err := s.conn.Publish(subject, data); err != nil {
		s.logger.Warn("publishing settings", "subject", subject, "error", err)
	}
}

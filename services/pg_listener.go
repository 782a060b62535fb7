package services

import (
	"context"
	"fmt"
	"storeadmin_server/database"
	"storeadmin_server/structs"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// FormatChangePayload encodes a change as the NOTIFY payload "table:op:id"
func FormatChangePayload(c structs.TableChange) string {
	return c.Table + ":" + c.Op + ":" + c.ID
}

// ParseChangePayload decodes "table:op:id". The id part may be empty.
func ParseChangePayload(payload string) (structs.TableChange, error) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return structs.TableChange{}, fmt.Errorf("malformed change payload %q", payload)
	}
	change := structs.TableChange{Table: parts[0], Op: parts[1]}
	if len(parts) == 3 {
		change.ID = parts[2]
	}
	return change, nil
}

// PgListener relays NOTIFY messages on one channel into the change feed, so
// writes made by other clients reach subscribers too
type PgListener struct {
	logger  *gecho.Logger
	db      *bun.DB
	channel string
	feed    *ChangeFeed
}

func NewPgListener(logger *gecho.Logger, db *bun.DB, channel string, feed *ChangeFeed) *PgListener {
	return &PgListener{
		logger:  logger,
		db:      db,
		channel: channel,
		feed:    feed,
	}
}

const (
	minListenBackoff = time.Second
	maxListenBackoff = 30 * time.Second
)

// listenBackoff doubles the reconnect delay while LISTEN keeps failing and
// starts over once a LISTEN went through
type listenBackoff struct {
	delay time.Duration
}

func (b *listenBackoff) next(listened bool) time.Duration {
	if listened || b.delay == 0 {
		b.delay = minListenBackoff
		return b.delay
	}
	b.delay = min(b.delay*2, maxListenBackoff)
	return b.delay
}

// Run listens until ctx is cancelled, reconnecting after failures
func (l *PgListener) Run(ctx context.Context) {
	var backoff listenBackoff
	for {
		listened, err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := backoff.next(listened)
		l.logger.Warn("Change listener stopped, reconnecting",
			gecho.Field("channel", l.channel),
			gecho.Field("error", err),
			gecho.Field("backoff", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// listen reports whether LISTEN succeeded before the error that ended it
func (l *PgListener) listen(ctx context.Context) (bool, error) {
	ln := pgdriver.NewListener(l.db)
	defer ln.Close()

	if err := ln.Listen(ctx, l.channel); err != nil {
		return false, fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("Listening for table changes", gecho.Field("channel", l.channel))

	notifications := ln.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return true, fmt.Errorf("notification channel closed")
			}
			change, err := ParseChangePayload(n.Payload)
			if err != nil {
				l.logger.Warn("Ignoring change notification", gecho.Field("error", err))
				continue
			}
			l.feed.Publish(change)
		}
	}
}

// PgNotifier announces changes with NOTIFY. The listener delivers them back
// to the local feed; when NOTIFY fails the change is published locally instead.
type PgNotifier struct {
	logger   *gecho.Logger
	db       *database.DB
	channel  string
	fallback *ChangeFeed
}

func NewPgNotifier(logger *gecho.Logger, db *database.DB, channel string, fallback *ChangeFeed) *PgNotifier {
	return &PgNotifier{
		logger:   logger,
		db:       db,
		channel:  channel,
		fallback: fallback,
	}
}

func (n *PgNotifier) NotifyChange(ctx context.Context, change structs.TableChange) {
	if err := n.db.Notify(ctx, n.channel, FormatChangePayload(change)); err != nil {
		n.logger.Warn("NOTIFY failed, publishing locally",
			gecho.Field("table", change.Table),
			gecho.Field("error", err),
		)
		n.fallback.Publish(change)
	}
}

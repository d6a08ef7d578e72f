package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// replyCounters tracks what a handler sent back for the summary log line.
type replyCounters struct {
	mu       sync.Mutex
	messages int
	keyboard bool
}

func countersOf(c tele.Context) *replyCounters {
	if rc, ok := c.Get(countersKey).(*replyCounters); ok {
		return rc
	}
	rc := &replyCounters{}
	c.Set(countersKey, rc)
	return rc
}

func (rc *replyCounters) add(keyboard bool) {
	rc.mu.Lock()
	rc.messages++
	rc.keyboard = rc.keyboard || keyboard
	rc.mu.Unlock()
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// metricsContext counts successful replies made through tele.Context.
type metricsContext struct{ tele.Context }

func (m metricsContext) track(err error, opts []any) error {
	if err == nil {
		countersOf(m.Context).add(hasKeyboard(opts))
	}
	return err
}

func (m metricsContext) Send(what any, opts ...any) error {
	return m.track(m.Context.Send(what, opts...), opts)
}

func (m metricsContext) Reply(what any, opts ...any) error {
	return m.track(m.Context.Reply(what, opts...), opts)
}

func (m metricsContext) Edit(what any, opts ...any) error {
	return m.track(m.Context.Edit(what, opts...), opts)
}

func (m metricsContext) EditOrSend(what any, opts ...any) error {
	return m.track(m.Context.EditOrSend(what, opts...), opts)
}

func (m metricsContext) EditOrReply(what any, opts ...any) error {
	return m.track(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware resets the reply counters and wraps the context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &replyCounters{})
		return next(metricsContext{Context: c})
	}
}

// CountMessage records a reply delivered outside tele.Context, such as
// one sent through the sender dispatcher.
func CountMessage(c tele.Context, hasKB bool) {
	if c == nil {
		return
	}
	countersOf(c).add(hasKB)
}

// GetCounters returns the reply count and whether any reply carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	rc, ok := c.Get(countersKey).(*replyCounters)
	if !ok {
		return 0, false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.messages, rc.keyboard
}

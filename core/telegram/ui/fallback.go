// Package ui holds the replies used when an update matches no route.
package ui

import tele "gopkg.in/telebot.v4"

// Fallbacks supplies handlers for text, media and button taps that no
// command, callback key or active flow claims.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Silent ignores unmatched updates. Callback taps are still answered so
// the client stops its spinner.
type Silent struct{}

func (Silent) UnknownText() tele.HandlerFunc  { return func(tele.Context) error { return nil } }
func (Silent) UnknownMedia() tele.HandlerFunc { return func(tele.Context) error { return nil } }
func (Silent) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return c.Respond() }
}

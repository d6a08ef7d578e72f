package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// InlineBtn is one callback button. Telebot encodes it as "\f<Unique>|<Data>".
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

func (b InlineBtn) inline(m *tele.ReplyMarkup) tele.InlineButton {
	return *m.Data(b.Text, b.Unique, b.Data).Inline()
}

const (
	// CancelUnique is the callback key carried by cancel buttons.
	CancelUnique = "cancel"

	defaultCancelButtonText = "❌ Cancel"
)

// CancelBtn is the shared cancel button.
var CancelBtn = InlineBtn{Text: defaultCancelButtonText, Unique: CancelUnique}

// InlineButtonsRows builds an inline keyboard from rows of buttons.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, btn.inline(markup))
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, r)
	}
	return markup
}

// InlineButtonsNPerRow lays buttons out n per row; n <= 1 means one per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	n = max(n, 1)
	var rows [][]InlineBtn
	for row := range slices.Chunk(buttons, n) {
		rows = append(rows, row)
	}
	return InlineButtonsRows(rows...)
}

// InlineButtons places each button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	return InlineButtonsNPerRow(buttons, 1)
}

// SingleCancelMarkup is a keyboard holding only the cancel button.
func SingleCancelMarkup() *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{CancelBtn})
}

// WithCancel appends a cancel row to markup, creating one if needed.
func WithCancel(markup *tele.ReplyMarkup) *tele.ReplyMarkup {
	if markup == nil {
		return SingleCancelMarkup()
	}
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{CancelBtn.inline(markup)})
	return markup
}

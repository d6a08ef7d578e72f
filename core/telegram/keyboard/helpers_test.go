package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	buttons := []InlineBtn{
		{Text: "A", Unique: "quiz", Data: "1"},
		{Text: "B", Unique: "quiz", Data: "2"},
		{Text: "C", Unique: "quiz", Data: "3"},
	}
	markup := InlineButtonsNPerRow(buttons, 2)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Len(t, markup.InlineKeyboard[1], 1)
	require.Equal(t, "C", markup.InlineKeyboard[1][0].Text)
	require.Equal(t, "quiz", markup.InlineKeyboard[1][0].Unique)
	require.Equal(t, "3", markup.InlineKeyboard[1][0].Data)

	require.Len(t, InlineButtonsNPerRow(buttons, 1).InlineKeyboard, 3)
}

func TestWithCancel(t *testing.T) {
	markup := WithCancel(InlineButtons([]InlineBtn{{Text: "Go", Unique: "menu", Data: "learn"}}))
	require.Len(t, markup.InlineKeyboard, 2)
	cancel := markup.InlineKeyboard[1][0]
	require.Equal(t, CancelUnique, cancel.Unique)
	require.Equal(t, defaultCancelButtonText, cancel.Text)

	single := WithCancel(nil)
	require.Len(t, single.InlineKeyboard, 1)
}

func TestInlineButtonsEmpty(t *testing.T) {
	require.Empty(t, InlineButtons(nil).InlineKeyboard)
	require.Len(t, InlineButtonsNPerRow([]InlineBtn{{Text: "x", Unique: "u"}}, 0).InlineKeyboard, 1)
}

package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{name: "nil", cb: nil},
		{name: "raw", cb: &tele.Callback{Data: "\fcard|show|2"}, key: "card", payload: "show|2"},
		{name: "no payload", cb: &tele.Callback{Data: "\fmenu"}, key: "menu"},
		{name: "unique set", cb: &tele.Callback{Unique: "quiz", Data: "17"}, key: "quiz", payload: "17"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			require.Equal(t, tc.key, key)
			require.Equal(t, tc.payload, payload)
		})
	}
}

func TestPayloadParsers(t *testing.T) {
	parts, err := Fields("knew|4", "|", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"knew", "4"}, parts)

	_, err = Fields("knew", "|", 2)
	require.Error(t, err)

	a, b, err := TwoInts("3:1", ":")
	require.NoError(t, err)
	require.Equal(t, 3, a)
	require.Equal(t, 1, b)

	_, _, err = TwoInts("3:-1", ":")
	require.Error(t, err)

	id, err := Int64(" 42 ")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

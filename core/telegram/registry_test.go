package telegram

import (
	"testing"

	"github.com/m3rciful/attendobot/core/telegram/commands"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help", Aliases: []string{"h"}}))
	require.NoError(t, reg.RegisterCommand("/sessions", commands.Command{Handler: noop, Description: "Sessions", AdminOnly: true, Hidden: true}))
	require.ErrorIs(t, reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "x"}), ErrInvalidRegistration)
	require.ErrorIs(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"}), ErrDuplicate)

	visible := reg.ListCommands(true)
	require.Equal(t, []tele.Command{
		{Text: "/help", Description: "Help"},
		{Text: "/start", Description: "Start"},
	}, visible)
	require.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("h")
	require.True(t, ok)
	require.Equal(t, "/help", key)
	require.Equal(t, "Help", cmd.Description)

	key, _, ok = reg.LookupCommand("/h")
	require.True(t, ok)
	require.Equal(t, "/help", key)

	_, _, ok = reg.LookupCommand("/missing")
	require.False(t, ok)
}

func TestCommandListed(t *testing.T) {
	require.True(t, commands.Command{}.Listed())
	require.False(t, commands.Command{Hidden: true}.Listed())
	require.False(t, commands.Command{AdminOnly: true}.Listed())
	require.True(t, commands.Command{Aliases: []string{"/m"}}.Answers("m"))
	require.False(t, commands.Command{Aliases: []string{"m"}}.Answers("menu"))
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("card", noop))
	require.NoError(t, reg.RegisterCallback("answer", noop))
	require.ErrorIs(t, reg.RegisterCallback("card", noop), ErrDuplicate)
	require.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)

	_, ok := reg.GetCallback("card")
	require.True(t, ok)
	require.Equal(t, []string{"answer", "card"}, reg.ListCallbacks())
	require.NotNil(t, reg.CallbackNotFound())
}

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, defaultLongPollTimeout, lp.Timeout)

	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	}).(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)
}

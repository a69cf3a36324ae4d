package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppRegistersCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"loyalty-decay", "reconcile", "create-staff", "cron"}, names)
}

func TestReconcileNeedsExactlyOneOwner(t *testing.T) {
	for _, args := range [][]string{
		{"posctl", "reconcile"},
		{"posctl", "reconcile", "--customer", "a", "--seller", "b"},
	} {
		app := newApp()
		app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}
		err := app.RunContext(context.Background(), args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --customer or --seller")
	}
}

func TestLoyaltyDecayRejectsNegativeWindow(t *testing.T) {
	app := newApp()
	app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}
	err := app.RunContext(context.Background(), []string{"posctl", "loyalty-decay", "--hours", "-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--hours")
}

func TestCronRunNeedsJobName(t *testing.T) {
	app := newApp()
	app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}
	err := app.RunContext(context.Background(), []string{"posctl", "cron", "run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job name required")
}

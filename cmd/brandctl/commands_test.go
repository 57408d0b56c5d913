package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestLocalCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "route", args: []string{"route", "b1", "jtbd"}, want: "/brands/b1/jtbd"},
		{name: "route review", args: []string{"route", "b1", "feedback_review_archetype"}, want: "/brands/b1/feedback-review/archetype"},
		{name: "route unknown", args: []string{"route", "b1", "bogus"}, want: "/brands/b1/questionnaire"},
		{name: "step", args: []string{"step", "pick_name"}, want: "9"},
		{name: "step completed", args: []string{"step", "completed"}, want: "12"},
		{name: "step completed dev", args: []string{"--dev", "step", "completed"}, want: "13"},
		{name: "revert target", args: []string{"revert-target", "10"}, want: "create_assets"},
		{name: "revert target out of range", args: []string{"revert-target", "40"}, want: "questionnaire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestStepsCommand(t *testing.T) {
	out, err := run(t, "steps")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 14) // header plus 13 stages
	assert.NotContains(t, out, "payment")

	out, err = run(t, "--dev", "steps")
	require.NoError(t, err)
	assert.Len(t, strings.Split(out, "\n"), 15)
	assert.Contains(t, out, "payment")
}

func TestArgumentErrors(t *testing.T) {
	_, err := run(t, "revert-target", "abc")
	assert.Error(t, err)

	_, err = run(t, "route", "only-one")
	assert.Error(t, err)

	_, err = run(t, "revert", "b1", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

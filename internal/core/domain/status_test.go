package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		raw  string
		want CanonicalStatus
	}{
		{"running", StatusRunning},
		{"RUNNING", StatusRunning},
		{"task in-progress", StatusRunning},
		{"success", StatusSuccess},
		{"Completed", StatusSuccess},
		{"ok", StatusSuccess},
		{"failed", StatusFailed},
		{"FATAL ERROR", StatusFailed},
		{"unreachable failure", StatusFailed},
		{"pending", StatusPending},
		{"queued", StatusPending},
		{"waiting for slot", StatusPending},
		{"", StatusPending},
		{"??", StatusPending},
		{"garbage value", StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.raw))
		})
	}
}

func TestCanonicalIsTotal(t *testing.T) {
	// Every output must be one of the four canonical values, whatever goes in.
	inputs := []string{"", "x", "Succ", "errored out", "IN PROGRESS", "queued;running", "\x00\xff"}
	valid := map[CanonicalStatus]bool{}
	for _, s := range AllStatuses {
		valid[s] = true
	}
	for _, in := range inputs {
		assert.True(t, valid[Canonical(in)], "input %q", in)
	}
}

func TestNormalizeProgress(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"50%", 50},
		{"0.5", 50},
		{"abc", 0},
		{"150", 100},
		{"", 0},
		{"-3", 0},
		{"42", 42},
		{"0.425", 43},
		{"1", 100},
		{"99.6", 100},
		{" 75 % ", 75},
		{"NaN", 0},
		{"+Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProgress(tt.raw))
		})
	}
}

func TestEffectiveProgress(t *testing.T) {
	running := Job{Status: "running", Progress: "100"}
	assert.LessOrEqual(t, EffectiveProgress(running), 99)

	done := Job{Status: "success", Progress: "40"}
	assert.Equal(t, 100, EffectiveProgress(done))

	failed := Job{Status: "failed", Progress: "70"}
	assert.Equal(t, 70, EffectiveProgress(failed))

	fraction := Job{Status: "running", Progress: "0.42"}
	assert.Equal(t, 42, EffectiveProgress(fraction))
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		envFile string
		runTUI  bool
	}{
		{name: "no arguments", args: nil, runTUI: true},
		{name: "env equals only", args: []string{"--env=.env.local"}, envFile: ".env.local", runTUI: true},
		{name: "env with value only", args: []string{"--env", "prod.env"}, envFile: "prod.env", runTUI: true},
		{name: "env without value", args: []string{"--env"}, runTUI: false},
		{name: "subcommand", args: []string{"run"}, runTUI: false},
		{name: "subcommand with flag", args: []string{"run", "--verbose"}, runTUI: false},
		{name: "env then subcommand", args: []string{"--env", "prod.env", "run"}, envFile: "prod.env", runTUI: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envFile, runTUI := parseArgs(tt.args)
			assert.Equal(t, tt.envFile, envFile)
			assert.Equal(t, tt.runTUI, runTUI)
		})
	}
}

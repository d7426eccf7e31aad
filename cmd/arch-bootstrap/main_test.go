package main

import (
	"testing"
)

// TestMain_CreateRootCommand validates that the root command is properly
// configured with all expected flags and subcommands.
func TestMain_CreateRootCommand(t *testing.T) {
	root := createRootCommand()

	if root == nil {
		t.Fatal("createRootCommand returned nil")
	}

	if root.Use != "arch-bootstrap" {
		t.Errorf("expected Use to be 'arch-bootstrap', got %q", root.Use)
	}
	if root.Short == "" {
		t.Error("Short description should not be empty")
	}
	if root.Long == "" {
		t.Error("Long description should not be empty")
	}

	for _, name := range []string{"config", "log-level"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s to be registered", name)
		}
	}

	expectedCommands := map[string]bool{
		"bootstrap":          false,
		"version":            false,
		"config":             false,
		"cache":              false,
		"install-completion": false,
	}
	for _, cmd := range root.Commands() {
		if _, exists := expectedCommands[cmd.Name()]; exists {
			expectedCommands[cmd.Name()] = true
		}
	}
	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected subcommand %q to be registered", cmdName)
		}
	}
}

func TestBootstrapCommandFlags(t *testing.T) {
	cmd := createBootstrapCommand()

	flags := []struct {
		name      string
		shorthand string
	}{
		{"arch", "a"},
		{"repo-url", "r"},
		{"cache-dir", "d"},
		{"profile", ""},
	}
	for _, f := range flags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("expected flag --%s to be registered", f.name)
			continue
		}
		if f.shorthand != "" && flag.Shorthand != f.shorthand {
			t.Errorf("flag --%s: expected shorthand %q, got %q", f.name, f.shorthand, flag.Shorthand)
		}
	}
}

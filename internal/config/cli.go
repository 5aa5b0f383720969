// Package config holds the top-level kong CLI definition.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/bpfgen/internal/cmd"
)

// CLI is the root command line. Every flag can also be set from the
// environment or from a json, yaml or toml config file.
type CLI struct {
	Version kong.VersionFlag `help:"Print the version and exit"`
	Config  string           `help:"Configuration file (json, yaml or toml)" type:"path" env:"BPFGEN_CONFIG"`
	Log     Log              `embed:"" prefix:"log."`

	Codegen cmd.Codegen       `cmd:"" help:"Generate Go bindings, helper wrappers and field getters for one architecture"`
	Cfg     cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration file utilities"`
}

// Log configures the slog logger and the raw generator-output dump.
type Log struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"BPFGEN_LOG_LEVEL"`
	File    string `help:"Write logs to this file in addition to stderr" type:"path" env:"BPFGEN_LOG_FILE"`
	RawFile string `help:"Dump the raw binding generator output to this file" type:"path" env:"BPFGEN_LOG_RAW_FILE"`
	Format  string `help:"Console log format: auto picks text on a terminal and json otherwise" default:"auto" enum:"auto,text,json" env:"BPFGEN_LOG_FORMAT"`
}

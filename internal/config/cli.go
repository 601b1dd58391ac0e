// Package config declares the command line tree. Every flag can also come
// from a KEYFLOW_ environment variable or a json, yaml or toml config file.
package config

import "github.com/Alia5/keyflow/internal/cmd"

type CLI struct {
	Config string `help:"Path to a config file (json, yaml or toml)" type:"path" env:"KEYFLOW_CONFIG"`
	Log    Log    `embed:"" prefix:"log."`

	Run       cmd.Run           `cmd:"" help:"Run the keymap on live input"`
	Replay    cmd.Replay        `cmd:"" help:"Replay a scripted event file and print every HID effect"`
	Simulate  cmd.Simulate      `cmd:"" help:"Drive the keymap by typing in the terminal"`
	Check     cmd.Check         `cmd:"" help:"Load and build a keymap and print a summary"`
	Keys      cmd.Keys          `cmd:"" help:"List key names accepted in bindings"`
	Cfg       cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration file helpers"`
	Install   cmd.Install       `cmd:"" help:"Install keyflow as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the keyflow systemd service"`
}

type Log struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"KEYFLOW_LOG_LEVEL"`
	File    string `help:"Also write the log to this file" type:"path" env:"KEYFLOW_LOG_FILE"`
	RawFile string `help:"Write a hex dump of every HID report to this file" type:"path" env:"KEYFLOW_LOG_RAW_FILE"`
}

// Package cmd holds the ledsched subcommands.
package cmd

import "github.com/smazurov/ledsched/internal/led"

// Settings are the parts of the root configuration subcommands use.
type Settings struct {
	LibraryFile   string
	QueueCapacity int
	Driver        led.DriverConfig
}

// SettingsFunc returns the settings once the root command has parsed its options.
type SettingsFunc func() Settings

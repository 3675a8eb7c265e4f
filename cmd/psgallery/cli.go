// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/shayne/yargs"

type globalFlagsParsed struct {
	Dir string `flag:"dir" help:"Run as if started in this directory"`
}

func parseGlobalFlags(args []string) (globalFlagsParsed, []string, error) {
	result, err := yargs.ParseKnownFlags[globalFlagsParsed](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return globalFlagsParsed{}, nil, err
	}
	return result.Flags, result.RemainingArgs, nil
}

func buildHelpConfig() yargs.HelpConfig {
	return yargs.HelpConfig{
		Command: yargs.CommandInfo{
			Name:        "psgallery",
			Description: "Orchestrate package-feed workflows: dependency-chain bootstrap, two-tier publish, and semantic releases with floating tags.",
			Examples: []string{
				"psgallery bootstrap",
				"psgallery publish --version 1.4.0",
				"psgallery release --bump-type minor --detected-version 1.4.0",
				"psgallery release --version 2.0.0",
			},
		},
		SubCommands: map[string]yargs.SubCommandInfo{
			"bootstrap": {
				Name:        "bootstrap",
				Description: "Install the dependency chain in order and repair install-path casing",
				Examples:    []string{"psgallery bootstrap"},
			},
			"publish": {
				Name:        "publish",
				Description: "Publish the module to the configured feed (provider tier, then direct fallback)",
				Usage:       "--version VERSION [--package NAME]",
				Examples:    []string{"psgallery publish --version 1.4.0"},
			},
			"release": {
				Name:        "release",
				Description: "Create the GitHub release, base tag, and floating tags for a version",
				Usage:       "[--version V | --bump-type T --detected-version V] [--current-version V]",
				Examples: []string{
					"psgallery release --bump-type patch --detected-version 1.4.1",
					"psgallery release --version 2.0.0-rc1 --no-bootstrap",
				},
			},
		},
	}
}

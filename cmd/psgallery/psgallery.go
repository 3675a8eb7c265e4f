// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command psgallery orchestrates the registry-client workflows: bootstrap
// installs the dependency chain, publish pushes the module to the target
// feed, and release creates the semantic release with its floating tags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/bootstrap"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/casefix"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/ciout"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/cmdutil"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/gallery"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/project"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/publish"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/release"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/tui"
	"github.com/GrexyLoco/K.PSGallery.PackageRepoProvider.GitLab/pkg/version"
	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"golang.org/x/term"
)

func main() {
	args := os.Args[1:]
	globalFlags, remaining, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if globalFlags.Dir != "" {
		if err := os.Chdir(globalFlags.Dir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	handlers := map[string]yargs.SubcommandHandler{
		"bootstrap": handleBootstrap,
		"publish":   handlePublish,
		"release":   handleRelease,
	}
	if err := yargs.RunSubcommands(context.Background(), remaining, buildHelpConfig(), globalFlagsParsed{}, handlers); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func logf(format string, args ...any) {
	log.Printf("%s %s", color.CyanString("psgallery:"), fmt.Sprintf(format, args...))
}

// progress animates long-running steps on a terminal and falls back to plain
// logging otherwise.
type progress struct {
	sp *tui.Spinner
}

func newProgress(msg string) *progress {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		logf("%s", msg)
		return &progress{}
	}
	sp := tui.NewSpinner(os.Stderr)
	sp.Start(msg)
	return &progress{sp: sp}
}

func (p *progress) logf(format string, args ...any) {
	if p.sp != nil {
		p.sp.Update(fmt.Sprintf(format, args...))
		return
	}
	logf(format, args...)
}

func (p *progress) done() {
	if p.sp != nil {
		p.sp.Stop()
	}
}

// loadProject resolves the repository config from the current directory.
func loadProject() (*project.Location, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	loc, err := project.Load(wd)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, errors.New("no psgallery.toml found; run from a configured repository or pass --dir")
	}
	return loc, nil
}

// feedSecret resolves the feed API key: environment first, then an
// interactive prompt when attached to a terminal.
func feedSecret() (string, error) {
	if s := os.Getenv(gallery.EnvFeedSecret); s != "" {
		return s, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not set and stdin is not a terminal", gallery.EnvFeedSecret)
	}
	fmt.Fprint(os.Stderr, "Feed API key: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read feed API key: %w", err)
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return "", errors.New("empty feed API key")
	}
	return secret, nil
}

func feedOwner(cfg *project.Config) string {
	if o := os.Getenv(gallery.EnvFeedUser); o != "" {
		return o
	}
	return cfg.Owner
}

func targetEndpoint(cfg *project.Config) (gallery.Endpoint, error) {
	if cfg.EndpointURI == "" {
		return gallery.Endpoint{}, errors.New("endpoint_uri is not configured")
	}
	secret, err := feedSecret()
	if err != nil {
		return gallery.Endpoint{}, err
	}
	name := cfg.EndpointName
	if name == "" {
		name = gallery.EphemeralName("publish")
	}
	return gallery.Endpoint{
		Name:    name,
		URI:     cfg.EndpointURI,
		Owner:   feedOwner(cfg),
		Secret:  secret,
		Trusted: true,
	}, nil
}

func repairEngine(cfg *project.Config) *casefix.Engine {
	root := cfg.ModulesRoot
	if root == "" {
		root = project.DefaultModulesRoot()
	}
	return &casefix.Engine{ModulesRoot: root, ExtraFiles: cfg.CasefixFiles}
}

func newInstaller(loc *project.Location, ep gallery.Endpoint) (*bootstrap.Installer, error) {
	chain, err := project.LoadChain(loc.Dir)
	if err != nil {
		return nil, err
	}
	return &bootstrap.Installer{
		Client:   &gallery.PwshClient{NewCmd: cmdutil.NewStdCmd},
		Repair:   repairEngine(loc.Config),
		Chain:    chain,
		Endpoint: ep,
		Logf:     logf,
	}, nil
}

func handleBootstrap(_ context.Context, args []string) error {
	if len(args) > 0 && args[0] == "bootstrap" {
		args = args[1:]
	}
	if _, err := yargs.ParseFlags[struct{}](args); err != nil {
		return err
	}
	loc, err := loadProject()
	if err != nil {
		return err
	}
	ep, err := targetEndpoint(loc.Config)
	if err != nil {
		return err
	}
	in, err := newInstaller(loc, ep)
	if err != nil {
		return err
	}
	p := newProgress("installing dependency chain")
	in.Logf = p.logf
	sess, err := in.Run()
	p.done()
	summary := &ciout.Summary{Operation: "bootstrap", Success: err == nil, Err: err}
	if err == nil {
		for _, m := range sess.Imports() {
			summary.Detail = append(summary.Detail, "imported: "+m)
		}
		logf("bootstrap complete: %d module(s) imported", len(sess.Imports()))
	}
	if serr := ciout.AppendSummary(summary); serr != nil {
		logf("warning: could not write step summary: %v", serr)
	}
	return err
}

type publishFlagsParsed struct {
	Version string `flag:"version" help:"Version to publish (required)"`
	Package string `flag:"package" help:"Override the configured package name"`
}

func handlePublish(_ context.Context, args []string) error {
	if len(args) > 0 && args[0] == "publish" {
		args = args[1:]
	}
	result, err := yargs.ParseFlags[publishFlagsParsed](args)
	if err != nil {
		return err
	}
	if result.Flags.Version == "" {
		return errors.New("publish requires --version")
	}
	loc, err := loadProject()
	if err != nil {
		return err
	}
	pkg := loc.Config.PackageName
	if result.Flags.Package != "" {
		pkg = result.Flags.Package
	}
	if pkg == "" {
		return errors.New("package_name is not configured")
	}
	ep, err := targetEndpoint(loc.Config)
	if err != nil {
		return err
	}
	in, err := newInstaller(loc, ep)
	if err != nil {
		return err
	}

	p := newProgress("publishing " + pkg + " " + result.Flags.Version)
	in.Logf = p.logf
	o := &publish.Orchestrator{
		Client:      &gallery.PwshClient{NewCmd: cmdutil.NewStdCmd},
		Bootstrap:   in,
		Target:      ep,
		PackageName: pkg,
		Version:     result.Flags.Version,
		SearchRoot:  loc.Dir,
		Logf:        p.logf,
	}
	res, err := o.Run()
	p.done()

	summary := &ciout.Summary{Operation: "publish", Success: res.Published, Err: err}
	summary.Detail = append(summary.Detail, "package: "+pkg, "version: "+result.Flags.Version)
	for _, a := range res.Attempts {
		if a.Err != nil {
			summary.Detail = append(summary.Detail, fmt.Sprintf("tier %s failed: %v", a.Tier, a.Err))
		} else {
			summary.Detail = append(summary.Detail, "tier "+a.Tier+" succeeded")
		}
	}
	if serr := ciout.AppendSummary(summary); serr != nil {
		logf("warning: could not write step summary: %v", serr)
	}
	if serr := ciout.AppendSignals(ciout.Signals{PackagePublished: res.Published}); serr != nil {
		logf("warning: could not write outputs: %v", serr)
	}
	if err == nil {
		logf("published %s %s", pkg, result.Flags.Version)
	}
	return err
}

type releaseFlagsParsed struct {
	Version         string `flag:"version" help:"Manual version override; wins over detection"`
	BumpType        string `flag:"bump-type" help:"Detected bump type (major|minor|patch|none)"`
	DetectedVersion string `flag:"detected-version" help:"Version produced by the detection step"`
	CurrentVersion  string `flag:"current-version" help:"Currently published version, used to synthesize a patch bump"`
	NoBootstrap     bool   `flag:"no-bootstrap" help:"Skip bootstrap; forces the manual git+gh choreography"`
}

func handleRelease(_ context.Context, args []string) error {
	if len(args) > 0 && args[0] == "release" {
		args = args[1:]
	}
	result, err := yargs.ParseFlags[releaseFlagsParsed](args)
	if err != nil {
		return err
	}
	loc, err := loadProject()
	if err != nil {
		return err
	}
	if loc.Config.Repo == "" {
		return errors.New("repo is not configured")
	}

	detected := version.Detected{
		BumpType: result.Flags.BumpType,
		Version:  result.Flags.DetectedVersion,
	}
	decision := version.Decide(result.Flags.Version, detected, result.Flags.CurrentVersion)
	logf("version decision: %s (%s bump, source %s)", decision.FinalVersion, decision.BumpType, decision.Source)

	// Bootstrap is best effort here. Without a session the smart tier is
	// skipped and the manual choreography still produces the release.
	var sess *gallery.Session
	if !result.Flags.NoBootstrap {
		if ep, eperr := targetEndpoint(loc.Config); eperr != nil {
			logf("warning: skipping bootstrap: %v", eperr)
		} else if in, ierr := newInstaller(loc, ep); ierr != nil {
			logf("warning: skipping bootstrap: %v", ierr)
		} else if s, berr := in.Run(); berr != nil {
			logf("warning: bootstrap failed, smart release unavailable: %v", berr)
		} else {
			sess = s
		}
	}

	o := &release.Orchestrator{
		Session: sess,
		Git:     &release.Git{NewCmd: cmdutil.NewStdCmd, Dir: loc.Dir},
		GH:      &release.GH{NewCmd: cmdutil.NewStdCmd, Repo: loc.Config.Repo},
		Logf:    logf,
	}
	res, err := o.Run(release.Request{
		Version:     decision.FinalVersion,
		BumpType:    decision.BumpType,
		PackageName: loc.Config.PackageName,
		Repo:        loc.Config.Repo,
	})

	signals := ciout.Signals{
		FinalVersion:  decision.FinalVersion,
		ShouldRelease: decision.ShouldRelease,
		BumpType:      decision.BumpType,
	}
	summary := &ciout.Summary{Operation: "release", Err: err}
	if res != nil {
		signals.ReleaseCreated = res.Created
		signals.ReleaseTag = res.BaseTag
		signals.ReleaseURL = res.ReleaseURL
		summary.Success = res.Created
		summary.Detail = append(summary.Detail, "tag: "+res.BaseTag)
		if res.ReleaseURL != "" {
			summary.Detail = append(summary.Detail, "url: "+res.ReleaseURL)
		}
	}
	if serr := ciout.AppendSignals(signals); serr != nil {
		logf("warning: could not write outputs: %v", serr)
	}
	if serr := ciout.AppendSummary(summary); serr != nil {
		logf("warning: could not write step summary: %v", serr)
	}
	if err == nil {
		logf("release %s created", res.BaseTag)
	}
	return err
}

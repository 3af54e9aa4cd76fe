// Package engine implements repo-add: it gathers package metadata, routes
// each package to the repositories whose version filters accept it, and
// writes every touched repository once at the end.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/ralt/bulk/internal/config"
	"github.com/ralt/bulk/internal/metadata"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/repository"
	"github.com/ralt/bulk/internal/repository/debian"
	"github.com/ralt/bulk/internal/repository/htmllinks"
	"github.com/ralt/bulk/internal/scanner"
	"github.com/sirupsen/logrus"
)

// placeholderArch is the architecture opened by add-empty-i386-repo
const placeholderArch = "i386"

// Options configures a repo-add run
type Options struct {
	ConfigPath     string
	RepositoryBase string
	// Packages are package files or directories to scan for them
	Packages   []string
	OnConflict models.ConflictResolution
	Debian     debian.Options
}

// Engine runs repo-add. The zero value is not usable, use New.
type Engine struct {
	Gather  func(path string) (*models.Package, error)
	Scanner scanner.Scanner
}

// New creates an engine that reads real package files
func New() *Engine {
	return &Engine{
		Gather:  metadata.Gather,
		Scanner: scanner.NewFileSystemScanner(),
	}
}

// RepoAdd runs repo-add with the default engine
func RepoAdd(ctx context.Context, opts Options) error {
	return New().RepoAdd(ctx, opts)
}

// RepoAdd adds opts.Packages to every repository of the configuration
// whose version filters accept them. Nothing is written unless every
// package was accepted by every matching repository.
func (e *Engine) RepoAdd(ctx context.Context, opts Options) error {
	packages, err := e.gatherAll(ctx, opts.Packages)
	if err != nil {
		return err
	}
	logrus.Debugf("Packages read: %d", len(packages))

	cfg, err := config.ParseFile(opts.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrMissingField) {
			return models.NewError(models.ErrMissingField, opts.ConfigPath, err)
		}
		return models.NewError(models.ErrConfigParse, opts.ConfigPath,
			fmt.Errorf("can't parse config %s: %w", opts.ConfigPath, err))
	}

	debianRepo := debian.NewRepository(opts.RepositoryBase, opts.Debian)
	linksRepo := htmllinks.NewRepository(opts.RepositoryBase)

	for i := range cfg.Repositories {
		if err := ctx.Err(); err != nil {
			return err
		}

		repo := &cfg.Repositories[i]
		matching, err := filterVersions(repo, packages)
		if err != nil {
			return err
		}
		if len(matching) == 0 {
			logrus.Debugf("No packages match repository %d (%s)", i, repo.Kind)
			continue
		}

		switch repo.Kind {
		case config.KindDebian:
			err = addDebian(debianRepo, repo, matching, opts.OnConflict)
		case config.KindHtmlLinks:
			err = addLinks(linksRepo, repo, matching, opts.OnConflict)
		default:
			err = models.NewError(models.ErrConfigParse, opts.ConfigPath,
				fmt.Errorf("unknown repository kind %q", repo.Kind))
		}
		if err != nil {
			return err
		}
	}

	for _, backend := range []repository.Backend{debianRepo, linksRepo} {
		if err := backend.Write(); err != nil {
			return err
		}
	}
	return nil
}

// gatherAll reads metadata for every argument in order, expanding
// directories into the package files they contain
func (e *Engine) gatherAll(ctx context.Context, paths []string) ([]*models.Package, error) {
	var packages []*models.Package

	for _, path := range paths {
		files := []string{path}

		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			scanned, err := e.Scanner.Scan(ctx, path)
			if err != nil {
				return nil, models.NewError(models.ErrIO, path, err)
			}
			files = files[:0]
			for _, s := range scanned {
				files = append(files, s.Path)
			}
			logrus.Infof("Found %d packages in %s", len(files), path)
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pkg, err := e.Gather(file)
			if err != nil {
				if models.IsType(err, models.ErrMetadataExtraction) {
					return nil, err
				}
				return nil, models.NewError(models.ErrMetadataExtraction, file, err)
			}
			logrus.Debugf("Read %s: %s", file, pkg.Identity())
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// filterVersions keeps the packages whose version matches match-version,
// when set, and does not match skip-version, when set
func filterVersions(repo *config.Repository, packages []*models.Package) ([]*models.Package, error) {
	match, err := compileOptional(repo.MatchVersion)
	if err != nil {
		return nil, err
	}
	skip, err := compileOptional(repo.SkipVersion)
	if err != nil {
		return nil, err
	}

	var matching []*models.Package
	for _, pkg := range packages {
		if match != nil && !match.MatchString(pkg.Version) {
			continue
		}
		if skip != nil && skip.MatchString(pkg.Version) {
			continue
		}
		matching = append(matching, pkg)
	}
	return matching, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, models.NewError(models.ErrRegexCompile, pattern, err)
	}
	return re, nil
}

func addDebian(repo *debian.Repository, cfg *config.Repository, packages []*models.Package, policy models.ConflictResolution) error {
	if cfg.Suite == "" || cfg.Component == "" {
		return models.NewError(models.ErrMissingField, string(cfg.Kind),
			fmt.Errorf("debian repository requires suite and component to be specified"))
	}

	for _, pkg := range packages {
		idx, err := repo.Open(cfg.Suite, cfg.Component, pkg.Architecture)
		if err != nil {
			return err
		}
		if err := idx.AddPackage(pkg, policy); err != nil {
			return err
		}
		if cfg.AddEmptyI386Repo && pkg.Architecture != placeholderArch {
			if _, err := repo.Open(cfg.Suite, cfg.Component, placeholderArch); err != nil {
				return err
			}
		}
	}
	return nil
}

func addLinks(repo *htmllinks.Repository, cfg *config.Repository, packages []*models.Package, policy models.ConflictResolution) error {
	for _, pkg := range packages {
		idx, err := repo.Open(cfg.Index, cfg.Files)
		if err != nil {
			return err
		}
		if err := idx.AddPackage(pkg, policy); err != nil {
			return err
		}
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/internal/recipe"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/spf13/cobra"
)

const watchDebounce = 100 * time.Millisecond

// recipePipeline is the JSON shape of one evaluated pipeline.
type recipePipeline struct {
	formula.Pipeline
	Formula     string   `json:"formula"`
	Description string   `json:"description"`
	Warnings    []string `json:"warnings,omitempty"`
}

// recipeOutput is the JSON shape of one recipe file.
type recipeOutput struct {
	File      string           `json:"file"`
	Pipelines []recipePipeline `json:"pipelines"`
}

// NewRecipeCommand creates the recipe command.
func NewRecipeCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "recipe [path...]",
		Short: "Evaluate Starlark pipeline recipes",
		Long: `Evaluate Starlark recipe files and print the formula and description of
every pipeline they define. Paths may be files or directories; with no
arguments the configured recipes directory is used.

Recipes call pipeline(name, source, aggregation, steps) with steps built by
multiply(), divide_by(), round(), coalesce(), cast_date() and extract().`,
		Example: `  leapmix recipe
  leapmix recipe recipes/search.star -o json
  leapmix recipe --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			if len(args) == 0 {
				args = []string{c.Cfg.Recipes}
			}
			if !watch {
				return runRecipes(c, args)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchRecipes(ctx, c, args)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-evaluate when recipe files change")

	return cmd
}

// loadRecipes evaluates every recipe file under paths.
func loadRecipes(c *CommandContext, paths []string) ([]*recipe.Recipe, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	ev := recipe.NewEvaluator(cat.Fields, c.Logger)

	var out []*recipe.Recipe
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) && p == c.Cfg.Recipes {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if info.IsDir() {
			recipes, err := ev.EvalDir(p)
			if err != nil {
				return nil, err
			}
			out = append(out, recipes...)
			continue
		}
		r, err := ev.EvalFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func runRecipes(c *CommandContext, paths []string) error {
	recipes, err := loadRecipes(c, paths)
	if err != nil {
		return err
	}
	return renderRecipes(c.Renderer, recipes)
}

func renderRecipes(r *output.Renderer, recipes []*recipe.Recipe) error {
	out := make([]recipeOutput, len(recipes))
	for i, rc := range recipes {
		out[i] = recipeOutput{File: rc.File, Pipelines: make([]recipePipeline, len(rc.Pipelines))}
		for j, p := range rc.Pipelines {
			rp := recipePipeline{Pipeline: p, Formula: p.Formula(), Description: p.Description()}
			for _, issue := range p.Validate() {
				rp.Warnings = append(rp.Warnings, issue.String())
			}
			out[i].Pipelines[j] = rp
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if len(out) == 0 {
		r.Println("No recipes found")
		return nil
	}
	for _, rc := range out {
		r.Header(2, filepath.Base(rc.File))
		rows := make([][]any, len(rc.Pipelines))
		for i, p := range rc.Pipelines {
			rows[i] = []any{p.Name, describeSteps(p.Steps), p.Formula, p.Description}
		}
		r.Table([]string{"Pipeline", "Steps", "Formula", "Description"}, rows)
		for _, p := range rc.Pipelines {
			for _, w := range p.Warnings {
				r.Warnf("%s: %s", p.Name, w)
			}
		}
		r.Println()
	}
	return nil
}

// watchRecipes evaluates paths, then again after every change to a recipe
// file until ctx is done. Evaluation errors are reported and watching
// continues.
func watchRecipes(ctx context.Context, c *CommandContext, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	reload := func() {
		if err := runRecipes(c, paths); err != nil {
			c.Renderer.Warnf("%v", err)
		}
	}
	reload()
	c.Renderer.Println(c.Renderer.Styles().Muted.Render("Watching for changes, press Ctrl+C to stop"))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != recipe.Ext {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			c.Logger.Debug("recipe changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

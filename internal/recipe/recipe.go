// Package recipe evaluates formula pipeline recipes written in Starlark.
//
// A recipe file declares pipelines with the pipeline() builtin:
//
//	pipeline(
//	    name = "cpc",
//	    source = "cost_micros",
//	    aggregation = "SUM",
//	    steps = [divide_by(1000000), divide_by("clicks"), round(2)],
//	)
//
// Steps may also be given as strings in the op=value form ("round=2").
// The catalog fields are available as the fields global so recipes can
// generate pipelines in a loop.
package recipe

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Ext is the file extension of recipe files.
const Ext = ".star"

// Recipe is the result of evaluating one recipe file.
type Recipe struct {
	// File is the path of the evaluated file
	File string
	// Pipelines in declaration order
	Pipelines []formula.Pipeline
}

// Pipeline finds a declared pipeline by name.
func (r *Recipe) Pipeline(name string) (formula.Pipeline, bool) {
	for _, p := range r.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return formula.Pipeline{}, false
}

// Evaluator runs recipe files.
type Evaluator struct {
	fields []core.Field
	logger *slog.Logger
}

// NewEvaluator creates an evaluator exposing fields to recipes.
// A nil logger discards print() output.
func NewEvaluator(fields []core.Field, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{fields: fields, logger: logger}
}

var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Eval evaluates recipe source. name is used in error positions.
func (e *Evaluator) Eval(name string, src []byte) (*Recipe, error) {
	r := &Recipe{File: name}
	thread := &starlark.Thread{
		Name: "recipe:" + name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info(msg, slog.String("recipe", name))
		},
	}

	predeclared := e.predeclared(r)
	if _, err := starlark.ExecFileOptions(fileOptions, thread, name, src, predeclared); err != nil {
		return nil, &LoadError{File: name, Message: errorMessage(err)}
	}

	e.logger.Debug("recipe evaluated",
		slog.String("file", name),
		slog.Int("pipelines", len(r.Pipelines)))
	return r, nil
}

// EvalFile reads and evaluates a recipe file.
func (e *Evaluator) EvalFile(path string) (*Recipe, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return e.Eval(path, src)
}

// EvalDir evaluates every recipe file in dir, sorted by name.
// A missing directory yields no recipes.
func (e *Evaluator) EvalDir(dir string) ([]*Recipe, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access recipes directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("recipes path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipes directory: %w", err)
	}
	sort.Strings(files)

	recipes := make([]*Recipe, 0, len(files))
	for _, f := range files {
		r, err := e.EvalFile(f)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

func errorMessage(err error) string {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return evalErr.Backtrace()
	}
	return err.Error()
}

// LoadError represents an error evaluating a recipe file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", filepath.Base(e.File), e.Message)
}

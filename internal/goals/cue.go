package goals

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/craftloop/internal/ir"
)

// LoadError reports a problem in a goal file, with a CUE position when known.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// LoadCUE reads a goal file written in CUE:
//
//	goal: Agriculture: ["Plant", "Farm", "Tractor"]
//	goal: Infinite: ["Infinity"]
//
// Categories keep their declaration order, which is their priority.
func LoadCUE(path string) (*Spec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("read goal file: %v", err)}
	}
	return ParseCUE(path, src)
}

// ParseCUE parses goal CUE source. filename is used for error positions.
func ParseCUE(filename string, src []byte) (*Spec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(filename, err)
	}

	goalVal := v.LookupPath(cue.ParsePath("goal"))
	if !goalVal.Exists() {
		return nil, &LoadError{Path: filename, Message: "no goal struct found"}
	}

	iter, err := goalVal.Fields()
	if err != nil {
		return nil, formatCUEError(filename, err)
	}

	var categories []Category
	for iter.Next() {
		name := iter.Selector().Unquoted()
		items, err := parseItems(iter.Value())
		if err != nil {
			return nil, err
		}
		categories = append(categories, Category{Name: name, Items: items})
	}

	spec, err := New(categories)
	if err != nil {
		return nil, &LoadError{Path: filename, Message: err.Error()}
	}
	return spec, nil
}

func parseItems(v cue.Value) ([]ir.Element, error) {
	list, err := v.List()
	if err != nil {
		return nil, &LoadError{Message: "goal category must be a list of names", Pos: v.Pos()}
	}
	var items []ir.Element
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &LoadError{Message: "goal item must be a string", Pos: list.Value().Pos()}
		}
		e, err := ir.NormalizeElement(s)
		if err != nil {
			return nil, &LoadError{Message: err.Error(), Pos: list.Value().Pos()}
		}
		items = append(items, e)
	}
	return items, nil
}

// formatCUEError converts a CUE error into a LoadError carrying the first
// error's position.
func formatCUEError(filename string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: filename, Message: err.Error()}
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Path: filename, Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Path: filename, Message: first.Error()}
}

package extractor

import (
	"fmt"

	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"

	"github.com/fxnatic/filehash-go/types"
	"github.com/fxnatic/filehash-go/visitors"
)

func Parse(src string) (*ast.Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return prog, nil
}

// Extract parses src and builds its manifest.
func Extract(src string) (*types.Manifest, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return ExtractProgram(prog)
}

// ExtractProgram runs the three matchers once each over p. A missing legend
// table or item list is fatal; a missing index locator leaves Index empty.
// The program is not modified.
func ExtractProgram(p *ast.Program) (*types.Manifest, error) {
	legend, ok := visitors.FindLegendTable(p)
	if !ok {
		return nil, &types.PatternError{Pattern: types.PatternLegendTable}
	}

	list, ok := visitors.FindItemList(p)
	if !ok {
		return nil, &types.PatternError{Pattern: types.PatternItemList}
	}

	m := &types.Manifest{
		Items:  list.Items,
		Legend: *legend,
	}

	if loc, ok := visitors.FindIndexLocator(p); ok {
		m.Index = loc.IndexName
		m.List = loc.ListName
	}

	return m, nil
}

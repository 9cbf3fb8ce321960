package types

// IndexLocatorResult names the variables that hold the decoded list and the
// position selected from it.
type IndexLocatorResult struct {
	ListName  string
	IndexName string
}

// LegendTableResult is the declarator of the character lookup table together
// with source that re-declares it when run on its own.
type LegendTableResult struct {
	VariableName string
	SourceCode   string
}

type ItemListResult struct {
	VariableName string
	Items        []string
}

// Manifest combines the three matcher results of one bundle.
//
// Items and Legend are always set. Index is the name of the index variable,
// not its value; it is empty when the locator pattern was absent.
type Manifest struct {
	Index  string
	List   string
	Items  []string
	Legend LegendTableResult
}

func (m *Manifest) HasIndex() bool {
	return m != nil && m.Index != ""
}

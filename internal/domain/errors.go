package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownSource         = errors.New("unknown source")
	ErrUnknownTool           = errors.New("unknown tool")
	ErrUnknownToolset        = errors.New("unknown toolset")
	ErrUnsupportedToolKind   = errors.New("unsupported tool kind")
	ErrUnsupportedSourceKind = errors.New("unsupported source kind")
)

// InconsistentKindError reports a toolset whose tools are bound to sources
// of more than one kind (or none). Such a toolset has no effective source
// kind and cannot be provisioned as a single tool server.
type InconsistentKindError struct {
	Toolset string
	Kinds   []SourceKind
}

func (e *InconsistentKindError) Error() string {
	kinds := make([]string, 0, len(e.Kinds))
	for _, k := range e.Kinds {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("toolset %q: all tools must share one source kind, found {%s}", e.Toolset, strings.Join(kinds, ", "))
}

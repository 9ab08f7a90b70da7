package component

import (
	"path/filepath"
	"strings"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// IsScriptDocument reports whether doc is written in script syntax: .cfs
// files and components whose declaration is in script form. Everything else
// is a tag document.
func IsScriptDocument(doc *types.Document) bool {
	switch strings.ToLower(filepath.Ext(doc.URI())) {
	case ".cfs":
		return true
	case ".cfc":
		decl, ok := FindDeclaration(doc.Text())
		return ok && decl.IsScript
	}
	return false
}

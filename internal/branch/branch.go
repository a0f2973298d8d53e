// Package branch implements C8: mapping a VCS branch name (or the absence
// of one) onto the snapshot namespace's directory layout, grounded on the
// teacher's schema-to-directory mapping in storage/schema_fs.go
// (schemaDir, schemaExists): a name is validated once, then used directly
// as a path component.
package branch

import (
	"strings"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// Default is used when the working tree is not under version control, or
// the VCS reports no current branch.
const Default = "default"

// Sanitize validates and normalizes a branch name for use as a directory
// component under snapshots/. Path separators are replaced with "_"; "."
// and ".." and the empty string are rejected outright since they would
// otherwise collide with filesystem metaphors the snapshot tree depends on.
func Sanitize(name string) (string, error) {
	if name == "" {
		return "", fractylerr.New(fractylerr.KindBadArgument, "branch name must not be empty")
	}
	if name == "." || name == ".." {
		return "", fractylerr.New(fractylerr.KindBadArgument, "branch name must not be \".\" or \"..\"")
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_")
	sanitized := replacer.Replace(name)
	if sanitized == "" {
		return "", fractylerr.New(fractylerr.KindBadArgument, "branch name sanitizes to empty string")
	}
	return sanitized, nil
}

// Package plugin provides plugin metadata and a base implementation that
// removes boilerplate from frame-transform plugins.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Info contains plugin metadata
type Info struct {
	Name        string // Registration name (e.g., "avgframes")
	Description string // One-line description
	Version     string // Semantic version (e.g., "1.0.0")
	Vendor      string // Company/developer name
}

// uidNamespace scopes plugin UIDs so they never collide with other SHA1 UUIDs
var uidNamespace = uuid.MustParse("6f1c2f0e-8a8b-4c47-9f0a-3b4f2b7d9e10")

var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// UID derives a stable identifier from vendor and name
func (i Info) UID() uuid.UUID {
	return uuid.NewSHA1(uidNamespace, []byte(i.Vendor+"/"+i.Name))
}

// Validate checks the metadata a host relies on
func (i Info) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}
	if !nameRegex.MatchString(i.Name) {
		return fmt.Errorf("plugin name %q must be lowercase letters, digits, '-' or '_'", i.Name)
	}
	return nil
}

// String returns name@version
func (i Info) String() string {
	if i.Version == "" {
		return i.Name
	}
	return i.Name + "@" + i.Version
}

package docstore

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultURL addresses the "test" database in the data directory.
const DefaultURL = "sqlite://localhost/test"

// Scheme is the only URL scheme Open accepts.
const Scheme = "sqlite"

// Location is a parsed store URL.
type Location struct {
	// Database is the database name: the last path element of the URL.
	Database string

	// Memory is set for sqlite://memory/<name> URLs.
	Memory bool

	// Dir is the directory holding the database file for absolute-path
	// URLs. Empty means the configured data directory.
	Dir string
}

// ParseURL parses a store URL.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme != Scheme {
		return Location{}, fmt.Errorf("parse store url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Location{}, fmt.Errorf("parse store url %q: query and fragment are not supported", raw)
	}

	var loc Location
	switch u.Host {
	case "localhost":
		loc.Database = strings.TrimPrefix(u.Path, "/")
	case "memory":
		loc.Memory = true
		loc.Database = strings.TrimPrefix(u.Path, "/")
	case "":
		if !strings.HasPrefix(u.Path, "/") {
			return Location{}, fmt.Errorf("parse store url %q: path must be absolute", raw)
		}
		loc.Dir, loc.Database = filepath.Split(filepath.Clean(u.Path))
	default:
		return Location{}, fmt.Errorf("parse store url %q: unsupported host %q", raw, u.Host)
	}

	if loc.Database == "" || strings.ContainsAny(loc.Database, `/\`) || loc.Database == "." || loc.Database == ".." {
		return Location{}, fmt.Errorf("parse store url %q: invalid database name %q", raw, loc.Database)
	}
	return loc, nil
}

// Path returns the database file path, or "" for in-memory databases.
func (l Location) Path(dataDir string) string {
	if l.Memory {
		return ""
	}
	dir := l.Dir
	if dir == "" {
		dir = dataDir
	}
	return filepath.Join(dir, l.Database+".db")
}

// DSN returns the go-sqlite3 data source name.
func (l Location) DSN(dataDir string) string {
	if l.Memory {
		return "file:" + url.PathEscape(l.Database) + "?mode=memory&cache=shared"
	}
	return l.Path(dataDir)
}

func (l Location) String() string {
	switch {
	case l.Memory:
		return Scheme + "://memory/" + l.Database
	case l.Dir != "":
		return Scheme + "://" + filepath.ToSlash(filepath.Join(l.Dir, l.Database))
	default:
		return Scheme + "://localhost/" + l.Database
	}
}

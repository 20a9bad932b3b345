package fakebackend

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-contest-portal/backend"
)

// Row is one record of a rest resource.
type Row map[string]any

type resource struct {
	readRole  Role
	writeRole Role
	rows      []Row
}

// AddResource registers a table readable by readRole and writable by writeRole.
func (b *Backend) AddResource(name string, readRole, writeRole Role, rows ...Row) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := &resource{readRole: readRole, writeRole: writeRole}
	for _, row := range rows {
		r.rows = append(r.rows, withID(row))
	}
	b.resources[name] = r
}

func withID(row Row) Row {
	out := make(Row, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	if _, ok := out["id"]; !ok {
		out["id"] = uuid.New().String()
	}
	return out
}

func (b *Backend) lookup(name string) (*resource, *backend.Error) {
	r, ok := b.resources[name]
	if !ok {
		return nil, &backend.Error{Status: http.StatusNotFound, Code: "PGRST205", Message: fmt.Sprintf("relation %q does not exist", name)}
	}
	return r, nil
}

func forbidden(name string) *backend.Error {
	return &backend.Error{Status: http.StatusForbidden, Code: "42501", Message: "permission denied for " + name}
}

// Select returns the rows of name matching every filter. Filter values may
// carry an "eq." prefix.
func (b *Backend) Select(claims *Claims, name string, filters map[string]string) ([]Row, *backend.Error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, berr := b.lookup(name)
	if berr != nil {
		return nil, berr
	}
	if !claims.Role.Includes(r.readRole) {
		return nil, forbidden(name)
	}

	out := make([]Row, 0, len(r.rows))
	for _, row := range r.rows {
		if matches(row, filters) {
			out = append(out, withID(row))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"])
	})
	return out, nil
}

func matches(row Row, filters map[string]string) bool {
	for k, want := range filters {
		if fmt.Sprint(row[k]) != strings.TrimPrefix(want, "eq.") {
			return false
		}
	}
	return true
}

// Insert appends a row to name and returns it with its assigned ID.
func (b *Backend) Insert(claims *Claims, name string, row Row) (Row, *backend.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, berr := b.lookup(name)
	if berr != nil {
		return nil, berr
	}
	if !claims.Role.Includes(r.writeRole) {
		return nil, forbidden(name)
	}

	stored := withID(row)
	stored["created_by"] = claims.Subject
	r.rows = append(r.rows, stored)
	return withID(stored), nil
}

// Package repository defines the contract between the synchronization
// engine and the on-disk repository backends.
package repository

import (
	"fmt"

	"github.com/ralt/bulk/internal/models"
)

// Index is a single package index held in memory, such as one
// suite/component/architecture of a Debian repository.
type Index interface {
	// AddPackage inserts pkg, resolving an identity clash with policy
	AddPackage(pkg *models.Package, policy models.ConflictResolution) error
}

// Backend owns every index of one repository kind opened during a run
type Backend interface {
	// Write persists every opened index, including empty ones
	Write() error
}

// Entries is the ordered set of packages of one index keyed by identity.
// Backends embed it to share conflict handling.
type Entries struct {
	order []string
	byID  map[string]*models.Package
}

// Insert applies the conflict policy. With ConflictError an existing
// identity is left untouched and a models.ErrConflict error is returned.
// The bool reports whether pkg is now stored.
func (e *Entries) Insert(pkg *models.Package, policy models.ConflictResolution) (bool, error) {
	if e.byID == nil {
		e.byID = make(map[string]*models.Package)
	}
	id := pkg.Identity()
	if _, exists := e.byID[id]; exists {
		switch policy {
		case models.ConflictKeep:
			return false, nil
		case models.ConflictReplace:
			e.byID[id] = pkg
			return true, nil
		default:
			return false, models.NewError(models.ErrConflict, id,
				fmt.Errorf("package already exists in repository"))
		}
	}
	e.byID[id] = pkg
	e.order = append(e.order, id)
	return true, nil
}

// Get returns the package stored under identity id
func (e *Entries) Get(id string) (*models.Package, bool) {
	pkg, ok := e.byID[id]
	return pkg, ok
}

// Len returns the number of stored packages
func (e *Entries) Len() int {
	return len(e.order)
}

// Packages returns the stored packages in insertion order
func (e *Entries) Packages() []*models.Package {
	pkgs := make([]*models.Package, 0, len(e.order))
	for _, id := range e.order {
		pkgs = append(pkgs, e.byID[id])
	}
	return pkgs
}

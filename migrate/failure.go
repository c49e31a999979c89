package migrate

import (
	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/identifier"
)

// Category classifies entity-level failures.
type Category string

const (
	// CategoryDiscovery marks a legacy entity that could not be read; its subtree is not migrated.
	CategoryDiscovery Category = "DiscoveryError"

	// CategoryEligibility marks an entity excluded by its strategy; never reported as an error.
	CategoryEligibility Category = "EligibilityFailure"

	// CategoryDependency marks an entity skipped because something it needs was not migrated.
	CategoryDependency Category = "DependencyUnresolved"

	// CategoryRender marks expression tokens left for runtime input; never fatal.
	CategoryRender Category = "RenderUnresolved"

	// CategoryRemoteImport marks a failed call to the target.
	CategoryRemoteImport Category = "RemoteImportError"

	// CategoryCollision marks an entity whose identifier could not be made unique.
	CategoryCollision Category = "IdentifierCollisionExhausted"

	// CategoryGenerate marks a strategy that could not build its document.
	CategoryGenerate Category = "GenerateError"

	// CategoryLedger marks a migrated entity whose mapping could not be persisted.
	CategoryLedger Category = "LedgerError"

	// CategoryContext marks a failure building the run context; it aborts the run.
	CategoryContext Category = "ContextConstruction"
)

func (c Category) String() string {
	return string(c)
}

// Failure is an error attributed to one legacy entity.
type Failure struct {
	Err      error
	Category Category
	Ref      cg.EntityRef
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Category)
	}
	return f.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure attributes err to ref.
func NewFailure(category Category, ref cg.EntityRef, err error) *Failure {
	return &Failure{Err: err, Category: category, Ref: ref}
}

// ImportError converts the failure for the report.
func (f *Failure) ImportError() ImportError {
	return ImportError{Message: f.Error(), Origin: f.Ref, Category: f.Category}
}

// CategoryOf classifies an error returned while processing an entity.
func CategoryOf(err error) Category {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return f.Category
	case errors.Is(err, identifier.ErrCollisionExhausted):
		return CategoryCollision
	}
	return CategoryRemoteImport
}

// IsContextFailure reports whether err must abort the whole run.
func IsContextFailure(err error) bool {
	return CategoryOf(err) == CategoryContext
}

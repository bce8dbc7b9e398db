package embed

import (
	"sync"

	"github.com/pkg/errors"
)

// Object is a relocatable object file produced by Embed.  The object owns its
// file: Release deletes it.
type Object struct {
	path    string
	section string

	once sync.Once
	err  error
}

// Path returns the location of the object file.
func (o *Object) Path() string {
	return o.path
}

// Section returns the name of the section the object carries.
func (o *Object) Section() string {
	return o.section
}

// Release deletes the object file.  It may be called more than once.
func (o *Object) Release() error {
	o.once.Do(func() {
		if err := removeScratch(o.path); err != nil {
			o.err = errors.Wrapf(err, "failed to delete object file `%s`", o.path)
		}
	})

	return o.err
}

// ReleaseAll releases every object and returns the first error.
func ReleaseAll(objs []*Object) error {
	var first error
	for _, o := range objs {
		if o == nil {
			continue
		}

		if err := o.Release(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

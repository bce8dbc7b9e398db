// Package embed turns raw section bytes into a relocatable object file holding
// a single named section.  The conversion is done by a Backend: either an
// external tool (objcopy, llc, the C compiler) or the in-process ELF writer.
package embed

import (
	"os"

	"github.com/pkg/errors"
)

// Request is one conversion handed to a backend.
type Request struct {
	// Data is the section contents.  Input holds the same bytes on disk.
	Data  []byte
	Input string

	// Output is where the backend must write the object.  The file exists
	// (empty) when the backend is called.
	Output string

	Section  string
	Platform *Platform
}

// Backend converts section contents into an object file.  Backends run
// synchronously: there is no timeout and no cancellation.
type Backend interface {
	Name() string
	Convert(req *Request) error
}

// Embed produces an object holding data in a section called section.  The
// temporary input file is removed on every path; on failure no object is
// returned and nothing is left on disk.
func Embed(data []byte, section string, platform *Platform, backend Backend) (*Object, error) {
	if section == "" {
		return nil, errors.New("section name must not be empty")
	}

	if platform == nil {
		return nil, errors.New("no target platform given")
	}

	input, err := createScratch(".bin")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create section input file")
	}
	defer removeScratch(input)

	if err := os.WriteFile(input, data, 0644); err != nil {
		return nil, errors.Wrapf(err, "failed to write section input file `%s`", input)
	}

	output := input + ".o"
	registerScratch(output)

	// reserve the output path before handing it to the backend
	if err := os.WriteFile(output, nil, 0644); err != nil {
		removeScratch(output)
		return nil, errors.Wrapf(err, "failed to create object file `%s`", output)
	}

	req := &Request{
		Data:     data,
		Input:    input,
		Output:   output,
		Section:  section,
		Platform: platform,
	}

	if err := backend.Convert(req); err != nil {
		removeScratch(output)
		return nil, errors.Wrapf(err, "embedding section `%s` with %s", section, backend.Name())
	}

	return &Object{path: output, section: section}, nil
}

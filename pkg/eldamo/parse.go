package eldamo

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Parse decodes an Eldamo XML document. The returned tree is not linked; pass it to Build.
// Any failure is reported as a *ParseError.
func Parse(r io.Reader) (*WordData, error) {
	var data WordData
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ParseError{Err: err}
	}
	return &data, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string) (*WordData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

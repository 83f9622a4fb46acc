package extract

import "errors"

var (
	// ErrSourceFailed wraps any error reported by a reading source.
	ErrSourceFailed = errors.New("extract: source query failed")

	// ErrUnsupportedLayout is returned for an unknown SQL table layout.
	ErrUnsupportedLayout = errors.New("extract: unsupported table layout")

	// ErrMalformedDataFile is returned by ReadDataFile for rows that do
	// not parse.
	ErrMalformedDataFile = errors.New("extract: malformed data file")
)

package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DataTimeLayout is the timestamp layout of data file rows. It matches
	// the gnuplot timefmt "%Y-%m-%d %H:%M:%S".
	DataTimeLayout = "2006-01-02 15:04:05"

	dataHeader = "# time\tvalue"
)

// WriteData writes readings in data file format to w. Timestamps are
// rendered in loc.
func WriteData(w io.Writer, readings []Reading, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(dataHeader + "\n"); err != nil {
		return err
	}
	for _, r := range readings {
		fmt.Fprintf(bw, "%s\t%s\n", r.Time.In(loc).Format(DataTimeLayout), strconv.FormatFloat(r.Value, 'f', -1, 64))
	}
	return bw.Flush()
}

// ReadDataFile parses a data file written by WriteData. Timestamps are
// interpreted in loc.
func ReadDataFile(path string, loc *time.Location) ([]Reading, error) {
	if loc == nil {
		loc = time.Local
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	var readings []Reading
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		ts, val, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("%w: %s:%d: missing tab", ErrMalformedDataFile, path, line)
		}
		t, err := time.ParseInLocation(DataTimeLayout, ts, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", ErrMalformedDataFile, path, line, err)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", ErrMalformedDataFile, path, line, err)
		}
		readings = append(readings, Reading{Time: t, Value: v})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	return readings, nil
}

package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRangeNotSatisfiable is returned for ranges that fall outside the file.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte interval. An empty file is represented by
// Until == From-1.
type Range struct {
	From  int64
	Until int64
}

func (r Range) Length() int64 {
	return r.Until - r.From + 1
}

// ContentRange formats the Content-Range header value for r within size.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.From, r.Until, size)
}

// UnsatisfiedRange formats the Content-Range header value of a 416 response.
func UnsatisfiedRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseRange validates a Range header against size. partial reports whether
// a usable range was present; when it is false the whole file is returned.
// Headers that cannot be parsed are treated as absent.
func ParseRange(header string, size int64) (r Range, partial bool, err error) {
	whole := Range{From: 0, Until: size - 1}

	set, ok := parseByteRange(header)
	if !ok {
		return whole, false, nil
	}

	fromStr, untilStr, _ := strings.Cut(set, "-")

	if fromStr == "" {
		// Suffix form: the last N bytes.
		n, err := strconv.ParseInt(untilStr, 10, 64)
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			// Longer than any object: the whole file.
			n = size
		} else if err != nil || n < 0 {
			return whole, false, nil
		}
		if n == 0 || size == 0 {
			return Range{}, true, ErrRangeNotSatisfiable
		}
		return Range{From: max(0, size-n), Until: size - 1}, true, nil
	}

	from, err := strconv.ParseInt(fromStr, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return Range{}, true, ErrRangeNotSatisfiable
	}
	if err != nil {
		return whole, false, nil
	}

	until := size - 1
	if untilStr != "" {
		until, err = strconv.ParseInt(untilStr, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return Range{}, true, ErrRangeNotSatisfiable
		}
		if err != nil {
			return whole, false, nil
		}
	}

	if from < 0 || until >= size || until < from {
		return Range{}, true, ErrRangeNotSatisfiable
	}

	return Range{From: from, Until: until}, true, nil
}

// parseByteRange extracts the single range from "bytes=<set>".
func parseByteRange(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("bytes=") || !strings.EqualFold(header[:len("bytes=")], "bytes=") {
		return "", false
	}

	set := strings.TrimSpace(header[len("bytes="):])
	if set == "" || strings.Contains(set, ",") || !strings.Contains(set, "-") {
		return "", false
	}

	return set, true
}

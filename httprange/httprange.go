// Package httprange parses Range and Content-Range headers into the typed
// byte intervals the rest of the mediation layer operates on. Parsing has no
// side effects; every malformed input fails with drivegate.ErrInvalidRange.
package httprange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/drivegate/drivegate"
)

const (
	rangePrefix        = "bytes="
	contentRangePrefix = "bytes "
)

// ParseRange parses a request Range header of the form "bytes=<start>-<end>"
// or "bytes=<start>-". An absent end means open-to-end of the resource.
// Multi-range and suffix-range requests are rejected.
func ParseRange(header string) (*drivegate.ByteRange, error) {
	spec, ok := cutPrefixFold(strings.TrimSpace(header), rangePrefix)
	if !ok {
		return nil, invalidRange("missing bytes= prefix in %q", header)
	}
	if strings.Contains(spec, ",") {
		return nil, invalidRange("multi-range requests are not supported")
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, invalidRange("missing '-' separator in %q", header)
	}

	start, err := parseByteOffset(startStr)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(endStr) == "" {
		return &drivegate.ByteRange{Start: start, Open: true}, nil
	}

	end, err := parseByteOffset(endStr)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, invalidRange("end %d precedes start %d", end, start)
	}

	return &drivegate.ByteRange{Start: start, End: end}, nil
}

// ParseContentRange parses an upload Content-Range header of the form
// "bytes <start>-<end>/<total>" or "bytes <start>-<end>/*". A "*" total means
// the total is unknown and more chunks are expected to follow.
func ParseContentRange(header string) (*drivegate.ContentRange, error) {
	spec, ok := cutPrefixFold(strings.TrimSpace(header), contentRangePrefix)
	if !ok {
		return nil, invalidRange("missing bytes prefix in %q", header)
	}

	span, totalStr, ok := strings.Cut(spec, "/")
	if !ok {
		return nil, invalidRange("missing '/<total>' in %q", header)
	}

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return nil, invalidRange("missing '-' separator in %q", header)
	}

	start, err := parseByteOffset(startStr)
	if err != nil {
		return nil, err
	}
	end, err := parseByteOffset(endStr)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, invalidRange("end %d precedes start %d", end, start)
	}

	cr := &drivegate.ContentRange{Start: start, End: end}
	if strings.TrimSpace(totalStr) != "*" {
		total, err := parseByteOffset(totalStr)
		if err != nil {
			return nil, err
		}
		if total < end+1 {
			return nil, invalidRange("total %d smaller than range end %d", total, end)
		}
		cr.Total = total
		cr.TotalKnown = true
	}
	return cr, nil
}

// FormatContentRange renders the "bytes <start>-<end>/<total>" form used on
// partial-content responses.
func FormatContentRange(start, end, total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, total)
}

func parseByteOffset(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, invalidRange("non-negative integer required, got %q", s)
	}
	return n, nil
}

func invalidRange(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{drivegate.ErrInvalidRange}, args...)...)
}

// header prefixes are matched case-insensitively per RFC 9110
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

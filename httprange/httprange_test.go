package httprange_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/httprange"
)

/**********************************
 ************TESTS*****************
 **********************************/

type httprangeSuite struct {
	suite.Suite
}

func (s *httprangeSuite) TestParseRange() {
	tests := []struct {
		header  string
		want    *drivegate.ByteRange
		wantErr bool
		message string
	}{
		{"bytes=0-1023", &drivegate.ByteRange{Start: 0, End: 1023}, false, "bounded range"},
		{"bytes=500-500", &drivegate.ByteRange{Start: 500, End: 500}, false, "single byte range"},
		{"bytes=1024-", &drivegate.ByteRange{Start: 1024, Open: true}, false, "open-ended range"},
		{"BYTES=0-99", &drivegate.ByteRange{Start: 0, End: 99}, false, "prefix is case-insensitive"},
		{" bytes=0-99 ", &drivegate.ByteRange{Start: 0, End: 99}, false, "surrounding whitespace tolerated"},
		{"", nil, true, "empty header"},
		{"bytes 0-1023", nil, true, "content-range form is not a request range"},
		{"items=0-10", nil, true, "unknown unit"},
		{"bytes=abc-123", nil, true, "non-numeric start"},
		{"bytes=0-xyz", nil, true, "non-numeric end"},
		{"bytes=-500", nil, true, "suffix ranges unsupported"},
		{"bytes=100-50", nil, true, "end precedes start"},
		{"bytes=0-10,20-30", nil, true, "multi-range unsupported"},
		{"bytes=0", nil, true, "missing separator"},
	}

	for _, tt := range tests {
		got, err := httprange.ParseRange(tt.header)
		if tt.wantErr {
			s.Require().ErrorIs(err, drivegate.ErrInvalidRange, tt.message)
			s.Nil(got, tt.message)
			continue
		}
		s.Require().NoError(err, tt.message)
		s.Equal(tt.want, got, tt.message)
	}
}

func (s *httprangeSuite) TestParseContentRange() {
	tests := []struct {
		header  string
		want    *drivegate.ContentRange
		wantErr bool
		message string
	}{
		{
			header:  "bytes 0-8388607/16777216",
			want:    &drivegate.ContentRange{Start: 0, End: 8388607, Total: 16777216, TotalKnown: true},
			message: "first chunk of a 16 MiB upload",
		},
		{
			header:  "bytes 8388608-16777215/16777216",
			want:    &drivegate.ContentRange{Start: 8388608, End: 16777215, Total: 16777216, TotalKnown: true},
			message: "final chunk of a 16 MiB upload",
		},
		{
			header:  "bytes 0-1023/*",
			want:    &drivegate.ContentRange{Start: 0, End: 1023},
			message: "unknown total",
		},
		{
			header:  "Bytes 0-0/1",
			want:    &drivegate.ContentRange{Start: 0, End: 0, Total: 1, TotalKnown: true},
			message: "single byte upload, case-insensitive prefix",
		},
		{header: "", wantErr: true, message: "empty header"},
		{header: "bytes=0-1023/2048", wantErr: true, message: "request-range form is not a content range"},
		{header: "bytes 0-1023", wantErr: true, message: "missing total"},
		{header: "bytes 0-1023/abc", wantErr: true, message: "non-numeric total"},
		{header: "bytes a-b/100", wantErr: true, message: "non-numeric offsets"},
		{header: "bytes 100-50/200", wantErr: true, message: "end precedes start"},
		{header: "bytes 0-1023/512", wantErr: true, message: "total smaller than range end"},
	}

	for _, tt := range tests {
		got, err := httprange.ParseContentRange(tt.header)
		if tt.wantErr {
			s.Require().ErrorIs(err, drivegate.ErrInvalidRange, tt.message)
			continue
		}
		s.Require().NoError(err, tt.message)
		s.Equal(tt.want, got, tt.message)
	}
}

func (s *httprangeSuite) TestContentRangeFinality() {
	final, err := httprange.ParseContentRange("bytes 8388608-16777215/16777216")
	s.Require().NoError(err)
	s.True(final.IsFinal())
	s.Equal(int64(8388608), final.ChunkSize())

	intermediate, err := httprange.ParseContentRange("bytes 0-8388607/16777216")
	s.Require().NoError(err)
	s.False(intermediate.IsFinal())

	// unknown total is never final, regardless of size
	unknown, err := httprange.ParseContentRange("bytes 0-1023/*")
	s.Require().NoError(err)
	s.False(unknown.IsFinal())
}

func (s *httprangeSuite) TestFormatContentRange() {
	s.Equal("bytes 0-1023/5242880", httprange.FormatContentRange(0, 1023, 5242880))
}

func TestHTTPRange(t *testing.T) {
	suite.Run(t, new(httprangeSuite))
}

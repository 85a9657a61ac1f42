package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/utils"
)

/**********************************
 ************TESTS*****************
 **********************************/

type utilsSuite struct {
	suite.Suite
}

func (s *utilsSuite) TestRemoveLeadingSlash() {
	s.Equal("some/path", utils.RemoveLeadingSlash("/some/path"))
	s.Equal("some/path", utils.RemoveLeadingSlash("some/path"))
	s.Equal("", utils.RemoveLeadingSlash("/"))
}

func (s *utilsSuite) TestRemoveTrailingSlash() {
	s.Equal("/some/path", utils.RemoveTrailingSlash("/some/path/"))
	s.Equal("/some/path", utils.RemoveTrailingSlash("/some/path"))
}

func (s *utilsSuite) TestEnsureLeadingSlash() {
	s.Equal("/some/path", utils.EnsureLeadingSlash("some/path"))
	s.Equal("/some/path", utils.EnsureLeadingSlash("/some/path"))
}

func (s *utilsSuite) TestValidatePath() {
	tests := []struct {
		path    string
		wantErr bool
		message string
	}{
		{"docs/report.pdf", false, "simple relative path is valid"},
		{"report.pdf", false, "bare file name is valid"},
		{"a/b/c/deeply/nested.txt", false, "nested path is valid"},
		{"", true, "empty path is invalid"},
		{"   ", true, "whitespace-only path is invalid"},
		{"docs/", true, "trailing slash is invalid"},
		{"../etc/passwd", true, "parent traversal is invalid"},
		{"docs/../secret", true, "embedded traversal is invalid"},
		{"docs/\x00name", true, "control characters are invalid"},
		{strings.Repeat("a", 1025), true, "overlong path is invalid"},
		{strings.Repeat("a", 1024), false, "path at the limit is valid"},
	}

	for _, tt := range tests {
		err := utils.ValidatePath(tt.path)
		if tt.wantErr {
			s.Require().ErrorIs(err, drivegate.ErrInvalidPath, tt.message)
		} else {
			s.Require().NoError(err, tt.message)
		}
	}
}

func (s *utilsSuite) TestValidateFileName() {
	tests := []struct {
		name    string
		wantErr bool
		message string
	}{
		{"report.pdf", false, "plain name is valid"},
		{"summary (final).docx", false, "spaces and parens are valid"},
		{"", true, "empty name is invalid"},
		{"bad/name", true, "path separator is invalid"},
		{`bad\name`, true, "backslash is invalid"},
		{"bad:name", true, "colon is invalid"},
		{"bad?name", true, "question mark is invalid"},
		{"trailing.", true, "trailing period is invalid"},
		{"trailing ", true, "trailing space is invalid"},
		{strings.Repeat("n", 256), true, "overlong name is invalid"},
	}

	for _, tt := range tests {
		err := utils.ValidateFileName(tt.name)
		if tt.wantErr {
			s.Require().ErrorIs(err, drivegate.ErrInvalidPath, tt.message)
		} else {
			s.Require().NoError(err, tt.message)
		}
	}
}

func (s *utilsSuite) TestValidateItemID() {
	s.Require().NoError(utils.ValidateItemID("item-01ABC"))
	s.Require().Error(utils.ValidateItemID(""))
	s.Require().Error(utils.ValidateItemID("  "))
	s.Require().Error(utils.ValidateItemID(strings.Repeat("x", 129)))
}

func TestUtils(t *testing.T) {
	suite.Run(t, new(utilsSuite))
}

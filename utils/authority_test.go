package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type authoritySuite struct {
	suite.Suite
}

type authorityTest struct {
	authorityString string
	name            string
	hasError        bool
	message         string
}

func (s *authoritySuite) TestNewAuthority() {
	tests := []authorityTest{
		{
			authorityString: "somebucket",
			name:            "somebucket",
			message:         "plain container name",
		},
		{
			authorityString: "my-archive.backups",
			name:            "my-archive.backups",
			message:         "hyphens and dots allowed inside",
		},
		{
			authorityString: "c1",
			name:            "c1",
			message:         "short alphanumeric name",
		},
		{
			authorityString: "",
			hasError:        true,
			message:         "empty authority",
		},
		{
			authorityString: "user@somebucket",
			hasError:        true,
			message:         "userinfo makes no sense for a container",
		},
		{
			authorityString: "somebucket:8080",
			hasError:        true,
			message:         "port makes no sense for a container",
		},
		{
			authorityString: "SomeBucket",
			hasError:        true,
			message:         "uppercase rejected",
		},
		{
			authorityString: "-leading",
			hasError:        true,
			message:         "must start alphanumeric",
		},
		{
			authorityString: "trailing-",
			hasError:        true,
			message:         "must end alphanumeric",
		},
	}

	for _, t := range tests {
		a, err := NewAuthority(t.authorityString)
		if t.hasError {
			s.Require().Error(err, t.message)
			continue
		}
		s.Require().NoError(err, t.message)
		s.Equal(t.name, a.Name(), t.message)
		s.Equal(t.name, a.String(), t.message)
	}
}

func TestAuthority(t *testing.T) {
	suite.Run(t, new(authoritySuite))
}

package listing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivegate/drivegate/listing"
	"github.com/drivegate/drivegate/mocks"
)

type listingSuite struct {
	suite.Suite
	gateway   *mocks.Gateway
	paginator *listing.Paginator
}

func (s *listingSuite) SetupTest() {
	s.gateway = mocks.NewGateway()
	s.paginator = listing.NewPaginator(s.gateway)

	// 3 folders and 12 files with assorted sizes
	s.gateway.SeedFolder("ctn", "archive", 4)
	s.gateway.SeedFolder("ctn", "media", 0)
	s.gateway.SeedFolder("ctn", "zfolder", 1)
	for i := 0; i < 12; i++ {
		content := make([]byte, (i%5+1)*100)
		s.gateway.SeedFile("ctn", fmt.Sprintf("file-%02d.txt", i), "text/plain", content)
	}
}

func (s *listingSuite) page(params listing.Parameters) listing.Page {
	page, err := s.paginator.Page(context.Background(), "ctn", params)
	s.Require().NoError(err)
	return page
}

func (s *listingSuite) TestDefaultsSortByNameAscending() {
	page := s.page(listing.Parameters{})
	s.Len(page.Items, 15, "everything fits in the default page size")
	s.Equal(15, page.TotalCount)
	s.Empty(page.NextLink)

	for i := 1; i < len(page.Items); i++ {
		s.LessOrEqual(page.Items[i-1].Name, page.Items[i].Name)
	}
}

func (s *listingSuite) TestTopClamping() {
	page := s.page(listing.Parameters{Top: 5})
	s.Len(page.Items, 5)
	s.NotEmpty(page.NextLink)

	// top above the maximum clamps to MaxTop, not an error
	page = s.page(listing.Parameters{Top: 500})
	s.Len(page.Items, 15, "clamped top still exceeds the item count here")

	page = s.page(listing.Parameters{Top: -3})
	s.Len(page.Items, 1, "negative top clamps to 1")
}

func (s *listingSuite) TestSkip() {
	all := s.page(listing.Parameters{})
	page := s.page(listing.Parameters{Top: 5, Skip: 5})
	s.Require().Len(page.Items, 5)
	s.Equal(all.Items[5:10], page.Items, "skip slides the window over the same full sort")

	page = s.page(listing.Parameters{Skip: -10})
	s.Len(page.Items, 15, "negative skip clamps to 0")

	page = s.page(listing.Parameters{Skip: 100})
	s.Empty(page.Items, "skip beyond the set yields an empty page")
	s.Empty(page.NextLink)
}

func (s *listingSuite) TestOrderBySizeTreatsFoldersAsZero() {
	page := s.page(listing.Parameters{OrderBy: "size", OrderDir: "asc"})
	s.Require().Len(page.Items, 15)
	for i := 0; i < 3; i++ {
		s.True(page.Items[i].IsFolder(), "folders (size 0) sort first ascending")
	}
	for i := 1; i < len(page.Items); i++ {
		s.LessOrEqual(page.Items[i-1].SizeOrZero(), page.Items[i].SizeOrZero())
	}
}

func (s *listingSuite) TestOrderByLastModifiedDescending() {
	page := s.page(listing.Parameters{OrderBy: "lastModifiedDateTime", OrderDir: "desc"})
	s.Require().Len(page.Items, 15)
	for i := 1; i < len(page.Items); i++ {
		s.False(page.Items[i-1].LastModified.Before(page.Items[i].LastModified))
	}
}

func (s *listingSuite) TestUnknownOrderFieldsFallBack() {
	fallback := s.page(listing.Parameters{OrderBy: "bogus", OrderDir: "sideways"})
	byName := s.page(listing.Parameters{OrderBy: "name", OrderDir: "asc"})
	s.Equal(byName.Items, fallback.Items)
}

func (s *listingSuite) TestDeterministicPaging() {
	params := listing.Parameters{Top: 4, Skip: 4, OrderBy: "size", OrderDir: "desc"}
	first := s.page(params)
	second := s.page(params)
	s.Equal(first.Items, second.Items, "identical parameters yield identical ordering")
	s.Equal(first.NextLink, second.NextLink, "and an identical continuation token")
}

func (s *listingSuite) TestNextLinkEncodesContinuation() {
	page := s.page(listing.Parameters{Top: 10, Skip: 0, OrderBy: "size", OrderDir: "desc"})
	s.Require().NotEmpty(page.NextLink)
	s.Contains(page.NextLink, "skip=10")
	s.Contains(page.NextLink, "top=10")
	s.Contains(page.NextLink, "orderBy=size")
	s.Contains(page.NextLink, "orderDir=desc")

	last := s.page(listing.Parameters{Top: 10, Skip: 10})
	s.Len(last.Items, 5)
	s.Empty(last.NextLink, "no continuation past the final page")
}

func (s *listingSuite) TestPagesNeverOverlapOrSkip() {
	var names []string
	params := listing.Parameters{Top: 4}
	for skip := 0; skip < 16; skip += 4 {
		params.Skip = skip
		for _, it := range s.page(params).Items {
			names = append(names, it.Name)
		}
	}
	s.Len(names, 15)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		s.False(seen[n], "item %q appeared on two pages", n)
		seen[n] = true
	}
}

func (s *listingSuite) TestGatewayFailure() {
	s.gateway.ListError = fmt.Errorf("listing blew up")
	_, err := s.paginator.Page(context.Background(), "ctn", listing.Parameters{})
	s.Require().Error(err)
}

func TestListing(t *testing.T) {
	suite.Run(t, new(listingSuite))
}

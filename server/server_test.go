package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/listing"
	"github.com/drivegate/drivegate/mocks"
	"github.com/drivegate/drivegate/upload"
)

const testToken = "test-token"

type ServerSuite struct {
	suite.Suite

	gateway *mocks.Gateway
	ts      *httptest.Server
}

func (s *ServerSuite) SetupTest() {
	s.gateway = mocks.NewGateway()
	srv := New(s.gateway, upload.NewMemoryStore())
	s.ts = httptest.NewServer(srv.Handler())
}

func (s *ServerSuite) TearDownTest() {
	s.ts.Close()
}

// do sends an authenticated request and returns the response.
func (s *ServerSuite) do(method, path string, body []byte, headers map[string]string) *http.Response {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	s.Require().NoError(err, "building request should succeed")
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.ts.Client().Do(req)
	s.Require().NoError(err, "request should reach the server")
	return resp
}

func (s *ServerSuite) decodeBody(resp *http.Response, v any) {
	defer func() { _ = resp.Body.Close() }()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v), "response body should decode")
}

func (s *ServerSuite) TestHealthRequiresNoToken() {
	resp, err := s.ts.Client().Get(s.ts.URL + "/healthz")
	s.Require().NoError(err, "health check should succeed")
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusOK, resp.StatusCode, "health check should not require a bearer token")
}

func (s *ServerSuite) TestMissingBearerToken() {
	resp, err := s.ts.Client().Get(s.ts.URL + "/api/containers/c1/children")
	s.Require().NoError(err, "request should reach the server")
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusUnauthorized, resp.StatusCode, "API routes should require a bearer token")
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
}

func (s *ServerSuite) TestSecurityHeaders() {
	resp := s.do(http.MethodGet, "/api/containers/c1/children", nil, nil)
	defer func() { _ = resp.Body.Close() }()

	s.Equal("nosniff", resp.Header.Get("X-Content-Type-Options"))
	s.Equal("DENY", resp.Header.Get("X-Frame-Options"))
	s.Equal("no-referrer", resp.Header.Get("Referrer-Policy"))
	s.NotEmpty(resp.Header.Get("Content-Security-Policy"))
}

func (s *ServerSuite) TestListChildrenDefaults() {
	for i := 0; i < 3; i++ {
		s.gateway.SeedFile("c1", fmt.Sprintf("file-%d.txt", i), "text/plain", []byte("x"))
	}

	resp := s.do(http.MethodGet, "/api/containers/c1/children", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var page listing.Page
	s.decodeBody(resp, &page)
	s.Len(page.Items, 3)
	s.Equal(3, page.TotalCount)
	s.Empty(page.NextLink, "a complete page should carry no continuation link")
}

func (s *ServerSuite) TestListChildrenPaging() {
	for i := 0; i < 5; i++ {
		s.gateway.SeedFile("c1", fmt.Sprintf("file-%d.txt", i), "text/plain", []byte("x"))
	}

	resp := s.do(http.MethodGet, "/api/containers/c1/children?top=2&skip=2", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var page listing.Page
	s.decodeBody(resp, &page)
	s.Require().Len(page.Items, 2)
	s.Equal(5, page.TotalCount)
	s.Equal("file-2.txt", page.Items[0].Name)
	s.Equal("file-3.txt", page.Items[1].Name)
	s.Contains(page.NextLink, "skip=4", "continuation should advance skip by top")
}

func (s *ServerSuite) TestListChildrenClampsOversizedTop() {
	s.gateway.SeedFile("c1", "only.txt", "text/plain", []byte("x"))

	resp := s.do(http.MethodGet, "/api/containers/c1/children?top=500", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode, "oversized top should clamp, not fail")

	var page listing.Page
	s.decodeBody(resp, &page)
	s.Len(page.Items, 1)
}

func (s *ServerSuite) TestListChildrenUpstreamFailure() {
	s.gateway.ListError = fmt.Errorf("%w: throttled", drivegate.ErrUpstreamFailure)

	resp := s.do(http.MethodGet, "/api/containers/c1/children", nil, nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadGateway, resp.StatusCode)
}

func (s *ServerSuite) TestSmallUpload() {
	resp := s.do(http.MethodPut, "/api/containers/c1/files/docs/report.txt", []byte("hello"), nil)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var item drivegate.Item
	s.decodeBody(resp, &item)
	s.Equal("report.txt", item.Name)
	s.Equal(int64(5), item.SizeOrZero())

	content, ok := s.gateway.Content(item.ID)
	s.Require().True(ok, "upload should have stored content")
	s.Equal([]byte("hello"), content)
}

func (s *ServerSuite) TestSmallUploadEmptyBody() {
	resp := s.do(http.MethodPut, "/api/containers/c1/files/empty.txt", []byte{}, nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode, "empty bodies are rejected before the upstream call")
}

func (s *ServerSuite) TestSmallUploadTraversalPath() {
	resp := s.do(http.MethodPut, "/api/containers/c1/files/../escape.txt", []byte("x"), nil)
	defer func() { _ = resp.Body.Close() }()
	// the mux may collapse the dot segment before routing; either way the
	// request must not reach the gateway as a traversal
	s.Contains([]int{http.StatusBadRequest, http.StatusNotFound, http.StatusMovedPermanently}, resp.StatusCode)
}

func (s *ServerSuite) TestSmallUploadOverLimit() {
	gateway := mocks.NewGateway()
	srv := New(gateway, upload.NewMemoryStore(), WithSmallUploadLimit(16))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/containers/c1/files/big.bin",
		bytes.NewReader(bytes.Repeat([]byte{0xAB}, 64)))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := ts.Client().Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func (s *ServerSuite) createSession(path string) string {
	resp := s.do(http.MethodPost, "/api/drives/d1/upload-session?path="+path, nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "session creation should succeed")

	var body uploadSessionResponse
	s.decodeBody(resp, &body)
	s.Require().NotEmpty(body.UploadURL)
	s.Require().NotEmpty(body.ExpirationDateTime)
	return body.UploadURL
}

func (s *ServerSuite) putChunk(handle, contentRange string, payload []byte) *http.Response {
	return s.do(http.MethodPut, "/api/upload-session/chunk", payload, map[string]string{
		"Upload-Session-Url": handle,
		"Content-Range":      contentRange,
	})
}

func (s *ServerSuite) TestCreateUploadSessionRequiresPath() {
	resp := s.do(http.MethodPost, "/api/drives/d1/upload-session", nil, nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestChunkedUploadTwoChunks() {
	const chunk = 8 * 1024 * 1024
	const total = 2 * chunk
	handle := s.createSession("/big.bin")

	first := s.putChunk(handle, fmt.Sprintf("bytes 0-%d/%d", chunk-1, total),
		bytes.Repeat([]byte{0x01}, chunk))
	_ = first.Body.Close()
	s.Equal(http.StatusAccepted, first.StatusCode, "a non-final chunk should be accepted")

	second := s.putChunk(handle, fmt.Sprintf("bytes %d-%d/%d", chunk, total-1, total),
		bytes.Repeat([]byte{0x02}, chunk))
	s.Equal(http.StatusCreated, second.StatusCode, "the final chunk of a new item should report creation")

	var item drivegate.Item
	s.decodeBody(second, &item)
	s.Equal(int64(total), item.SizeOrZero())

	content, ok := s.gateway.Content(item.ID)
	s.Require().True(ok)
	s.Len(content, total)
	s.Equal(byte(0x01), content[0])
	s.Equal(byte(0x02), content[total-1])
	s.Equal(0, s.gateway.SessionCount(), "completion should close the upstream session")
}

func (s *ServerSuite) TestChunkedUploadReplacesExisting() {
	const size = 8 * 1024 * 1024
	s.gateway.SeedFile("d1", "big.bin", "application/octet-stream", []byte("old"))
	handle := s.createSession("/big.bin")

	resp := s.putChunk(handle, fmt.Sprintf("bytes 0-%d/%d", size-1, size),
		bytes.Repeat([]byte{0x03}, size))
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusOK, resp.StatusCode, "replacing an existing item should not report creation")
}

func (s *ServerSuite) TestChunkTooSmall() {
	handle := s.createSession("/big.bin")

	resp := s.putChunk(handle, "bytes 0-1048575/16777216", bytes.Repeat([]byte{0x01}, 1024*1024))
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode, "an undersized non-final chunk is a client error")
}

func (s *ServerSuite) TestChunkTooLarge() {
	const size = 11 * 1024 * 1024
	handle := s.createSession("/big.bin")

	resp := s.putChunk(handle, fmt.Sprintf("bytes 0-%d/%d", size-1, size),
		bytes.Repeat([]byte{0x01}, size))
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func (s *ServerSuite) TestChunkBodyCappedAtMaxSize() {
	handle := s.createSession("/big.bin")

	// The declared range is fine; the body itself is one byte over the
	// maximum and must be refused without being buffered in full.
	resp := s.putChunk(handle, "bytes 0-8388607/16777216",
		bytes.Repeat([]byte{0x01}, upload.MaxChunkSize+1))
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
}

func (s *ServerSuite) TestChunkEmptyBody() {
	handle := s.createSession("/big.bin")

	resp := s.putChunk(handle, "bytes 0-0/1", nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestChunkInvalidContentRange() {
	handle := s.createSession("/big.bin")

	resp := s.putChunk(handle, "bytes total garbage", []byte("x"))
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestChunkMissingHeaders() {
	resp := s.do(http.MethodPut, "/api/upload-session/chunk", []byte("x"), nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) seedContent(size int) drivegate.Item {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return s.gateway.SeedFile("d1", "data.bin", "application/octet-stream", content)
}

func (s *ServerSuite) TestDownloadFull() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil, nil)
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("bytes", resp.Header.Get("Accept-Ranges"))
	s.Equal(`"`+item.ETag+`"`, resp.Header.Get("ETag"))

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Len(body, 4096)
}

func (s *ServerSuite) TestDownloadRange() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil,
		map[string]string{"Range": "bytes=0-1023"})
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusPartialContent, resp.StatusCode)
	s.Equal("bytes 0-1023/4096", resp.Header.Get("Content-Range"))

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Len(body, 1024)
}

func (s *ServerSuite) TestDownloadOpenEndedRange() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil,
		map[string]string{"Range": "bytes=4000-"})
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusPartialContent, resp.StatusCode)
	s.Equal("bytes 4000-4095/4096", resp.Header.Get("Content-Range"))
}

func (s *ServerSuite) TestDownloadUnsatisfiableRange() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil,
		map[string]string{"Range": "bytes=9999-"})
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	s.Equal("bytes */4096", resp.Header.Get("Content-Range"))
}

func (s *ServerSuite) TestDownloadMalformedRange() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil,
		map[string]string{"Range": "rows=0-10"})
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestDownloadNotModified() {
	item := s.seedContent(4096)

	resp := s.do(http.MethodGet, "/api/drives/d1/items/"+item.ID+"/content", nil,
		map[string]string{"If-None-Match": `"` + item.ETag + `"`})
	defer func() { _ = resp.Body.Close() }()

	s.Equal(http.StatusNotModified, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Empty(body, "a 304 response carries no body")
}

func (s *ServerSuite) TestDownloadNotFound() {
	resp := s.do(http.MethodGet, "/api/drives/d1/items/missing/content", nil, nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerSuite) TestUpdateItemRename() {
	item := s.gateway.SeedFile("d1", "old.txt", "text/plain", []byte("x"))

	body := []byte(`{"name":"new.txt"}`)
	resp := s.do(http.MethodPatch, "/api/drives/d1/items/"+item.ID, body, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var updated drivegate.Item
	s.decodeBody(resp, &updated)
	s.Equal("new.txt", updated.Name)
	s.NotEqual(item.ETag, updated.ETag, "a rename should refresh the etag")
}

func (s *ServerSuite) TestUpdateItemEmptyChanges() {
	item := s.gateway.SeedFile("d1", "old.txt", "text/plain", []byte("x"))

	resp := s.do(http.MethodPatch, "/api/drives/d1/items/"+item.ID, []byte(`{}`), nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestUpdateItemInvalidName() {
	item := s.gateway.SeedFile("d1", "old.txt", "text/plain", []byte("x"))

	resp := s.do(http.MethodPatch, "/api/drives/d1/items/"+item.ID,
		[]byte(`{"name":"bad/name.txt"}`), nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestUpdateItemNotFound() {
	resp := s.do(http.MethodPatch, "/api/drives/d1/items/missing",
		[]byte(`{"name":"new.txt"}`), nil)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerSuite) TestDeleteItem() {
	item := s.gateway.SeedFile("d1", "doomed.txt", "text/plain", []byte("x"))

	resp := s.do(http.MethodDelete, "/api/drives/d1/items/"+item.ID, nil, nil)
	_ = resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	again := s.do(http.MethodDelete, "/api/drives/d1/items/"+item.ID, nil, nil)
	defer func() { _ = again.Body.Close() }()
	s.Equal(http.StatusNotFound, again.StatusCode, "a second delete should report the item gone")
}

func (s *ServerSuite) TestProblemResponsesAreProblemJSON() {
	resp := s.do(http.MethodGet, "/api/drives/d1/items/missing/content", nil, nil)
	defer func() { _ = resp.Body.Close() }()

	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))

	var p struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&p))
	s.Equal(http.StatusNotFound, p.Status)
	s.NotEmpty(p.Title)
}

func (s *ServerSuite) TestBearerTokenCaseInsensitive() {
	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/api/containers/c1/children", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "bearer "+strings.ToUpper(testToken))

	resp, err := s.ts.Client().Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusOK, resp.StatusCode, "the Bearer scheme is matched case-insensitively")
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

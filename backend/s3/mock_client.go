package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// mockClient is an in-memory Client used by the unit tests. It models just
// enough of S3 for the gateway: objects, multipart uploads, range reads, and
// the error codes the gateway maps.
type mockClient struct {
	mu         sync.Mutex
	objects    map[string][]byte // "bucket/key" -> content
	modified   map[string]time.Time
	uploads    map[string]map[int32][]byte // uploadID -> partNumber -> content
	uploadDest map[string]string           // uploadID -> "bucket/key"
	nextUpload int
	now        time.Time

	completeErr error // injected CompleteMultipartUpload failure
}

func newMockClient() *mockClient {
	return &mockClient{
		objects:    make(map[string][]byte),
		modified:   make(map[string]time.Time),
		uploads:    make(map[string]map[int32][]byte),
		uploadDest: make(map[string]string),
		now:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func objKey(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

func mockETag(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf(`"%x"`, sum[:8])
}

func (c *mockClient) seed(bucket, key string, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[bucket+"/"+key] = content
	c.modified[bucket+"/"+key] = c.now
	c.now = c.now.Add(time.Minute)
}

func (c *mockClient) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.objects[objKey(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	modified := c.modified[objKey(in.Bucket, in.Key)]
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String("application/octet-stream"),
		ETag:          aws.String(mockETag(content)),
		LastModified:  aws.Time(modified),
	}, nil
}

func (c *mockClient) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.objects[objKey(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	if in.Range != nil {
		spec := strings.TrimPrefix(aws.ToString(in.Range), "bytes=")
		startStr, endStr, _ := strings.Cut(spec, "-")
		start, _ := strconv.ParseInt(startStr, 10, 64)
		if start >= int64(len(content)) {
			return nil, &smithy.GenericAPIError{Code: "InvalidRange"}
		}
		end := int64(len(content)) - 1
		if endStr != "" {
			if e, err := strconv.ParseInt(endStr, 10, 64); err == nil && e < end {
				end = e
			}
		}
		content = content[start : end+1]
	}

	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(content)),
		ContentLength: aws.Int64(int64(len(content))),
	}, nil
}

func (c *mockClient) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	content, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.seed(aws.ToString(in.Bucket), aws.ToString(in.Key), content)
	return &awss3.PutObjectOutput{ETag: aws.String(mockETag(content))}, nil
}

func (c *mockClient) CopyObject(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	c.mu.Lock()
	source, err := urlUnescape(aws.ToString(in.CopySource))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	content, ok := c.objects[source]
	c.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	c.seed(aws.ToString(in.Bucket), aws.ToString(in.Key), content)
	return &awss3.CopyObjectOutput{}, nil
}

func (c *mockClient) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, objKey(in.Bucket, in.Key))
	delete(c.modified, objKey(in.Bucket, in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (c *mockClient) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range c.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		content := c.objects[k]
		modified := c.modified[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(strings.TrimPrefix(k, prefix)),
			Size:         aws.Int64(int64(len(content))),
			ETag:         aws.String(mockETag(content)),
			LastModified: aws.Time(modified),
		})
	}
	return out, nil
}

func (c *mockClient) CreateMultipartUpload(_ context.Context, in *awss3.CreateMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextUpload++
	id := fmt.Sprintf("upload-%04d", c.nextUpload)
	c.uploads[id] = make(map[int32][]byte)
	c.uploadDest[id] = objKey(in.Bucket, in.Key)
	return &awss3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (c *mockClient) UploadPart(_ context.Context, in *awss3.UploadPartInput, _ ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	content, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	parts, ok := c.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
	}
	parts[aws.ToInt32(in.PartNumber)] = content
	return &awss3.UploadPartOutput{ETag: aws.String(mockETag(content))}, nil
}

func (c *mockClient) ListParts(_ context.Context, in *awss3.ListPartsInput, _ ...func(*awss3.Options)) (*awss3.ListPartsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts, ok := c.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
	}

	numbers := make([]int32, 0, len(parts))
	for n := range parts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	out := &awss3.ListPartsOutput{IsTruncated: aws.Bool(false)}
	for _, n := range numbers {
		out.Parts = append(out.Parts, types.Part{
			PartNumber: aws.Int32(n),
			Size:       aws.Int64(int64(len(parts[n]))),
			ETag:       aws.String(mockETag(parts[n])),
		})
	}
	return out, nil
}

func (c *mockClient) CompleteMultipartUpload(_ context.Context, in *awss3.CompleteMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	c.mu.Lock()
	if c.completeErr != nil {
		c.mu.Unlock()
		return nil, c.completeErr
	}
	id := aws.ToString(in.UploadId)
	parts, ok := c.uploads[id]
	if !ok {
		c.mu.Unlock()
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
	}
	dest := c.uploadDest[id]

	var content []byte
	for _, p := range in.MultipartUpload.Parts {
		content = append(content, parts[aws.ToInt32(p.PartNumber)]...)
	}
	delete(c.uploads, id)
	delete(c.uploadDest, id)
	c.mu.Unlock()

	bucket, key, _ := strings.Cut(dest, "/")
	c.seed(bucket, key, content)
	return &awss3.CompleteMultipartUploadOutput{ETag: aws.String(mockETag(content))}, nil
}

func (c *mockClient) AbortMultipartUpload(_ context.Context, in *awss3.AbortMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.uploads, aws.ToString(in.UploadId))
	delete(c.uploadDest, aws.ToString(in.UploadId))
	return &awss3.AbortMultipartUploadOutput{}, nil
}

// urlUnescape reverses the CopySource encoding the gateway applies.
func urlUnescape(s string) (string, error) {
	return url.PathUnescape(s)
}

var _ Client = (*mockClient)(nil)

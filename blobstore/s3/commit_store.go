package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/strataseq/cline/blobstore"
)

// CurrentName is the virtual blob holding the catalog path of the most
// recently published run.
const CurrentName = "LATEST"

// ErrConcurrentPublish is returned when another writer published a run
// between read and commit.
var ErrConcurrentPublish = errors.New("s3: concurrent run publish detected")

// DynamoDBClient is the subset of the DynamoDB API the commit store
// depends on.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore is an S3-backed BlobStore whose LATEST pointer advances
// through DynamoDB conditional writes. Run artifacts (matrices, report
// tables) land in S3 as ordinary blobs; publishing a run writes its
// catalog path under a strictly increasing version, so concurrent
// publishers cannot silently overwrite each other.
//
// Table schema:
//   - Partition key: base_uri (string) - the s3://bucket/prefix of the store
//   - Sort key: version (number) - monotonically increasing publish version
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name cline-runs \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddb       DynamoDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a CommitStore over an existing S3 store.
// baseURI (e.g. "s3://bucket/prefix") is the DynamoDB partition key.
func NewCommitStore(store *Store, ddb DynamoDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob. Opening CurrentName resolves the latest published
// catalog path from DynamoDB and returns it as a small virtual blob.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == CurrentName {
		version, runPath, err := s.latest(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return &pointerBlob{content: []byte(runPath)}, nil
	}
	return s.store.Open(ctx, name)
}

// Put writes a blob. Writing CurrentName publishes a new run version
// through a conditional DynamoDB write.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == CurrentName {
		return s.publish(ctx, string(data))
	}
	return s.store.Put(ctx, name, data)
}

// Create passes through to S3; CurrentName cannot be streamed.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == CurrentName {
		return nil, fmt.Errorf("s3: %s must be written with Put", CurrentName)
	}
	return s.store.Create(ctx, name)
}

// Delete passes through to S3. Published versions in DynamoDB are an
// append-only history and are not deleted here.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List passes through to S3.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// latest returns the highest committed version and its run path, or
// (0, "", nil) when nothing has been published yet.
func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query run versions: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: malformed version attribute in run table")
	}
	pathAttr, ok := item["run_path"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: malformed run_path attribute in run table")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse run version: %w", err)
	}

	return version, pathAttr.Value, nil
}

// publish commits runPath under version latest+1. The conditional
// expression rejects the write when another publisher claimed the same
// version first.
func (s *CommitStore) publish(ctx context.Context, runPath string) error {
	current, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
			"version":  &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"run_path": &ddbtypes.AttributeValueMemberS{Value: runPath},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentPublish
		}
		return fmt.Errorf("s3: commit run version: %w", err)
	}

	return nil
}

// pointerBlob serves the resolved LATEST content from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.content)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := off + length
	if end > int64(len(b.content)) {
		end = int64(len(b.content))
	}
	return io.NopCloser(bytes.NewReader(b.content[off:end])), nil
}

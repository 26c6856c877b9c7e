package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// ListAllContent returns all content IDs under the configured key prefix.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//
// Returns:
//   - []metadata.ContentID: List of all content IDs
//   - error: Returns error for S3 failures or context cancellation
func (s *S3ContentStore) ListAllContent(ctx context.Context) ([]metadata.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var contentIDs []metadata.ContentID

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}

			id := strings.TrimPrefix(*obj.Key, s.keyPrefix)
			// Keys below a nested prefix belong to another store
			if id == "" || strings.Contains(id, "/") {
				continue
			}
			contentIDs = append(contentIDs, metadata.ContentID(id))
		}
	}

	return contentIDs, nil
}

// DeleteBatch removes multiple content items.
//
// S3 supports batch deletes of up to 1000 objects at a time. This
// implementation automatically chunks larger batches.
//
// Returns:
//   - map[metadata.ContentID]error: Map of failed deletions (empty = all succeeded)
//   - error: Returns error for context cancellation
func (s *S3ContentStore) DeleteBatch(ctx context.Context, ids []metadata.ContentID) (map[metadata.ContentID]error, error) {
	failures := make(map[metadata.ContentID]error)

	// S3 allows max 1000 objects per delete request
	const maxBatchSize = 1000

	for i := 0; i < len(ids); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(ids); j++ {
				failures[ids[j]] = err
			}
			return failures, err
		}

		end := min(i+maxBatchSize, len(ids))
		batch := ids[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, id := range batch {
			objects[j] = types.ObjectIdentifier{
				Key: aws.String(s.getObjectKey(id)),
			}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			for _, id := range batch {
				failures[id] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}

			id := metadata.ContentID(strings.TrimPrefix(*deleteErr.Key, s.keyPrefix))
			errMsg := "unknown error"
			if deleteErr.Message != nil {
				errMsg = *deleteErr.Message
			}
			failures[id] = fmt.Errorf("delete failed: %s", errMsg)
		}
	}

	return failures, nil
}

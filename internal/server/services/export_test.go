package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	sc "github.com/dmitrijs2005/yieldvault/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportService() *ExportService {
	return NewExportService(&sc.Config{
		S3Region:                  "us-east-1",
		S3RootUser:                "minioadmin",
		S3RootPassword:            "minioadmin",
		S3BaseEndpoint:            "http://127.0.0.1:9000",
		S3Bucket:                  "exports",
		ExportURLValidityDuration: 10 * time.Minute,
	})
}

func stubS3(t *testing.T) {
	t.Helper()
	origLoad, origNewS3, origNewPre, origPut := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestExportStorageKey(t *testing.T) {
	at := time.Date(2026, 7, 4, 23, 0, 0, 0, time.UTC)
	key := ExportStorageKey(lowerAddr, at)
	assert.True(t, strings.HasPrefix(key, "exports/"+lowerAddr+"/2026/07/04/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
	assert.NotEqual(t, key, ExportStorageKey(lowerAddr, at))
}

func TestGetPresignClient_AppliesConfig(t *testing.T) {
	stubS3(t)
	svc := newExportService()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	pc, err := svc.getPresignClient(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = svc.getPresignClient(context.Background())
	require.EqualError(t, err, "load-fail")
}

func TestPresignUpload(t *testing.T) {
	stubS3(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}

	svc := newExportService()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	var gotBucket, gotKey string
	var gotExpiry time.Duration
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = *in.Bucket, *in.Key
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		gotExpiry = po.Expires
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/put"}, nil
	}

	exp, err := svc.PresignUpload(context.Background(), mixedAddr)
	require.NoError(t, err)
	assert.Equal(t, "exports", gotBucket)
	assert.Equal(t, gotKey, exp.Key)
	assert.True(t, strings.HasPrefix(exp.Key, "exports/"+lowerAddr+"/2026/01/01/"))
	assert.Equal(t, "https://s3.local/put", exp.URL)
	assert.Equal(t, 10*time.Minute, gotExpiry)
	assert.Equal(t, now.Add(10*time.Minute), exp.ExpiresAt)

	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}
	_, err = svc.PresignUpload(context.Background(), lowerAddr)
	require.EqualError(t, err, "presign-fail")

	_, err = svc.PresignUpload(context.Background(), "bad")
	require.ErrorIs(t, err, common.ErrInvalidAddress)
}

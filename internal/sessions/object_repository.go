package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig locates the S3-compatible bucket holding the session object.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// ObjectRepository stores the session as one JSON object in a MinIO/S3 bucket,
// so several machines can share a login.
type ObjectRepository struct {
	client *minio.Client
	bucket string
	object string
}

// NewObjectRepository connects to the endpoint and makes sure the bucket exists.
func NewObjectRepository(ctx context.Context, cfg ObjectConfig, key string) (*ObjectRepository, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: endpoint and bucket are required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		// MakeBucket fails on an existing bucket
		exists, xerr := mc.BucketExists(ctx, cfg.Bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("minio bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &ObjectRepository{client: mc, bucket: cfg.Bucket, object: objectName(key)}, nil
}

func objectName(key string) string {
	if key == "" {
		key = DefaultKey
	}
	return key + ".json"
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (r *ObjectRepository) Load(ctx context.Context) (*Session, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, r.object, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, err
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, nil
}

func (r *ObjectRepository) Save(ctx context.Context, s *Session) error {
	if isEmpty(s) {
		err := r.client.RemoveObject(ctx, r.bucket, r.object, minio.RemoveObjectOptions{})
		if err != nil && !isNoSuchKey(err) {
			return err
		}
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.client.PutObject(ctx, r.bucket, r.object, bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

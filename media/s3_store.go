package media

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/moastrends/newsroom/utils"
	"github.com/pkg/errors"
)

const defaultS3Region = "us-west-1"

// S3Store keeps uploaded assets in an S3 bucket fronted by a CDN. The object
// key is derived from the file name so re-uploading the same file overwrites
// instead of accumulating copies.
type S3Store struct {
	bucket    string
	urlPrefix string
	uploader  *s3manager.Uploader
}

// NewS3Store reads S3_MEDIA_BUCKET and S3_MEDIA_URL_PREFIX from the
// environment. Credentials come from the standard AWS chain.
func NewS3Store() (*S3Store, error) {
	bucket := os.Getenv("S3_MEDIA_BUCKET")
	if bucket == "" {
		return nil, errors.New("S3_MEDIA_BUCKET must be set")
	}
	urlPrefix := os.Getenv("S3_MEDIA_URL_PREFIX")
	if urlPrefix == "" {
		urlPrefix = "https://" + bucket + ".s3.amazonaws.com/"
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(defaultS3Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}

	return &S3Store{
		bucket:    bucket,
		urlPrefix: urlPrefix,
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

func (s *S3Store) UploadImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	return s.upload(ctx, "image/", filename, body)
}

func (s *S3Store) UploadVideo(ctx context.Context, filename string, body io.Reader) (string, error) {
	return s.upload(ctx, "video/", filename, body)
}

func (s *S3Store) upload(ctx context.Context, keyPrefix, filename string, body io.Reader) (string, error) {
	key, err := s.generateKey(keyPrefix, filename)
	if err != nil {
		return "", err
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s to s3", filename)
	}
	return s.urlPrefix + key, nil
}

func (s *S3Store) generateKey(keyPrefix, filename string) (string, error) {
	hash, err := utils.TextToMd5Hash(filename)
	if err != nil {
		return "", errors.Wrap(err, "hash file name")
	}
	return keyPrefix + hash + utils.GetUrlExtNameWithDot(filename), nil
}

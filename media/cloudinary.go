package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/moastrends/newsroom/utils"
	"github.com/pkg/errors"
)

const (
	defaultCloudinaryBase = "https://api.cloudinary.com/v1_1"
	uploadTimeout         = 30 * time.Second
)

// CloudinaryStore uploads assets to Cloudinary through its unsigned upload
// endpoint. Every upload names the configured preset, which is how unsigned
// uploads are authorized.
type CloudinaryStore struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	client       *http.Client
	retry        utils.RetryConfig
}

// NewCloudinaryStore reads CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET
// from the environment.
func NewCloudinaryStore() (*CloudinaryStore, error) {
	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	preset := os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	if cloudName == "" || preset == "" {
		return nil, errors.New("cloudinary cloud name and upload preset must be set")
	}
	return &CloudinaryStore{
		cloudName:    cloudName,
		uploadPreset: preset,
		baseURL:      defaultCloudinaryBase,
		client:       &http.Client{Timeout: uploadTimeout},
		retry:        utils.DefaultRetry,
	}, nil
}

func (c *CloudinaryStore) UploadImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	return c.upload(ctx, "image", filename, body)
}

func (c *CloudinaryStore) UploadVideo(ctx context.Context, filename string, body io.Reader) (string, error) {
	return c.upload(ctx, "video", filename, body)
}

func (c *CloudinaryStore) upload(ctx context.Context, resource, filename string, body io.Reader) (string, error) {
	// Buffer once so each retry attempt can resend the same payload.
	payload, err := ioutil.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, "read upload body")
	}

	form := &bytes.Buffer{}
	writer := multipart.NewWriter(form)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if _, err := part.Write(payload); err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if err := writer.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "build upload form")
	}

	endpoint := c.baseURL + "/" + c.cloudName + "/" + resource + "/upload"
	encoded := form.Bytes()

	var secureUrl string
	err = utils.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		res, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return errors.Errorf("upload returned status %d", res.StatusCode)
		}

		var parsed struct {
			SecureUrl string `json:"secure_url"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			return errors.Wrap(err, "decode upload response")
		}
		if parsed.SecureUrl == "" {
			return errors.New("upload response carries no secure_url")
		}
		secureUrl = parsed.SecureUrl
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s %s", resource, filename)
	}
	return secureUrl, nil
}

package blob

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Store wraps the Cloud Storage bucket holding uploaded consent PDFs and the
// OCR output blobs.
type Store struct {
	client *storage.Client
}

func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// List returns object names under the prefix, in bucket listing order.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string

	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.New("failed to list objects: " + err.Error())
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

func (s *Store) Download(ctx context.Context, bucket, name string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, errors.New("failed to open object: " + err.Error())
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func (s *Store) Upload(ctx context.Context, bucket, name string, data io.Reader) error {
	writer := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(writer, data); err != nil {
		writer.Close()
		return errors.New("failed to write object: " + err.Error())
	}
	return writer.Close()
}

func (s *Store) Delete(ctx context.Context, bucket, name string) error {
	return s.client.Bucket(bucket).Object(name).Delete(ctx)
}

// Package attachments stores files attached to citizen records under
// citizens/{id}/files/{name}.
package attachments

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/records"
)

// File is an attachment as listed to clients.
type File struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	FullPath string `json:"full_path"`
}

type RecordGetter interface {
	Get(ctx context.Context, id string) (*records.Profile, error)
}

type Service struct {
	bucket    Bucket
	records   RecordGetter
	urlExpiry time.Duration
}

func NewService(bucket Bucket, citizens RecordGetter, urlExpiry time.Duration) *Service {
	return &Service{bucket: bucket, records: citizens, urlExpiry: urlExpiry}
}

func filesPrefix(citizenID string) string {
	return fmt.Sprintf("%s/%s/files/", records.CitizensCollection, citizenID)
}

// Upload stores a file for a saved citizen. Uploading a name that already
// exists replaces the file.
func (s *Service) Upload(ctx context.Context, citizenID, filename string, r io.Reader, size int64, contentType string) (*File, error) {
	if citizenID == "" {
		return nil, apperr.Validation("Save the record before attaching files.")
	}
	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}
	if _, err := s.records.Get(ctx, citizenID); err != nil {
		return nil, err
	}

	full := filesPrefix(citizenID) + name
	if err := s.bucket.Put(ctx, full, r, size, contentType); err != nil {
		return nil, apperr.Internal("Error uploading file.", err)
	}
	return s.file(ctx, full)
}

func (s *Service) List(ctx context.Context, citizenID string) ([]File, error) {
	if _, err := s.records.Get(ctx, citizenID); err != nil {
		return nil, err
	}
	objects, err := s.bucket.List(ctx, filesPrefix(citizenID))
	if err != nil {
		return nil, apperr.Internal("Error listing files.", err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })

	files := make([]File, 0, len(objects))
	for _, obj := range objects {
		f, err := s.file(ctx, obj.Path)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, nil
}

func (s *Service) Remove(ctx context.Context, citizenID, filename string) error {
	name, err := cleanName(filename)
	if err != nil {
		return err
	}
	if citizenID == "" || strings.Contains(citizenID, "/") {
		return apperr.NotFound("Record not found.")
	}
	if err := s.bucket.Remove(ctx, filesPrefix(citizenID)+name); err != nil {
		return apperr.Internal("Error removing file.", err)
	}
	return nil
}

func (s *Service) file(ctx context.Context, full string) (*File, error) {
	url, err := s.bucket.PresignedURL(ctx, full, s.urlExpiry)
	if err != nil {
		return nil, apperr.Internal("Error signing file URL.", err)
	}
	return &File{Name: path.Base(full), URL: url, FullPath: full}, nil
}

func cleanName(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", apperr.ValidationFields("invalid input", map[string]string{"name": "is not a valid file name"})
	}
	return name, nil
}

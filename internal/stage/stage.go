/*
Copyright © 2026 the dasymap authors.
This file is part of dasymap.

dasymap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

dasymap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with dasymap.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package stage copies remote pipeline inputs into a temporary
// directory.
package stage

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap/internal/hash"
)

// MaxRetries is the number of times a failed download is retried.
const MaxRetries = 5

// Stager copies inputs into a temporary directory that is removed by
// Cleanup.
type Stager struct {
	dir    string
	log    logrus.FieldLogger
	client *http.Client
}

// New creates a Stager with a new temporary directory.
func New(log logrus.FieldLogger) (*Stager, error) {
	dir, err := ioutil.TempDir("", "dasymap")
	if err != nil {
		return nil, fmt.Errorf("stage: creating temporary directory: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stager{dir: dir, log: log, client: http.DefaultClient}, nil
}

// Dir returns the temporary directory.
func (s *Stager) Dir() string { return s.dir }

// Cleanup removes the temporary directory and everything in it.
func (s *Stager) Cleanup() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("stage: removing %s: %w", s.dir, err)
	}
	return nil
}

// Fetch makes the input at p available locally and returns the local
// path. Existing local files are used in place. http(s) URLs are
// downloaded, and gs://, s3:// and file:// URLs are read from blob
// storage. The .dbf and .shx files of shapefiles are fetched along with
// the .shp file, and so is the .prj file if it exists.
func (s *Stager) Fetch(ctx context.Context, p string) (string, error) {
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	var get func(ctx context.Context, name string) (io.ReadCloser, error)
	var name string
	switch {
	case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
		get, name = s.getHTTP, p
	case IsBlob(p):
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("stage: %s: %w", p, err)
		}
		bucket, key, err := openBucket(ctx, u)
		if err != nil {
			return "", fmt.Errorf("stage: %s: %w", p, err)
		}
		get = func(ctx context.Context, key string) (io.ReadCloser, error) {
			return bucket.NewReader(ctx, key)
		}
		name = key
	default:
		return "", fmt.Errorf("stage: input %s does not exist", p)
	}

	// Inputs with the same base name from different places must not
	// overwrite each other.
	dir := filepath.Join(s.dir, hash.Hash(p))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("stage: %w", err)
	}
	names := expandShp(name)
	for i, n := range names {
		local := filepath.Join(dir, path.Base(n))
		optional := path.Ext(n) == ".prj"
		err := s.fetchFile(ctx, get, n, local, !optional)
		if err != nil && optional {
			s.log.WithFields(logrus.Fields{"file": n}).Warnf("stage: skipping missing projection file: %v", err)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stage: fetching %s: %w", n, err)
		}
		if i == 0 {
			s.log.WithFields(logrus.Fields{"file": p, "path": local}).Info("staged input")
		}
	}
	return filepath.Join(dir, path.Base(names[0])), nil
}

// permanentError is a failure that is not worth retrying.
type permanentError struct{ error }

// fetchFile copies the input name to the local file, retrying transient
// failures if retry is true.
func (s *Stager) fetchFile(ctx context.Context, get func(context.Context, string) (io.ReadCloser, error), name, local string, retry bool) error {
	var permanent error
	op := func() error {
		r, err := get(ctx, name)
		if err != nil {
			if pe, ok := err.(permanentError); ok {
				permanent = pe.error
				return nil
			}
			return err
		}
		defer r.Close()
		w, err := os.Create(local)
		if err != nil {
			permanent = err
			return nil
		}
		if _, err := io.Copy(w, r); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}
	if !retry {
		if err := op(); err != nil {
			return err
		}
		return permanent
	}
	b := backoff.WithMaxRetries(backoff.WithContext(backoff.NewExponentialBackOff(), ctx), MaxRetries)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		s.log.WithFields(logrus.Fields{"file": name}).Warnf("%v: retrying in %v", err, d)
	})
	if err != nil {
		return err
	}
	return permanent
}

func (s *Stager) getHTTP(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, permanentError{err}
	}
	resp, err := s.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("%s: %s", u, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, permanentError{err}
		}
		return nil, err
	}
	return resp.Body, nil
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(p string) bool {
	return strings.HasPrefix(p, "gs://") || strings.HasPrefix(p, "s3://") || strings.HasPrefix(p, "file://")
}

// openBucket opens the blob storage bucket holding the object at u and
// returns the bucket and the key of the object. For the "file" provider,
// the bucket is the directory holding the file.
func openBucket(ctx context.Context, u *url.URL) (*blob.Bucket, string, error) {
	switch u.Scheme {
	case "file":
		p := filepath.FromSlash(u.Host + u.Path)
		b, err := fileblob.NewBucket(filepath.Dir(p))
		return b, filepath.Base(p), err
	case "gs":
		b, err := gsBucket(ctx, u.Host)
		return b, strings.TrimPrefix(u.Path, "/"), err
	case "s3":
		b, err := s3Bucket(ctx, u.Host)
		return b, strings.TrimPrefix(u.Path, "/"), err
	default:
		return nil, "", fmt.Errorf("invalid blob provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It uses the AWS_REGION,
// AWS_ACCESS_KEY_ID, and AWS_SECRET_ACCESS_KEY environment variables.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-central-1"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// expandShp returns the names of the files that make up the shapefile
// filename, or only filename if it is not a shapefile.
func expandShp(filename string) []string {
	o := []string{filename}
	ext := path.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, strings.TrimSuffix(filename, ext)+newExt)
	}
	return o
}

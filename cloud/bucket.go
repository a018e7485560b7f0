/*
Copyright © 2024 the copernicusmarine toolbox authors.
This file is part of the copernicusmarine toolbox.

The copernicusmarine toolbox is free software: you can redistribute it
and/or modify it under the terms of the GNU General Public License as
published by the Free Software Foundation, either version 3 of the License,
or (at your option) any later version.

The copernicusmarine toolbox is distributed in the hope that it will be
useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the copernicusmarine toolbox.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cloud opens blob storage buckets: the S3-compatible stores
// holding the original files of the datasets, and the remote output
// directories of subsets.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// IsBlob returns whether the given location represents blob storage
// (i.e., if it starts with 'gs://', 's3://', or 'file://').
func IsBlob(loc string) bool {
	return strings.HasPrefix(loc, "gs://") || strings.HasPrefix(loc, "s3://") || strings.HasPrefix(loc, "file://")
}

// OpenBucket returns the blob storage bucket holding loc, along with the
// key prefix of loc within the bucket. The accepted locations are:
//
//	file:///dir            a local directory (e.g., for testing); the prefix is empty
//	gs://bucket/prefix     Google Cloud Storage
//	s3://bucket/prefix     AWS S3, with credentials from the environment
//	https://host/bucket/prefix
//	                       an S3-compatible endpoint accessed anonymously
func OpenBucket(ctx context.Context, loc string) (*blob.Bucket, string, error) {
	u, err := url.Parse(loc)
	if err != nil {
		return nil, "", fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	prefix := strings.Trim(u.Path, "/")
	var b *blob.Bucket
	switch u.Scheme {
	case "file":
		b, err = fileblob.OpenBucket(u.Host+u.Path, nil)
		prefix = ""
	case "gs":
		b, err = gsBucket(ctx, u.Host)
	case "s3":
		b, err = s3Bucket(ctx, u.Host)
	case "http", "https":
		parts := strings.SplitN(prefix, "/", 2)
		if parts[0] == "" {
			return nil, "", fmt.Errorf("cloud.OpenBucket: no bucket name in %s", loc)
		}
		prefix = ""
		if len(parts) == 2 {
			prefix = parts[1]
		}
		b, err = endpointBucket(ctx, u.Scheme+"://"+u.Host, parts[0])
	default:
		return nil, "", fmt.Errorf("cloud.OpenBucket: invalid provider %s", u.Scheme)
	}
	if err != nil {
		return nil, "", fmt.Errorf("cloud.OpenBucket: %s: %v", loc, err)
	}
	return b, prefix, nil
}

// ObjectURL returns the public URL of key in the bucket at loc, as
// given to OpenBucket.
func ObjectURL(loc, key string) string {
	u, err := url.Parse(loc)
	if err != nil {
		return key
	}
	switch u.Scheme {
	case "file":
		return "file://" + path.Join(u.Host+u.Path, key)
	case "http", "https":
		bucket := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
		return u.Scheme + "://" + u.Host + "/" + path.Join(bucket, key)
	default:
		return u.Scheme + "://" + path.Join(u.Host, key)
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
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	c := &aws.Config{
		Region:      aws.String(region()),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

// endpointBucket opens a public bucket of an S3-compatible service.
func endpointBucket(ctx context.Context, endpoint, name string) (*blob.Bucket, error) {
	c := &aws.Config{
		Region:           aws.String(region()),
		Endpoint:         aws.String(endpoint),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.AnonymousCredentials,
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

func region() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return "us-east-1"
}

package config

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the slice of the S3 API used to fetch a hosted allowlist.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ResolveAllowlist merges every configured allowlist source into one host
// list: inline hosts, then the local file, then the S3 object. The client is
// only required when AllowlistS3 is set.
func (c *Config) ResolveAllowlist(ctx context.Context, client ObjectGetter) ([]string, error) {
	hosts := append([]string(nil), c.AllowedHosts...)

	if c.AllowlistFile != "" {
		fromFile, err := readHostsFile(c.AllowlistFile)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, fromFile...)
	}

	if c.AllowlistS3 != "" {
		if client == nil {
			return nil, fmt.Errorf("config: allowlistS3 set but no S3 client available")
		}
		fromS3, err := readHostsS3(ctx, client, c.AllowlistS3)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, fromS3...)
	}

	return hosts, nil
}

// NewS3Client builds an S3 client for fetching the hosted allowlist.
// Credentials come from the standard AWS environment variables when set;
// otherwise the client is anonymous, which suffices for public objects.
func NewS3Client(region string) *s3.Client {
	opts := s3.Options{Region: region}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		sessionToken := os.Getenv("AWS_SESSION_TOKEN")
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     accessKey,
				SecretAccessKey: secretKey,
				SessionToken:    sessionToken,
				Source:          "environment",
			}, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}

	return s3.New(opts)
}

// ParseS3URI splits an s3://bucket/key URI.
func ParseS3URI(uri string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("config: %q is not an s3:// URI", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("config: %q must be s3://bucket/key", uri)
	}
	return bucket, key, nil
}

func readHostsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: allowlist file: %w", err)
	}
	defer f.Close()

	hosts, err := parseHostLines(f)
	if err != nil {
		return nil, fmt.Errorf("config: allowlist file %s: %w", path, err)
	}
	return hosts, nil
}

func readHostsS3(ctx context.Context, client ObjectGetter, uri string) ([]string, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("config: fetch %s: %w", uri, err)
	}
	defer out.Body.Close()

	hosts, err := parseHostLines(out.Body)
	if err != nil {
		return nil, fmt.Errorf("config: allowlist object %s: %w", uri, err)
	}
	return hosts, nil
}

// parseHostLines reads one hostname per line, skipping blank lines and
// '#' comments.
func parseHostLines(r io.Reader) ([]string, error) {
	var hosts []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

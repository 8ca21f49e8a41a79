package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// blobDownloader is the slice of *azblob.Client the source needs
type blobDownloader interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// AzureBlobSource reads screenshots stored as blobs in a single storage account
type AzureBlobSource struct {
	client   blobDownloader
	host     string
	maxBytes int64
}

// NewAzureBlobSource authenticates against accountName with a shared key
func NewAzureBlobSource(accountName string, accountKey string) (*AzureBlobSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		"https://"+blobHost(accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureBlobSource{client: client, host: blobHost(accountName), maxBytes: DefaultMaxImageBytes}, nil
}

// FetchImage accepts https://<account>.blob.core.windows.net/<container>/<blob path>
func (s *AzureBlobSource) FetchImage(ctx context.Context, blobURL string) ([]byte, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return nil, fmt.Errorf("invalid blob URL: %w", err)
	}
	// the shared key only grants access to our own account
	if !s.Serves(parsedURL.Hostname()) {
		return nil, fmt.Errorf("blob host %q is not account %q", parsedURL.Hostname(), s.host)
	}
	containerName, blobName, err := splitBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

func splitBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	parts := strings.SplitN(strings.TrimPrefix(parsedURL.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("blob URL must name a container and blob: %q", blobURL)
	}
	return parts[0], parts[1], nil
}

// Serves reports whether host is the configured account's blob endpoint
func (s *AzureBlobSource) Serves(host string) bool {
	return s.host != "" && strings.EqualFold(host, s.host)
}

func blobHost(accountName string) string {
	return strings.ToLower(accountName) + ".blob.core.windows.net"
}

// IsBlobHost reports whether host belongs to Azure blob storage
func IsBlobHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".blob.core.windows.net")
}

package conduit

import (
	"context"
	"encoding/base64"
)

// File covers file downloads.
type File struct {
	ep Endpoint
}

// NewFile returns the file module.
func NewFile(c *Client) *File {
	return &File{ep: NewEndpoint(c, "file")}
}

// Download returns the file content as the server sends it, base64 encoded.
func (f *File) Download(ctx context.Context, phid string) (Result, error) {
	return f.ep.Call(ctx, "download", Map(F("phid", String(phid))))
}

// DownloadBytes downloads a file and decodes its content.
func (f *File) DownloadBytes(ctx context.Context, phid string) ([]byte, error) {
	res, err := f.Download(ctx, phid)
	if err != nil {
		return nil, err
	}
	var encoded string
	if err := res.Decode(&encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, NewDecodeError("file.download", "file content is not base64", err)
	}
	return data, nil
}

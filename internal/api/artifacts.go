package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"observatory/internal/progress"
)

// Upload describes one artifact upload.
type Upload struct {
	// Path of the local file to send.
	Path string
	// Version label to send; empty omits the field.
	Version string
	// Promote asks the backend to make the upload the active artifact.
	Promote bool
	// OnProgress, if set, receives whole percentages (0-100) of the file
	// as it is streamed. It is called from the goroutine writing the body.
	OnProgress func(percent int)
}

// ListArtifacts returns the artifacts of a model.
func (c *Client) ListArtifacts(ctx context.Context, modelID ID) ([]Artifact, error) {
	arts := []Artifact{}
	if err := c.doJSON(ctx, "list artifacts", http.MethodGet, c.apipath("models", modelID.String(), "artifacts"), nil, &arts, messagesFor("listing artifacts")); err != nil {
		return nil, err
	}
	return arts, nil
}

// UploadArtifact streams a file to the backend as multipart/form-data and
// returns the artifact the backend recorded. It is a single attempt: a
// failure anywhere fails the whole upload. Transport failures satisfy
// errors.Is(err, ErrNetwork) and read "network error during upload".
func (c *Client) UploadArtifact(ctx context.Context, modelID ID, up Upload) (Artifact, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("open %s: %w", up.Path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Artifact{}, fmt.Errorf("stat %s: %w", up.Path, err)
	}
	if info.IsDir() {
		return Artifact{}, fmt.Errorf("%s is a directory", up.Path)
	}

	src := progress.NewReader(f, info.Size(), up.OnProgress)

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, src, filepath.Base(up.Path), up.Version, up.Promote))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.apipath("models", modelID.String(), "artifacts"), pr)
	if err != nil {
		return Artifact{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(ctx, "upload", req)
	if err != nil {
		return Artifact{}, err
	}
	defer resp.Body.Close()

	var art Artifact
	if err := decodeJSONResponse(resp, &art, messagesFor("uploading artifact")); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// writeUploadForm writes the file part followed by the version and promote
// fields, then closes the multipart writer.
func writeUploadForm(mw *multipart.Writer, src io.Reader, filename, version string, promote bool) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	if version != "" {
		if err := mw.WriteField("version", version); err != nil {
			return err
		}
	}
	if err := mw.WriteField("promote", strconv.FormatBool(promote)); err != nil {
		return err
	}
	return mw.Close()
}

// PromoteArtifact makes an artifact the active one for its model.
func (c *Client) PromoteArtifact(ctx context.Context, modelID, artifactID ID) (Artifact, error) {
	var art Artifact
	target := c.apipath("models", modelID.String(), "artifacts", artifactID.String(), "promote")
	if err := c.doJSON(ctx, "promote artifact", http.MethodPost, target, nil, &art, messagesFor("promoting artifact")); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// DeleteArtifact removes an artifact.
func (c *Client) DeleteArtifact(ctx context.Context, modelID, artifactID ID) error {
	target := c.apipath("models", modelID.String(), "artifacts", artifactID.String())
	return c.doJSON(ctx, "delete artifact", http.MethodDelete, target, nil, nil, messagesFor("deleting artifact"))
}

// DownloadActiveArtifact saves the model's active artifact into dir and
// returns the written path. fallbackName, normally the model's
// ActiveArtifact, is used when the server sends no filename.
func (c *Client) DownloadActiveArtifact(ctx context.Context, modelID ID, fallbackName, dir string) (string, error) {
	if fallbackName == "" {
		fallbackName = fmt.Sprintf("%s-active.bin", modelID)
	}
	return c.download(ctx, "download active artifact", c.ActiveDownloadURL(modelID), dir, fallbackName)
}

// DownloadArtifact saves a specific artifact into dir and returns the
// written path. fallbackName is used when the server sends no filename.
func (c *Client) DownloadArtifact(ctx context.Context, modelID, artifactID ID, fallbackName, dir string) (string, error) {
	if fallbackName == "" {
		fallbackName = fmt.Sprintf("%s-%s.bin", modelID, artifactID)
	}
	return c.download(ctx, "download artifact", c.ArtifactDownloadURL(modelID, artifactID), dir, fallbackName)
}

func (c *Client) download(ctx context.Context, op, target, dir, fallback string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp, messagesFor("downloading artifact")); err != nil {
		return "", err
	}

	name := safeFilename(filenameFromDisposition(resp.Header.Get("Content-Disposition")))
	if name == "" {
		name = safeFilename(fallback)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".part-*")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &NetworkError{Op: op, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write download file: %w", err)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save download: %w", err)
	}
	return dest, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// safeFilename strips any directory components a server might send.
func safeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}

package backend

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Subjects lists the subjects available to the user.
func (c *Client) Subjects(ctx context.Context, token string) ([]Subject, error) {
	var out []Subject
	if err := c.load(ctx, "subjects", pathSubjects, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadAudio sends the audio file as multipart form data and returns
// the created audio ID. The body is built in memory so the request carries
// a Content-Length.
func (c *Client) UploadAudio(ctx context.Context, token string, up Upload) (int64, error) {
	f, err := os.Open(up.AudioPath)
	if err != nil {
		return 0, errors.Wrap(err, "backend: open audio")
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writeUpload(mw, f, up); err != nil {
		return 0, errors.Wrap(err, "backend: encode upload")
	}

	resp, err := c.do(ctx, call{
		op:          "upload",
		method:      http.MethodPost,
		path:        pathUpload,
		token:       token,
		body:        bytes.NewReader(body.Bytes()),
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return 0, err
	}
	if resp, err = authorized(resp, "upload"); err != nil {
		return 0, err
	}
	if !success(resp.StatusCode) {
		status, reason := failure(resp)
		return 0, &UploadError{Status: status, Reason: reason}
	}
	var out uploadResponse
	if err := decode(resp, "upload", &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func writeUpload(mw *multipart.Writer, audio io.Reader, up Upload) error {
	part, err := mw.CreateFormFile("file", filepath.Base(up.AudioPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	fields := [][2]string{
		{"title", up.Title},
		{"description", up.Description},
		{"subject_id", strconv.FormatInt(up.SubjectID, 10)},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

// Generate requests content generation for an uploaded audio.
func (c *Client) Generate(ctx context.Context, token string, req GenerateRequest) (GenerateResult, error) {
	if req.InputType == "" {
		req.InputType = "audio"
	}
	resp, err := c.doJSON(ctx, "generate", http.MethodPost, pathGenerate, token, req)
	if err != nil {
		return GenerateResult{}, err
	}
	if resp, err = authorized(resp, "generate"); err != nil {
		return GenerateResult{}, err
	}
	if !success(resp.StatusCode) {
		status, reason := failure(resp)
		return GenerateResult{}, &GenerationError{Status: status, Reason: reason}
	}
	var out GenerateResult
	if err := decode(resp, "generate", &out); err != nil {
		return GenerateResult{}, err
	}
	return out, nil
}

// load GETs a JSON resource. Non-2xx answers become *LoadError.
func (c *Client) load(ctx context.Context, resource, path, token string, out any) error {
	resp, err := c.doJSON(ctx, resource, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	if resp, err = authorized(resp, resource); err != nil {
		return err
	}
	if !success(resp.StatusCode) {
		status, reason := failure(resp)
		return &LoadError{Resource: resource, Status: status, Reason: reason}
	}
	return decode(resp, resource, out)
}

// send POSTs a JSON body whose response is ignored. Non-2xx answers become *RequestError.
func (c *Client) send(ctx context.Context, op, path, token string, in any) error {
	resp, err := c.doJSON(ctx, op, http.MethodPost, path, token, in)
	if err != nil {
		return err
	}
	if resp, err = authorized(resp, op); err != nil {
		return err
	}
	if !success(resp.StatusCode) {
		status, reason := failure(resp)
		return &RequestError{Op: op, Status: status, Reason: reason}
	}
	return decode(resp, op, nil)
}

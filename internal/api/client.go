package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/owtf/exporter/internal/model"
)

// Client fetches reports from a running exporter.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

func NewClient(serverURL string, client *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://localhost:8009`")
	}
	if client == nil {
		client = &http.Client{}
	}

	return &Client{
		baseURL: parsedURL,
		client:  client,
	}, nil
}

// Export returns the raw report document of targetID together with its
// content type. format is either FormatJSON or FormatCycloneDX.
func (c *Client) Export(ctx context.Context, targetID int64, filter model.Filter, mappingName, format string) ([]byte, string, error) {
	u := *c.baseURL
	u.Path = "/api/targets/" + strconv.FormatInt(targetID, 10) + "/export/"
	q := url.Values{}
	for k, vs := range filter {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if mappingName != "" {
		q.Set("mapping", mappingName)
	}
	if format != "" {
		q.Set("format", format)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, contentType, err := decodeExportResponse(resp)
	if err != nil {
		return nil, "", err
	}
	slog.DebugContext(ctx, "report exported",
		slog.Int64("target_id", targetID),
		slog.String("request_id", resp.Header.Get(RequestIDHeader)))
	return body, contentType, nil
}

// Report fetches and decodes the JSON report of targetID.
func (c *Client) Report(ctx context.Context, targetID int64, filter model.Filter, mappingName string) (model.Report, error) {
	body, _, err := c.Export(ctx, targetID, filter, mappingName, FormatJSON)
	if err != nil {
		return model.Report{}, err
	}
	var rep model.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return model.Report{}, fmt.Errorf("decoding json response failed: %w", err)
	}
	return rep, nil
}

// ProblemError is a problem document returned by the server.
type ProblemError struct {
	Problem
}

func (e ProblemError) Error() string {
	return fmt.Sprintf("status code: %d, detail: %s", e.Status, e.Detail)
}

func decodeExportResponse(resp *http.Response) ([]byte, string, error) {
	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse response content type header: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		return body, contentType, nil
	case http.StatusBadRequest:
		if contentType != contentTypeProblem {
			return nil, "", fmt.Errorf("expected `%s` content type, got: %s", contentTypeProblem, contentType)
		}
		var p Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, "", fmt.Errorf("decoding json response failed: %w", err)
		}
		return nil, "", ProblemError{Problem: p}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return nil, "", fmt.Errorf("unknown error, status: %d, body: %s", resp.StatusCode, string(respBody))
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/oapi-codegen/runtime"

	"github.com/infraguardian/infraguardian/shared-lib/http/auth"
)

// UserAgent is sent with every request built by this package.
const UserAgent = "infraguardian/1.0"

// NewGetRequest creates a new GET HTTP request with authentication and query parameters
func NewGetRequest(ctx context.Context, url string, auth *auth.AuthConfig, queryParams map[string]interface{}) (*http.Request, error) {
	finalURL, err := buildURLWithParams(url, queryParams)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL with parameters: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	if err := auth.Apply(req); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}

	setDefaultHeaders(req)

	return req, nil
}

// NewPostRequest creates a new POST HTTP request with authentication and a
// JSON encoded body. A nil body sends an empty request.
func NewPostRequest(ctx context.Context, url string, auth *auth.AuthConfig, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := auth.Apply(req); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}

	setDefaultHeaders(req)

	return req, nil
}

// buildURLWithParams encodes queryParams as form-style query parameters.
// Nil values are skipped and keys are added in sorted order.
func buildURLWithParams(baseURL string, queryParams map[string]interface{}) (string, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if len(queryParams) == 0 {
		return parsedURL.String(), nil
	}

	keys := make([]string, 0, len(queryParams))
	for key := range queryParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := parsedURL.Query()
	for _, key := range keys {
		value := queryParams[key]
		if value == nil {
			continue
		}

		queryFrag, err := runtime.StyleParamWithLocation("form", true, key, runtime.ParamLocationQuery, value)
		if err != nil {
			return "", fmt.Errorf("invalid query parameter %q: %w", key, err)
		}
		parsed, err := url.ParseQuery(queryFrag)
		if err != nil {
			return "", fmt.Errorf("invalid query parameter %q: %w", key, err)
		}
		for k, values := range parsed {
			for _, v := range values {
				query.Add(k, v)
			}
		}
	}

	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func setDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
}

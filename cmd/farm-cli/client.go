package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type client struct {
	endpoint string
	token    string
	http     *http.Client
}

func newClient(endpoint, token string) *client {
	return &client{endpoint: endpoint, token: token, http: &http.Client{Timeout: 30 * time.Second}}
}

// apiError mirrors the error envelope written by the node.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("node returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

var errTokenRequired = fmt.Errorf("this command requires an API token; pass --token or set %s", rpcTokenEnv)

func (c *client) get(path string) (json.RawMessage, error) {
	return c.do(http.MethodGet, path, nil, false)
}

func (c *client) post(path string, body interface{}) (json.RawMessage, error) {
	return c.do(http.MethodPost, path, body, true)
}

func (c *client) put(path string, body interface{}) (json.RawMessage, error) {
	return c.do(http.MethodPut, path, body, true)
}

func (c *client) do(method, path string, body interface{}, requireAuth bool) (json.RawMessage, error) {
	if requireAuth && c.token == "" {
		return nil, errTokenRequired
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	url := c.endpoint + path
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		var envelope struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}
	return data, nil
}

func printJSON(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}

func reportError(stderr io.Writer, err error) int {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(stderr, "Error: %s\n", apiErr.Error())
		return 2
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

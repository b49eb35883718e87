package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

const laptopsPath = "/laptops/"

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) List(ctx context.Context, email string) ([]Laptop, error) {
	q := "?email=" + url.QueryEscape(email)
	var out []Laptop
	if err := c.do(ctx, http.MethodGet, laptopsPath+q, nil, "", &out); err != nil {
		return nil, err
	}
	// An empty catalog is reported the same way the server reports a 404.
	if len(out) == 0 {
		return nil, &Error{Kind: KindNotFound, Status: http.StatusOK, Message: "no laptops"}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Laptop, error) {
	body, contentType, err := encodeCreate(req)
	if err != nil {
		return nil, err
	}
	var out Laptop
	if err := c.do(ctx, http.MethodPost, laptopsPath, body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id int64, email string) (*MessageResponse, error) {
	p := laptopsPath + strconv.FormatInt(id, 10) + "?email=" + url.QueryEscape(email)
	var out MessageResponse
	if err := c.do(ctx, http.MethodDelete, p, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImageURL performs no request.
func (c *Client) ImageURL(imageID string) string {
	return c.baseURL + laptopsPath + "images/" + url.PathEscape(imageID)
}

func encodeCreate(req CreateRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"brand", req.Brand},
		{"price", req.Price},
		{"user_email", req.UserEmail},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	filename := req.Filename
	if filename == "" {
		filename = "image.jpg"
	}
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		token := c.token
		if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "decode response", Err: err}
		}
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	msg := strings.TrimSpace(eb.Error)
	if msg == "" {
		msg = strings.TrimSpace(eb.Detail)
	}
	return statusError(resp.StatusCode, msg)
}

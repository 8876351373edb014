package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	errprocess "giveback_client/pkg/err"
	"giveback_client/pkg/logger"

	"go.uber.org/zap"
)

// Client 對後端 REST API 的共用出口
// bearer token 自動附加；401 觸發 onUnauthorized（清除本地憑證）
type Client struct {
	base string
	http *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// errorBody 後端錯誤訊息的幾種欄位名
type errorBody struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
	Err     string `json:"error"`
}

func (b errorBody) text() string {
	switch {
	case b.Msg != "":
		return b.Msg
	case b.Message != "":
		return b.Message
	default:
		return b.Err
	}
}

// New create REST client
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// SetToken 登入後設定 bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken 登出或 401 時清除
func (c *Client) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// Token 目前持有的 bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized 註冊 401 的全域副作用
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// Get issue GET, decode JSON into out (out may be nil)
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// Post issue POST with JSON body
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data), out)
}

// Put issue PUT with JSON body (body may be nil)
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPut, path, "application/json", reader, out)
}

// PostMultipart issue multipart POST，fields 為文字欄位，filePath 可為空
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, filePath string, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}

	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return errprocess.Validation(fmt.Sprintf("cannot read image file: %v", err))
		}
		defer file.Close()

		part, err := w.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, w.FormDataContentType(), &buf, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t := c.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	logger.Log.Debug("rest request", zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		// no response object → network-unreachable
		return errprocess.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)

		if resp.StatusCode == http.StatusUnauthorized {
			c.ClearToken()
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook()
			}
		}
		return errprocess.FromStatus(resp.StatusCode, eb.text())
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errprocess.Set(fmt.Sprintf("failed to decode response from %s: %v", path, err))
	}
	return nil
}

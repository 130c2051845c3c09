package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// baiduOCR talks to the Baidu AI open platform REST API: an OAuth
// client-credentials token followed by general_basic recognition.
type baiduOCR struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewBaiduOCR(apiKey, secretKey, baseURL string, httpClient *http.Client) OCRProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &baiduOCR{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (b *baiduOCR) Name() string {
	return ProviderBaidu
}

func (b *baiduOCR) Available() bool {
	return b.apiKey != "" && b.secretKey != ""
}

type baiduTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type baiduOCRResponse struct {
	WordsResult []struct {
		Words string `json:"words"`
	} `json:"words_result"`
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func (b *baiduOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	token, err := b.token(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))
	form.Set("language_type", "CHN_ENG")
	form.Set("detect_direction", "true")
	form.Set("paragraph", "false")
	form.Set("probability", "false")

	endpoint := b.baseURL + "/rest/2.0/ocr/v1/general_basic?access_token=" + url.QueryEscape(token)

	var result baiduOCRResponse
	if err := b.postForm(ctx, endpoint, form, &result); err != nil {
		return "", err
	}

	if result.ErrorCode != 0 {
		// 110/111: token invalid or expired
		if result.ErrorCode == 110 || result.ErrorCode == 111 {
			b.resetToken()
		}
		return "", &TransportError{Service: ProviderBaidu, Err: fmt.Errorf("error %d: %s", result.ErrorCode, result.ErrorMsg)}
	}

	lines := make([]string, 0, len(result.WordsResult))
	for _, w := range result.WordsResult {
		lines = append(lines, w.Words)
	}

	return strings.Join(lines, "\n"), nil
}

func (b *baiduOCR) token(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" && time.Now().Before(b.expiresAt) {
		return b.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", b.apiKey)
	form.Set("client_secret", b.secretKey)

	var result baiduTokenResponse
	if err := b.postForm(ctx, b.baseURL+"/oauth/2.0/token", form, &result); err != nil {
		return "", err
	}

	if result.AccessToken == "" {
		return "", &TransportError{Service: ProviderBaidu, Err: fmt.Errorf("token request rejected: %s %s", result.Error, result.ErrorDescription)}
	}

	b.accessToken = result.AccessToken
	// refresh a minute early
	b.expiresAt = time.Now().Add(time.Duration(result.ExpiresIn)*time.Second - time.Minute)

	return b.accessToken, nil
}

func (b *baiduOCR) resetToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = ""
}

func (b *baiduOCR) postForm(ctx context.Context, endpoint string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build baidu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &TransportError{Service: ProviderBaidu, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Service: ProviderBaidu, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &TransportError{Service: ProviderBaidu, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &TransportError{Service: ProviderBaidu, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
)

// aliyunOCR calls the RecognizeGeneral action of the Aliyun OCR API through
// the generic OpenAPI client.
type aliyunOCR struct {
	accessKeyID     string
	accessKeySecret string
	endpoint        string

	once    sync.Once
	client  *openapi.Client
	initErr error
}

func NewAliyunOCR(accessKeyID, accessKeySecret, endpoint string) OCRProvider {
	return &aliyunOCR{
		accessKeyID:     accessKeyID,
		accessKeySecret: accessKeySecret,
		endpoint:        endpoint,
	}
}

func (a *aliyunOCR) Name() string {
	return ProviderAliyun
}

func (a *aliyunOCR) Available() bool {
	return a.accessKeyID != "" && a.accessKeySecret != ""
}

func (a *aliyunOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	client, err := a.getClient()
	if err != nil {
		return "", err
	}

	params := &openapi.Params{
		Action:      tea.String("RecognizeGeneral"),
		Version:     tea.String("2021-07-07"),
		Protocol:    tea.String("HTTPS"),
		Pathname:    tea.String("/"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		ReqBodyType: tea.String("binary"),
		BodyType:    tea.String("json"),
	}
	request := &openapi.OpenApiRequest{
		Stream: bytes.NewReader(image),
	}

	runtime := &util.RuntimeOptions{}
	if deadline, ok := ctx.Deadline(); ok {
		ms := int(time.Until(deadline).Milliseconds())
		runtime.ReadTimeout = tea.Int(ms)
		runtime.ConnectTimeout = tea.Int(ms)
	}

	return runWithContext(ctx, func() (string, error) {
		resp, err := client.CallApi(params, request, runtime)
		if err != nil {
			if sdkErr, ok := err.(*tea.SDKError); ok {
				return "", &TransportError{Service: ProviderAliyun, Err: fmt.Errorf("%s: %s", tea.StringValue(sdkErr.Code), tea.StringValue(sdkErr.Message))}
			}
			return "", &TransportError{Service: ProviderAliyun, Err: err}
		}
		return parseAliyunResponse(resp)
	})
}

func (a *aliyunOCR) getClient() (*openapi.Client, error) {
	a.once.Do(func() {
		cred, err := credential.NewCredential(&credential.Config{
			Type:            tea.String("access_key"),
			AccessKeyId:     tea.String(a.accessKeyID),
			AccessKeySecret: tea.String(a.accessKeySecret),
		})
		if err != nil {
			a.initErr = fmt.Errorf("failed to create aliyun credential: %w", err)
			return
		}

		a.client, a.initErr = openapi.NewClient(&openapi.Config{
			Credential: cred,
			Endpoint:   tea.String(a.endpoint),
		})
		if a.initErr != nil {
			a.initErr = fmt.Errorf("failed to create aliyun OCR client: %w", a.initErr)
		}
	})
	return a.client, a.initErr
}

// parseAliyunResponse reads body.Data, a JSON document whose "content" field
// holds the recognized text.
func parseAliyunResponse(resp map[string]interface{}) (string, error) {
	body, ok := resp["body"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("aliyun OCR response has no body")
	}

	raw, ok := body["Data"].(string)
	if !ok || raw == "" {
		return "", nil
	}

	var data struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", fmt.Errorf("failed to decode aliyun OCR data: %w", err)
	}

	return data.Content, nil
}

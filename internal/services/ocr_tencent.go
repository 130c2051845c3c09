package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	tchttp "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/http"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
)

const tencentOCREndpoint = "ocr.tencentcloudapi.com"

// tencentOCR calls GeneralBasicOCR through the SDK's common client, which
// avoids pulling in the generated per-product package.
type tencentOCR struct {
	secretID  string
	secretKey string
	region    string

	once   sync.Once
	client *common.Client
}

func NewTencentOCR(secretID, secretKey, region string) OCRProvider {
	return &tencentOCR{
		secretID:  secretID,
		secretKey: secretKey,
		region:    region,
	}
}

func (t *tencentOCR) Name() string {
	return ProviderTencent
}

func (t *tencentOCR) Available() bool {
	return t.secretID != "" && t.secretKey != ""
}

type tencentOCRResponse struct {
	Response struct {
		TextDetections []struct {
			DetectedText string `json:"DetectedText"`
		} `json:"TextDetections"`
		Error *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
		RequestId string `json:"RequestId"`
	} `json:"Response"`
}

func (t *tencentOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	client := t.getClient(ctx)

	request := tchttp.NewCommonRequest("ocr", "2018-11-19", "GeneralBasicOCR")
	if err := request.SetActionParameters(map[string]interface{}{
		"ImageBase64": base64.StdEncoding.EncodeToString(image),
	}); err != nil {
		return "", fmt.Errorf("failed to build tencent OCR request: %w", err)
	}

	return runWithContext(ctx, func() (string, error) {
		response := tchttp.NewCommonResponse()
		if err := client.Send(request, response); err != nil {
			var sdkErr *sdkerrors.TencentCloudSDKError
			if errors.As(err, &sdkErr) {
				return "", &TransportError{Service: ProviderTencent, Err: fmt.Errorf("%s: %s", sdkErr.GetCode(), sdkErr.GetMessage())}
			}
			return "", &TransportError{Service: ProviderTencent, Err: err}
		}
		return parseTencentResponse(response.GetBody())
	})
}

func (t *tencentOCR) getClient(ctx context.Context) *common.Client {
	t.once.Do(func() {
		credential := common.NewCredential(t.secretID, t.secretKey)

		cpf := profile.NewClientProfile()
		cpf.HttpProfile.Endpoint = tencentOCREndpoint
		cpf.HttpProfile.ReqMethod = "POST"
		if deadline, ok := ctx.Deadline(); ok {
			if secs := int(time.Until(deadline).Seconds()); secs > 0 {
				cpf.HttpProfile.ReqTimeout = secs
			}
		}

		t.client = common.NewCommonClient(credential, t.region, cpf)
	})
	return t.client
}

func parseTencentResponse(body []byte) (string, error) {
	var resp tencentOCRResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode tencent OCR response: %w", err)
	}

	if resp.Response.Error != nil {
		// FailedOperation.ImageNoText is a clean "nothing found"
		if resp.Response.Error.Code == "FailedOperation.ImageNoText" {
			return "", nil
		}
		return "", &TransportError{Service: ProviderTencent, Err: fmt.Errorf("%s: %s", resp.Response.Error.Code, resp.Response.Error.Message)}
	}

	lines := make([]string, 0, len(resp.Response.TextDetections))
	for _, d := range resp.Response.TextDetections {
		lines = append(lines, d.DetectedText)
	}

	return strings.Join(lines, "\n"), nil
}

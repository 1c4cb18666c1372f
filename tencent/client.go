// Package tencent implements the certificate registry and the domain binder
// on top of the Tencent Cloud SSL and CDN APIs.
package tencent

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tchttp "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/http"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
)

const (
	sslService = "ssl"
	sslVersion = "2019-12-05"
	cdnService = "cdn"
	cdnVersion = "2018-06-06"

	// listLimit is the page size of the list calls. A single page is read.
	listLimit = 100
)

// Times are reported in China Standard Time without a zone.
var (
	chinaStandardTime = time.FixedZone("CST", 8*60*60)
	timeLayout        = "2006-01-02 15:04:05"
)

// Options holds the credentials and endpoints for both services.
type Options struct {
	SecretID    string
	SecretKey   string
	Region      string
	SSLEndpoint string
	CDNEndpoint string
}

// Caller issues one API action and returns the content of the "Response"
// object of the reply.
type Caller interface {
	Call(ctx context.Context, action string, params any) ([]byte, error)
}

type sdkCaller struct {
	client  *common.Client
	service string
	version string
}

func newSDKCaller(opts Options, service, version, endpoint string) *sdkCaller {
	if endpoint == "" {
		endpoint = service + ".tencentcloudapi.com"
	}
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = endpoint

	credential := common.NewCredential(opts.SecretID, opts.SecretKey)
	return &sdkCaller{
		client:  common.NewCommonClient(credential, opts.Region, cpf),
		service: service,
		version: version,
	}
}

func (c *sdkCaller) Call(ctx context.Context, action string, params any) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: marshal parameters: %w", c.service, action, err)
	}

	request := tchttp.NewCommonRequest(c.service, c.version, action)
	request.SetContext(ctx)
	if err := request.SetActionParameters(body); err != nil {
		return nil, fmt.Errorf("%s.%s: set parameters: %w", c.service, action, err)
	}

	response := tchttp.NewCommonResponse()
	if err := c.client.Send(request, response); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.service, action, err)
	}
	return unwrapResponse(action, response.GetBody())
}

type apiError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

type envelope struct {
	Response json.RawMessage `json:"Response"`
}

type responseMeta struct {
	Error     *apiError `json:"Error"`
	RequestID string    `json:"RequestId"`
}

// unwrapResponse strips the {"Response": ...} envelope and turns an error
// reply into an error.
func unwrapResponse(action string, body []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", action, err)
	}
	if len(env.Response) == 0 {
		return nil, fmt.Errorf("%s: response is empty", action)
	}

	var meta responseMeta
	if err := json.Unmarshal(env.Response, &meta); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", action, err)
	}
	if meta.Error != nil {
		return nil, fmt.Errorf("%s: [%s] %s (request id: %s)", action, meta.Error.Code, meta.Error.Message, meta.RequestID)
	}
	return env.Response, nil
}

// parseTime returns the zero time for empty or unparseable values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timeLayout, s, chinaStandardTime)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"symbiotic_city/internal/pkg/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/push"
)

// AliyunPushNotifier 通过阿里云移动推送按账号推送
type AliyunPushNotifier struct {
	client *push.Client
	appKey int64
}

func NewAliyunPushNotifier(cfg config.PushConfig) (*AliyunPushNotifier, error) {
	if cfg.AccessKeyID == "" || cfg.AppKey == 0 {
		return nil, fmt.Errorf("push config is missing")
	}

	client, err := push.NewClientWithAccessKey(
		cfg.RegionID,
		cfg.AccessKeyID,
		cfg.AccessKeySecret,
	)
	if err != nil {
		return nil, err
	}

	return &AliyunPushNotifier{
		client: client,
		appKey: cfg.AppKey,
	}, nil
}

func (s *AliyunPushNotifier) Notify(ctx context.Context, n Notification) error {
	request := push.CreatePushRequest()
	request.AppKey = requests.NewInteger(int(s.appKey))
	request.Target = "ACCOUNT"
	request.TargetValue = n.AccountID
	request.Title = n.Title
	request.Body = n.Body
	request.DeviceType = "ALL"  // iOS & Android
	request.PushType = "NOTICE" // 通知

	// 扩展参数 (JSON 序列化)
	if len(n.Extra) > 0 {
		extJSON, err := json.Marshal(n.Extra)
		if err != nil {
			return err
		}
		request.AndroidExtParameters = string(extJSON)
		request.IOSExtParameters = string(extJSON)
	}

	resp, err := s.client.Push(request)
	if err != nil {
		return fmt.Errorf("aliyun push: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("aliyun push: http status %d", resp.GetHttpStatus())
	}
	return nil
}

// New 根据配置选择推送实现
func New(cfg config.PushConfig, fallback Notifier) Notifier {
	if cfg.AccessKeyID == "" {
		return fallback
	}
	n, err := NewAliyunPushNotifier(cfg)
	if err != nil {
		return fallback
	}
	return n
}

// webhookpush.go
package datapush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/storage"
)

// 默认重试参数
const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 2 * time.Second
)

// WebhookResponse 机器人接口的通用响应
type WebhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// UploadResponse 图片上传响应
type UploadResponse struct {
	WebhookResponse
	MediaId string `json:"media_id"`
	URL     string `json:"url"`
}

// Image 随摘要推送的图表
type Image struct {
	Name string
	PNG  []byte
}

// Pusher 把 markdown 摘要推送到群机器人
type Pusher struct {
	webhook   string
	uploadURL string
	times     int
	interval  time.Duration
	client    *http.Client
	logger    *storage.Logger
}

func NewPusher(webhook, uploadURL string, times int, interval time.Duration, logger *storage.Logger) *Pusher {
	if times <= 0 {
		times = RETRY_TIMES
	}
	if interval <= 0 {
		interval = RETRY_INTERVAL
	}
	return &Pusher{
		webhook:   webhook,
		uploadURL: uploadURL,
		times:     times,
		interval:  interval,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

// NewPusherFromConfig 读取 push 段
func NewPusherFromConfig(cfg *config.Config, logger *storage.Logger) *Pusher {
	p := cfg.Push
	return NewPusher(p.Webhook, p.UploadURL, p.RetryTimes, time.Duration(p.RetryInterval), logger)
}

// Push 发送摘要。配置了上传地址时先上传图片，图片失败不影响正文
func (p *Pusher) Push(ctx context.Context, title, text string, images ...Image) error {
	if p.webhook == "" {
		return fmt.Errorf("未配置 webhook")
	}
	for _, img := range images {
		if p.uploadURL == "" {
			break
		}
		var link string
		err := retry(ctx, func() error {
			var err error
			link, err = p.uploadImage(ctx, img)
			return err
		}, p.times, p.interval)
		if err != nil {
			p.logger.Warning(fmt.Sprintf("上传图片 %s 失败: %v", img.Name, err))
			continue
		}
		text += fmt.Sprintf("\n\n![%s](%s)", img.Name, link)
	}

	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  text,
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	err = retry(ctx, func() error {
		var result WebhookResponse
		return p.post(ctx, p.webhook, "application/json", payloadBytes, &result)
	}, p.times, p.interval)
	if err != nil {
		p.logger.Error("推送摘要失败: " + err.Error())
		return err
	}
	p.logger.Info("推送摘要成功: " + title)
	return nil
}

// uploadImage multipart 上传，返回可引用的地址
func (p *Pusher) uploadImage(ctx context.Context, img Image) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("media", img.Name)
	if err != nil {
		return "", fmt.Errorf("创建表单文件失败: %v", err)
	}
	if _, err := part.Write(img.PNG); err != nil {
		return "", fmt.Errorf("写入图片失败: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("关闭 multipart 失败: %v", err)
	}

	var result UploadResponse
	if err := p.post(ctx, p.uploadURL, writer.FormDataContentType(), body.Bytes(), &result); err != nil {
		return "", err
	}
	if result.URL != "" {
		return result.URL, nil
	}
	if result.MediaId != "" {
		return result.MediaId, nil
	}
	return "", fmt.Errorf("上传响应缺少 media_id")
}

type errCoder interface {
	code() (int, string)
}

func (r *WebhookResponse) code() (int, string) { return r.ErrCode, r.ErrMsg }

// post 非 2xx 或 errcode 非 0 都算失败
func (p *Pusher) post(ctx context.Context, url, contentType string, payload []byte, result errCoder) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if code, msg := result.code(); code != 0 {
		return fmt.Errorf("推送失败(%d): %s", code, msg)
	}
	return nil
}

// retry 失败后间隔 interval 重试，ctx 取消时立即返回
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}

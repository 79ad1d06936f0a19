// jobs.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/dashboard"
	"AirTrafficStory/src/datapush"
	"AirTrafficStory/src/datasource/email"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/storage"
	"AirTrafficStory/src/utils"

	"github.com/robfig/cron"
)

// scheduleJobs 日志轮转、定时导出、摘要推送、收取数据邮件
func scheduleJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, svc *dashboard.Service, logger *storage.Logger) error {
	if err := c.AddFunc("@every 1m", func() {
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	}); err != nil {
		return err
	}

	if cfg.Report.Cron != "" {
		err := c.AddFunc(cfg.Report.Cron, func() {
			path, err := exportReport(svc, cfg.Report.Dir, time.Now())
			if err != nil {
				logger.Error("导出报表失败: " + err.Error())
				return
			}
			logger.Info("报表已导出: " + path)
			if cfg.SendEmail.Enabled {
				title, text, err := svc.Digest(processor.Query{})
				if err == nil {
					err = email.SendReport(cfg, cfg.SendEmail.TargetSubject+" - "+title, text, path)
				}
				if err != nil {
					logger.Error("发送报表邮件失败: " + err.Error())
				}
			}
		})
		if err != nil {
			return fmt.Errorf("report cron %q: %w", cfg.Report.Cron, err)
		}
	}

	if cfg.Push.Enabled && cfg.Push.Cron != "" {
		pusher := datapush.NewPusherFromConfig(cfg, logger)
		err := c.AddFunc(cfg.Push.Cron, func() {
			if err := pushDigest(ctx, svc, pusher); err != nil {
				logger.Error("推送摘要失败: " + err.Error())
			}
		})
		if err != nil {
			return fmt.Errorf("push cron %q: %w", cfg.Push.Cron, err)
		}
	}

	if cfg.Email.Enabled {
		mailClient := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
		handler := email.NewTableAttachmentHandlerFromConfig(cfg, logger)
		interval := time.Duration(cfg.Email.CheckInterval).String() // 例如 "5m0s"
		cronSpec := fmt.Sprintf("@every %s", interval)
		err := c.AddFunc(cronSpec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Email.CheckInterval))
			defer cancel()
			// 落盘后由文件监控触发重新载入
			if _, err := email.CheckAndProcessEmails(jobCtx, mailClient, handler, cfg.Email.TargetSubject, logger); err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
			}
		})
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("邮件监控已启动(检查间隔: %v)", interval))
	}
	return nil
}

// exportReport 全量默认查询的报表工作簿写入 dir
func exportReport(svc *dashboard.Service, dir string, now time.Time) (string, error) {
	sheets, err := svc.ExportSheets(processor.Query{})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建报表目录失败: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("air-traffic-%s.xlsx", now.Format("20060102-150405")))
	if err := utils.SaveWorkbook(path, sheets...); err != nil {
		return "", err
	}
	return path, nil
}

// pushDigest 摘要加机场月度趋势图
func pushDigest(ctx context.Context, svc *dashboard.Service, pusher *datapush.Pusher) error {
	title, text, err := svc.Digest(processor.Query{})
	if err != nil {
		return err
	}
	var images []datapush.Image
	if png, err := svc.Chart(dashboard.ChartTrend, model.KindAirports, processor.Query{}); err == nil {
		images = append(images, datapush.Image{Name: "trend.png", PNG: png})
	}
	return pusher.Push(ctx, title, text, images...)
}

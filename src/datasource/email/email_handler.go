// email_handler.go
package email

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/storage"
	"AirTrafficStory/src/utils"

	"github.com/xuri/excelize/v2"
)

// ====================== 附件处理器实现 ======================

// TableAttachmentHandler 把 APT/CIE/LSN 附件写入对应的 processed 目录，
// 由文件监控触发重新载入
type TableAttachmentHandler struct {
	targets       map[model.Kind]string // 表 -> 目标文件路径
	sheet         string                // xlsx 附件读取的工作表，为空时取第一张
	processedUIDs map[uint32]bool       // 已处理邮件UID记录
	mu            sync.RWMutex          // 保护processedUIDs的读写锁
	logger        *storage.Logger
}

func NewTableAttachmentHandler(targets map[model.Kind]string, sheet string, logger *storage.Logger) *TableAttachmentHandler {
	return &TableAttachmentHandler{
		targets:       targets,
		sheet:         sheet,
		processedUIDs: make(map[uint32]bool),
		logger:        logger,
	}
}

// NewTableAttachmentHandlerFromConfig 目标路径与数据载入使用同一套配置
func NewTableAttachmentHandlerFromConfig(cfg *config.Config, logger *storage.Logger) *TableAttachmentHandler {
	targets := make(map[model.Kind]string, len(model.AllKinds))
	for _, k := range model.AllKinds {
		targets[k] = cfg.TablePath(k.Code())
	}
	return NewTableAttachmentHandler(targets, cfg.SheetName, logger)
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *TableAttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *TableAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// AttachmentKind 根据文件名判断属于哪张表，例如 "APT_2024.xlsx"、"dgac-cie.csv"
func AttachmentKind(filename string) (model.Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && ext != ".xlsx" {
		return "", false
	}
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	tokens := strings.FieldsFunc(base, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, tok := range tokens {
		for _, k := range model.AllKinds {
			if tok == strings.ToLower(k.Code()) {
				return k, true
			}
		}
	}
	return "", false
}

// Handle 保存邮件中可识别的表附件，格式与目标文件不同时转换
func (h *TableAttachmentHandler) Handle(email *Email) ([]string, error) {
	if h.IsProcessed(email.UID) {
		return nil, nil
	}

	var saved []string
	for _, att := range email.Attachments {
		kind, ok := AttachmentKind(att.Filename)
		if !ok {
			h.logger.Debug("跳过无法识别的附件: " + att.Filename)
			continue
		}
		target, ok := h.targets[kind]
		if !ok {
			continue
		}
		content, err := convertAttachment(att, target, h.sheet)
		if err != nil {
			return saved, fmt.Errorf("%s: %w", att.Filename, err)
		}
		if err := writeAtomic(target, content); err != nil {
			return saved, err
		}
		h.logger.Info(fmt.Sprintf("附件 %s 已保存到 %s", att.Filename, target))
		saved = append(saved, target)
	}

	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

// convertAttachment xlsx -> csv 用 excelize 读取，csv -> xlsx 写成单表工作簿
func convertAttachment(att *Attachment, target, sheet string) ([]byte, error) {
	src := strings.ToLower(filepath.Ext(att.Filename))
	dst := strings.ToLower(filepath.Ext(target))
	switch {
	case src == dst:
		return att.Content, nil
	case src == ".xlsx" && dst == ".csv":
		return xlsxToCSV(att.Content, sheet)
	case src == ".csv" && dst == ".xlsx":
		return csvToXLSX(att.Content)
	}
	return nil, fmt.Errorf("不支持从 %s 转换为 %s", src, dst)
}

func xlsxToCSV(data []byte, sheet string) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开 xlsx 失败: %w", err)
	}
	defer f.Close()

	if sheet == "" || !utils.Contains(f.GetSheetList(), sheet) {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("工作表 %s 为空", sheet)
	}

	// GetRows 会截掉行尾空单元格，按表头补齐
	width := len(rows[0])
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	for _, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvToXLSX(data []byte) ([]byte, error) {
	header := string(data)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = strings.TrimRight(header[:i], "\r")
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = file.DetectSeparator(header)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 csv 失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv 为空")
	}

	sheet := utils.Sheet{Name: "Sheet1", Headers: records[0]}
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	var buf bytes.Buffer
	if err := utils.WriteWorkbook(&buf, sheet); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeAtomic 先写临时文件再重命名，监控方不会读到写了一半的文件
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %v", err)
	}
	tmp, err := os.CreateTemp(dir, ".incoming-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入临时文件失败: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("保存附件失败: %v", err)
	}
	return nil
}

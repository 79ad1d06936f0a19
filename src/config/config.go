package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DataDirEnv 覆盖 data_dir 的环境变量
const DataDirEnv = "AIR_DATA_DIR"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir string `json:"data_dir"` // 处理后数据的根目录
	Files   struct {
		Airports string `json:"apt"` // 机场表文件名
		Airlines string `json:"cie"` // 航空公司表文件名
		Routes   string `json:"lsn"` // 航段表文件名
	} `json:"files"`
	SheetName  string `json:"sheet_name"` // 表为 xlsx 时读取的工作表
	LogName    string `json:"log_name"`
	LogLevel   string `json:"log_level"` // DEBUG/INFO/WARNING/ERROR
	LogMaxSize string `json:"log_max_size"`

	Server struct {
		Addr           string   `json:"addr"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server"`

	Analysis struct {
		BaselineYear  int     `json:"baseline_year"`  // 恢复率的基准年
		CovidStart    string  `json:"covid_start"`    // YYYY-MM
		CovidEnd      string  `json:"covid_end"`      // YYYY-MM
		TopN          int     `json:"top_n"`          // 默认排名条数
		IQRMultiplier float64 `json:"iqr_multiplier"` // 异常值判定倍数
		RollingWindow int     `json:"rolling_window"` // 滚动均值窗口(月)
		CacheEntries  int     `json:"cache_entries"`  // 结果缓存容量
	} `json:"analysis"`

	Report struct {
		Dir  string `json:"dir"`  // 导出报表目录
		Cron string `json:"cron"` // 定时导出
	} `json:"report"`

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // SMTP 服务器地址 host:port
		Username      string   `json:"username"`       // 发件邮箱
		Password      string   `json:"password"`       // 邮箱密码
		To            []string `json:"to"`             // 收件人
		TargetSubject string   `json:"target_subject"` // 报表邮件主题
	} `json:"send_email"`

	Push struct {
		Enabled       bool     `json:"enabled"`
		Webhook       string   `json:"webhook"`    // 群机器人 markdown 消息地址
		UploadURL     string   `json:"upload_url"` // 图片上传地址，为空时不附图
		Cron          string   `json:"cron"`
		RetryTimes    int      `json:"retry_times"`
		RetryInterval Duration `json:"retry_interval"`
	} `json:"push"`
}

// DataConfig 各数据表的列定义
type DataConfig struct {
	Schemas   map[string][]string `json:"schemas"`    // 表代码(APT/CIE/LSN) -> 期望列
	Aliases   map[string]string   `json:"aliases"`    // 原始表头 -> 规范列名
	NaNTokens []string            `json:"nan_tokens"` // 视为缺失的字符串
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	cfg.applyDefaults()
	if dir := os.Getenv(DataDirEnv); dir != "" {
		cfg.DataDir = dir
	}
	dcfg.applyDefaults()

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	// 使用固定格式字符串
	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// applyDefaults 补齐未配置的字段
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Files.Airports == "" {
		c.Files.Airports = "apt.csv"
	}
	if c.Files.Airlines == "" {
		c.Files.Airlines = "cie.csv"
	}
	if c.Files.Routes == "" {
		c.Files.Routes = "lsn.csv"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = Duration(30 * time.Second)
	}

	a := &c.Analysis
	if a.BaselineYear == 0 {
		a.BaselineYear = 2019
	}
	if a.CovidStart == "" {
		a.CovidStart = "2020-03"
	}
	if a.CovidEnd == "" {
		a.CovidEnd = "2021-06"
	}
	if a.TopN <= 0 {
		a.TopN = 10
	}
	if a.IQRMultiplier <= 0 {
		a.IQRMultiplier = 1.5
	}
	if a.RollingWindow <= 0 {
		a.RollingWindow = 3
	}
	if a.CacheEntries <= 0 {
		a.CacheEntries = 512
	}

	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.Push.RetryTimes <= 0 {
		c.Push.RetryTimes = 3
	}
	if c.Push.RetryInterval == 0 {
		c.Push.RetryInterval = Duration(2 * time.Second)
	}
}

// TablePath 三张表的完整路径: <data_dir>/<APT|CIE|LSN>/processed/<file>
func (c *Config) TablePath(code string) string {
	var name string
	switch strings.ToUpper(code) {
	case "APT":
		name = c.Files.Airports
	case "CIE":
		name = c.Files.Airlines
	case "LSN":
		name = c.Files.Routes
	}
	return filepath.Join(c.ProcessedDir(code), name)
}

// ProcessedDir 某张表的处理后数据目录
func (c *Config) ProcessedDir(code string) string {
	return filepath.Join(c.DataDir, strings.ToUpper(code), "processed")
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// applyDefaults 默认的缺失值标记
func (dc *DataConfig) applyDefaults() {
	if len(dc.NaNTokens) == 0 {
		dc.NaNTokens = []string{"", " ", "-", "nan", "NaN", "None"}
	}
	if dc.Schemas == nil {
		dc.Schemas = map[string][]string{}
	}
	if dc.Aliases == nil {
		dc.Aliases = map[string]string{}
	}
}

func (dc *DataConfig) GetSchema(code string) []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.Schemas[strings.ToUpper(code)]...)
}

func (dc *DataConfig) SetSchema(code string, cols []string) {
	mu.Lock()
	defer mu.Unlock()
	dc.Schemas[strings.ToUpper(code)] = cols
}

func (dc *DataConfig) GetAlias(colName string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := dc.Aliases[colName]
	return v, ok
}

func (dc *DataConfig) SetAlias(colName, value string) {
	mu.Lock()
	defer mu.Unlock()
	dc.Aliases[colName] = value
}

// IsNaN 判断单元格是否为缺失值
func (dc *DataConfig) IsNaN(cell string) bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, tok := range dc.NaNTokens {
		if cell == tok {
			return true
		}
	}
	return false
}

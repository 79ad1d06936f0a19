// client.go
package email

import (
	// 标准库导入
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	// 第三方库导入
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/jordan-wright/email"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	// 项目内部导入
	"AirTrafficStory/src/config"
	"AirTrafficStory/src/storage"
)

/******************** 常量定义 ********************/
const (
	MaxFetchMessages   = 100                // 单次最大获取邮件数量，防止内存溢出
	FetchBufferSize    = 10                 // 邮件获取通道缓冲区大小
	RecentMailDuration = 7 * 24 * time.Hour // 数据投递邮件的回溯范围
)

/******************** 接口定义 ********************/

// MailService 邮件服务核心接口
type MailService interface {
	// Connect 建立与邮件服务器的连接
	Connect() error

	// Disconnect 安全断开与邮件服务器的连接
	Disconnect()

	// FetchUnreadEmails 获取未读邮件列表
	FetchUnreadEmails() ([]*Email, error)

	// MarkSeen 附件落盘后标记已读，下次不再拉取
	MarkSeen(uids ...uint32) error
}

// EmailHandler 邮件处理器接口
type EmailHandler interface {
	// Handle 处理单个邮件，返回保存的文件路径
	Handle(email *Email) ([]string, error)
}

/******************** 数据结构 ********************/

// Email 邮件基础数据结构
type Email struct {
	UID         uint32        // 邮件唯一标识符(IMAP UID)
	Date        time.Time     // 邮件发送时间
	From        string        // 发件人信息(已解码)
	Subject     string        // 邮件主题(已解码)
	Attachments []*Attachment // 邮件附件列表
}

// Attachment 邮件附件数据结构
type Attachment struct {
	Filename string // 附件文件名(已解码)
	Content  []byte // 附件二进制内容
}

/******************** 邮件客户端实现 ********************/

// EmailClient IMAP邮件客户端实现
type EmailClient struct {
	server    string         // IMAP服务器地址(包含端口)
	username  string         // 登录用户名
	password  string         // 登录密码/授权码
	client    *client.Client // IMAP客户端实例
	mu        sync.Mutex     // 线程安全锁
	connected bool           // 连接状态标记
	logger    *storage.Logger
}

// NewEmailClient 构造函数：创建邮件客户端实例
// 参数:
//   - server: 服务器地址(如"imap.example.com:993")
//   - username: 邮箱账号
//   - password: 密码/授权码
func NewEmailClient(server, username, password string, logger *storage.Logger) *EmailClient {
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Connect 建立安全连接(线程安全)，已有连接可用时直接复用
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		// 连接已失效则重置
		s.client.Logout()
		s.client = nil
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client = c
	s.connected = true
	return nil
}

// Disconnect 安全断开连接(线程安全)
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnreadEmails 获取收件箱中近期的未读邮件(线程安全)
func (s *EmailClient) FetchUnreadEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}
	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}
	return s.fetchMessages(ids)
}

// MarkSeen 按 UID 标记已读
func (s *EmailClient) MarkSeen(uids ...uint32) error {
	if len(uids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("未连接到邮件服务器")
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("标记已读失败: %w", err)
	}
	return nil
}

// fetchMessages 获取指定序号的邮件内容
func (s *EmailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			s.logger.Warning(fmt.Sprintf("邮件 UID %d 正文为空", msg.Uid))
			continue
		}
		email, err := ParseMessage(r)
		if err != nil {
			s.logger.Warning(fmt.Sprintf("解析邮件 UID %d 失败: %v", msg.Uid, err))
			continue
		}
		email.UID = msg.Uid
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}
	return emails, nil
}

/******************** 邮件解析相关 ********************/

// ParseMessage 解析 RFC 5322 邮件：头部和全部附件
func ParseMessage(r io.Reader) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}

	header := mr.Header
	date, _ := header.Date() // 日期解析错误不影响后续处理
	email := &Email{
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // 跳过解析失败的部分
		}
		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := h.Filename()
		if err != nil || filename == "" {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, p.Body); err != nil {
			return nil, fmt.Errorf("读取附件 %s 失败: %w", filename, err)
		}
		email.Attachments = append(email.Attachments, &Attachment{
			Filename: decodeHeader(filename),
			Content:  buf.Bytes(),
		})
	}
	return email, nil
}

/******************** 工具函数 ********************/

// decodeHeader 解码 =?charset?encoding?encoded-text?= 形式的邮件头
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}
	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header // 解码失败返回原始内容
	}
	return decoded
}

// charsetReader 法文邮件常见的 Latin-1 / Windows-1252，以及 GBK
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "iso-8859-15":
		return transform.NewReader(input, charmap.ISO8859_15.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "gbk", "gb2312":
		return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder()), nil
	default:
		return input, nil // 其他编码原样返回
	}
}

/******************** 发送报表 ********************/

// SendReport 通过 SMTP(显式 TLS) 发送报表邮件，attachments 为本地文件路径
func SendReport(c *config.Config, subject, body string, attachments ...string) error {
	from := c.SendEmail.Username
	if len(c.SendEmail.To) == 0 {
		return fmt.Errorf("未配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("Air Traffic Story <%s>", from)
	e.To = c.SendEmail.To
	e.Subject = subject
	e.Text = []byte(body)
	for _, path := range attachments {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("附件添加失败: %w", err)
		}
	}

	// 确保服务器地址包含端口
	smtpAddr := c.SendEmail.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host := strings.Split(smtpAddr, ":")[0]
	err := e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", from, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, smtpAddr)
	}
	return nil
}

/******************** 业务逻辑函数 ********************/

// CheckAndProcessEmails 拉取未读邮件，把主题匹配的邮件交给 handler 落盘，
// 成功后标记已读。返回保存的文件路径
func CheckAndProcessEmails(ctx context.Context, mailService MailService, handler EmailHandler, keyword string, logger *storage.Logger) ([]string, error) {
	startTime := time.Now()
	logger.Info("开始检查邮箱...")

	if err := mailService.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchUnreadEmails()
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}

	targets := filterTargetEmails(emails, keyword)
	if len(targets) == 0 {
		logger.Info("没有新的数据邮件")
		return nil, nil
	}

	var saved []string
	var done []uint32
	for _, e := range targets {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		paths, err := handler.Handle(e)
		if err != nil {
			logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", e.UID, err))
			continue
		}
		saved = append(saved, paths...)
		done = append(done, e.UID)
	}
	if err := mailService.MarkSeen(done...); err != nil {
		logger.Warning(err.Error())
	}

	logger.Info(fmt.Sprintf("处理 %d 封邮件，保存 %d 个文件，耗时: %v", len(done), len(saved), time.Since(startTime)))
	return saved, nil
}

// filterTargetEmails 主题包含关键词的邮件，按日期升序，较新的文件后写入
func filterTargetEmails(emails []*Email, keyword string) []*Email {
	var targets []*Email
	for _, e := range emails {
		if keyword == "" || strings.Contains(strings.ToLower(e.Subject), strings.ToLower(keyword)) {
			targets = append(targets, e)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Date.Before(targets[j].Date)
	})
	return targets
}

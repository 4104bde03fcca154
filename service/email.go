package service

import (
	"fmt"
	"strings"

	"moneytracker/config"
	"moneytracker/ledger"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendMonthlyReport 发送月度收支报表邮件
func (s *EmailService) SendMonthlyReport(toEmail, yearMonth string, report *ledger.Report) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 EMAIL_ENABLED=true")
	}

	subject := fmt.Sprintf("【记账系统】%s 月度收支报表", yearMonth)
	body := s.generateReportEmailBody(yearMonth, report)

	return s.sendEmail(toEmail, subject, body)
}

// generateReportEmailBody 生成月度报表邮件内容
func (s *EmailService) generateReportEmailBody(yearMonth string, report *ledger.Report) string {
	netColor := "#059669"
	if report.Net < 0 {
		netColor = "#dc2626"
	}

	var categoryRows strings.Builder
	for _, item := range report.ByCategory {
		name := item.Category
		if name == ledger.UnknownCategory {
			name = "未知分类"
		}
		categoryRows.WriteString(fmt.Sprintf(
			`<tr><td style="padding: 10px 16px; border-bottom: 1px solid #eee;">%s</td>`+
				`<td style="padding: 10px 16px; border-bottom: 1px solid #eee; text-align: right;">%.2f %s</td></tr>`,
			name, item.Total, report.Currency))
	}
	if len(report.ByCategory) == 0 {
		categoryRows.WriteString(`<tr><td colspan="2" style="padding: 10px 16px; color: #6c757d; text-align: center;">本月无支出记录</td></tr>`)
	}

	var diagnosticNote string
	if len(report.Diagnostics) > 0 {
		diagnosticNote = fmt.Sprintf(
			`<div class="warning"><p>⚠️ 有 <strong>%d</strong> 条记录因数据异常未计入统计，请在系统中检查。</p></div>`,
			len(report.Diagnostics))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .summary { display: block; background: linear-gradient(135deg, #f0f9ff, #e0f2fe); border-radius: 12px; padding: 24px; margin: 20px 0; }
        .summary .row { display: flex; justify-content: space-between; padding: 6px 0; }
        .summary .label { color: #6c757d; }
        .summary .value { font-weight: 600; }
        table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        th { background: #f8f9fa; padding: 10px 16px; text-align: left; color: #6c757d; font-size: 13px; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>💰 %s 收支报表</h1>
        </div>
        <div class="content">
            <p>统计区间：%s 至 %s（金额统一折算为 %s）</p>
            <div class="summary">
                <div class="row"><span class="label">总收入</span><span class="value" style="color: #059669;">%.2f</span></div>
                <div class="row"><span class="label">总支出</span><span class="value" style="color: #dc2626;">%.2f</span></div>
                <div class="row"><span class="label">结余</span><span class="value" style="color: %s;">%.2f</span></div>
            </div>
            <table>
                <tr><th>支出分类</th><th style="text-align: right;">金额</th></tr>
                %s
            </table>
            %s
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
            <p>© 记账系统 - 您的个人财务管理助手</p>
        </div>
    </div>
</body>
</html>
`, yearMonth, report.StartDate, report.EndDate, report.Currency,
		report.TotalIncome, report.TotalExpense, netColor, report.Net,
		categoryRows.String(), diagnosticNote)
}

// SendTestEmail 发送测试邮件
func (s *EmailService) SendTestEmail(toEmail string) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用")
	}

	subject := "【记账系统】邮件配置测试"
	body := `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>✅ 邮件配置成功</h2>
    <p>如果您收到这封邮件，说明邮件服务配置正确。</p>
    <p style="color: #666;">—— 记账系统</p>
</body>
</html>
`
	return s.sendEmail(toEmail, subject, body)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}

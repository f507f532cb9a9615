// Package mailer 消费通知队列中的邮件信息，渲染模板后发送。
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

var subjects = map[string]string{
	domain.MailTypeSignupPending: "Gatekeeper - 注册申请已收到",
	domain.MailTypeStatusChanged: "Gatekeeper - 账户状态更新",
}

type Worker struct {
	sender      Sender
	templates   map[string]*template.Template
	sendTimeout time.Duration
}

// NewWorker 从 templateDir 加载每种邮件类型对应的 <type>.html 模板
func NewWorker(sender Sender, templateDir string, sendTimeout time.Duration) (*Worker, error) {
	templates := make(map[string]*template.Template, len(subjects))
	for mailType := range subjects {
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, mailType+".html"))
		if err != nil {
			return nil, err
		}
		templates[mailType] = tmpl
	}

	return &Worker{
		sender:      sender,
		templates:   templates,
		sendTimeout: sendTimeout,
	}, nil
}

func (w *Worker) Render(msg domain.MailMessage) (string, string, error) {
	tmpl, ok := w.templates[msg.Type]
	if !ok {
		return "", "", fmt.Errorf("不支持的邮件类型: %s", msg.Type)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, msg.Data); err != nil {
		return "", "", err
	}

	return subjects[msg.Type], buf.String(), nil
}

// Handle 处理一条消息：格式错误的消息直接丢弃，发送失败的消息重新入队
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	msg := domain.MailMessage{}
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		slog.Error("邮件信息反序列化失败", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	subject, body, err := w.Render(msg)
	if err != nil {
		slog.Error("无法渲染邮件", slog.String("type", msg.Type), slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.sender.Send(ctx, msg.To, subject, body); err != nil {
		slog.Error("邮件发送失败", slog.String("to", msg.To), slog.String("error", err.Error()))
		_ = d.Nack(false, true) // 将消息重新入队
		return
	}

	slog.Info("邮件已发送", slog.String("type", msg.Type), slog.String("to", msg.To))
	_ = d.Ack(false)
}

// Run 持续消费消息，直到 ctx 被取消或者通道关闭
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				slog.Warn("消息通道已关闭")
				return
			}
			w.Handle(ctx, d)
		}
	}
}

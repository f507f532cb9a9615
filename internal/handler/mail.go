package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

// publishMail 把邮件投递到消息队列。通知不影响请求结果，失败只记录日志
func (h *Handler) publishMail(msg domain.MailMessage) {
	if h.mailChannel == nil {
		return
	}

	// 序列化邮件
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("无法序列化邮件", "type", msg.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.mailChannel.PublishWithContext(
		ctx,
		"",
		h.config.RabbitMQ.Queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		slog.Error("无法发送邮件到消息队列", "type", msg.Type, "to", msg.To, "error", err)
	}
}

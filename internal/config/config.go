package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"12"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"90"` // 生成摘要可能比较慢
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"2592000"` // 30 天，单位为秒
		Secret     string `env:"SECRET,required"`
		Issuer     string `env:"ISSUER" envDefault:"gatekeeper"`
	} `envPrefix:"JWT_"`
	CSRF struct {
		Key            string   `env:"KEY,required"` // 32 字节
		TrustedOrigins []string `env:"TRUSTED_ORIGINS" envDefault:"localhost:3000,127.0.0.1:3000"`
	} `envPrefix:"CSRF_"`
	LoginRate struct {
		PerMinute      int      `env:"PER_MINUTE" envDefault:"10"`
		Burst          int      `env:"BURST" envDefault:"5"`
		TrustedProxies []string `env:"TRUSTED_PROXIES"` // 反向代理的 IP 或 CIDR，为空时忽略 X-Forwarded-For
	} `envPrefix:"LOGIN_RATE_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"gatekeeper-demo"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		Provider   string `env:"PROVIDER" envDefault:"smtp"` // smtp 或 resend
		From       string `env:"FROM"`
		UserDomain string `env:"USER_DOMAIN" envDefault:"example.com"`
		SMTP       struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
		Resend struct {
			APIKey string `env:"API_KEY"`
		} `envPrefix:"RESEND_"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
		SendTimeout int    `env:"SEND_TIMEOUT" envDefault:"30"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD"`
		ConnectTimeout   int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"5"`
	} `envPrefix:"REDIS_"`
	Gemini struct {
		APIKey string `env:"API_KEY"`
		Model  string `env:"MODEL" envDefault:"gemini-1.5-flash-latest"`
	} `envPrefix:"GEMINI_"`
	Summarizer struct {
		MinTranscriptLength int    `env:"MIN_TRANSCRIPT_LENGTH" envDefault:"50"`
		MaxTranscriptLength int    `env:"MAX_TRANSCRIPT_LENGTH" envDefault:"50000"`
		UserAgent           string `env:"USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"`
	} `envPrefix:"SUMMARIZER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Parse  string `json:"parse_mode"`
}

// Telegram 机器人告警
type Telegram struct {
	chatID   string
	botToken string
	apiBase  string
	client   *http.Client
	log      logrus.FieldLogger
}

// NewAlerter TELEGRAM_BOT_TOKEN 或 chatID 为空时返回 Nop
func NewAlerter(chatID string, log logrus.FieldLogger) Alerter {
	_ = godotenv.Load() // 自动加载 .env 文件
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" || chatID == "" {
		log.Warn("[NOTIFY] telegram 未配置，告警关闭")
		return Nop{}
	}
	return &Telegram{
		chatID:   chatID,
		botToken: token,
		apiBase:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
}

// Alert 异步发送
func (t *Telegram) Alert(level, title, content string) {
	text := fmt.Sprintf("*[%s] %s*\n%s", level, escapeMarkdown(title), content)
	go func() {
		if err := t.send(text); err != nil {
			t.log.WithError(err).Error("Telegram 消息发送失败")
		}
	}()
}

func (t *Telegram) send(text string) error {
	body, _ := json.Marshal(telegramMessage{
		ChatID: t.chatID,
		Text:   text,
		Parse:  "MarkdownV2",
	})
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	return nil
}

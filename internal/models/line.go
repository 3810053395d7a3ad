package models

const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
)

// WebhookRequest 是 LINE 推送到 webhook 的请求体
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event 是一条 webhook 事件，只解析回复所需字段
type Event struct {
	Type            string           `json:"type"`
	Mode            string           `json:"mode,omitempty"`
	Timestamp       int64            `json:"timestamp,omitempty"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Source          *EventSource     `json:"source,omitempty"`
	Message         *EventMessage    `json:"message,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

// EventSource 标识消息来源
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// EventMessage 是事件携带的消息
type EventMessage struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// DeliveryContext 标识是否为平台重投
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// IsTextMessage 判断事件是否为文本消息
func (e Event) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == MessageTypeText
}

// IsRedelivery 判断事件是否为平台重投
func (e Event) IsRedelivery() bool {
	return e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
}

// ReplyMessageRequest 是发往回复接口的请求体
type ReplyMessageRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

// TextMessage 是文本回复消息
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextReply 构造只含一条文本消息的回复
func NewTextReply(replyToken, text string) ReplyMessageRequest {
	return ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []TextMessage{{Type: MessageTypeText, Text: text}},
	}
}

// ErrorResponse 是 LINE API 的错误响应体
type ErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details,omitempty"`
}

package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign 计算 X-Line-Signature：base64(HMAC-SHA256(secret, body))
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验原始请求体的签名。secret 为空时不校验，直接放行。
// body 必须是未经解析的原始字节。
func VerifySignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 {
		return true
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

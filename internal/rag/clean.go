package rag

import "strings"

// CleanAnswer 去除回答中的引用标记和首尾空白，保留正文引用 ##$$
func CleanAnswer(answer string) string {
	answer = strings.ReplaceAll(answer, "CITATIONS:", "")
	return strings.TrimSpace(answer)
}

package keyword

const (
	hoursReply = "🕐 我們的服務時間：\n週一至週五：09:00 - 18:00\n週六：10:00 - 16:00\n週日及國定假日休息"

	contactReply = "📞 聯絡我們：\n電話：02-1234-5678\nEmail：service@example.com\n地址：台北市信義區xxx路xx號"

	helpReply = "📋 您好！我可以幫您處理以下問題：\n\n🔹 輸入「服務時間」查詢營業時間\n🔹 輸入「聯絡方式」取得聯絡資訊\n🔹 或直接輸入問題，我會用 AI 為您解答！"
)

// DefaultRules 是配置文件未提供关键字时使用的客服关键字表
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "服務時間", Response: hoursReply},
		{Keyword: "營業時間", Response: hoursReply},
		{Keyword: "聯絡方式", Response: contactReply},
		{Keyword: "聯繫", Response: contactReply},
		{Keyword: "幫助", Response: helpReply},
		{Keyword: "help", Response: helpReply},
	}
}

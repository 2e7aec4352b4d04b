package chatbot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
)

const (
	greetingReply = `Xin chào! Tôi là trợ lý tài chính cá nhân của bạn. 🤖💰

Tôi có thể giúp bạn:
• Ghi nhận giao dịch thu chi
• Kiểm tra số dư và tình hình tài chính
• Đưa ra lời khuyên về ngân sách và tiết kiệm
• Phân tích chi tiêu của bạn

Bạn muốn làm gì hôm nay?`

	goodbyeReply = "Cảm ơn bạn đã sử dụng dịch vụ! Chúc bạn quản lý tài chính hiệu quả! 👋💰"

	budgetFallback  = "💡 Tôi khuyên bạn nên theo dõi chi tiêu hàng ngày, lập ngân sách tháng và tiết kiệm ít nhất 20% thu nhập. Bạn có muốn tôi phân tích chi tiết hơn không?"
	generalFallback = "Tôi có thể giúp bạn với nhiều vấn đề tài chính. Hãy hỏi tôi về giao dịch, số dư, chi tiêu hoặc lời khuyên tài chính nhé!"
	unknownReply    = "Xin lỗi, tôi không hiểu yêu cầu của bạn. Vui lòng thử lại!"

	balanceFailedReply  = "❌ Không thể lấy thông tin số dư. Vui lòng thử lại sau."
	spendingFailedReply = "❌ Không thể lấy thông tin chi tiêu. Vui lòng thử lại sau."
	createFailedReply   = "❌ Có lỗi xảy ra khi ghi nhận giao dịch.\nVui lòng thử lại hoặc kiểm tra thông tin danh mục."

	// UnavailableReply is returned when a message cannot be processed at all.
	UnavailableReply = "Xin lỗi, tôi không thể xử lý yêu cầu này lúc này. Vui lòng thử lại sau."
)

// Names of the required add_transaction fields, as listed to the user.
const (
	fieldAmount   = "số tiền"
	fieldCategory = "danh mục"
)

const (
	dateTimeLayout = "02/01/2006 15:04"
	dayMonthLayout = "02/01"

	chatbotDescription = "Giao dịch tạo từ chatbot"
)

func clarificationReply(missing []string) string {
	return fmt.Sprintf("Để ghi nhận giao dịch, tôi cần thêm thông tin về: %s. Ví dụ: 'Tôi vừa chi 50000 đồng mua thức ăn'",
		strings.Join(missing, ", "))
}

func invalidAmountReply(amount string) string {
	return fmt.Sprintf("❌ Số tiền %s VNĐ không hợp lệ. Số tiền phải lớn hơn 0, ví dụ: 'Tôi vừa chi 50k mua thức ăn'", amount)
}

func categoryNotFoundReply(category string) string {
	return fmt.Sprintf("❌ Không tìm thấy danh mục \"%s\" trong tài khoản của bạn.\nVui lòng kiểm tra lại danh mục hoặc thêm danh mục mới.", category)
}

func typeLabel(t model.TransactionType) string {
	if t == model.TransactionIncome {
		return "Thu nhập"
	}
	return "Chi tiêu"
}

func confirmationReply(txn *model.Transaction, category string, at time.Time) string {
	return fmt.Sprintf("✅ Đã ghi nhận giao dịch thành công!\n\n"+
		"📋 Chi tiết:\n"+
		"• Loại: %s\n"+
		"• Số tiền: %s VNĐ\n"+
		"• Danh mục: %s\n"+
		"• Thời gian: %s",
		typeLabel(txn.Type), FormatAmount(txn.Amount), category, at.Format(dateTimeLayout))
}

func balanceReply(s model.TransactionSummary) string {
	flag := "🟢 Bạn đang có thặng dư!"
	if s.NetAmount.IsNegative() {
		flag = "🔴 Bạn đang chi tiêu nhiều hơn thu nhập!"
	}
	return fmt.Sprintf("💰 **Tình hình tài chính của bạn:**\n\n"+
		"📈 Tổng thu nhập: %s VNĐ\n"+
		"📉 Tổng chi tiêu: %s VNĐ\n"+
		"💵 Số dư ròng: %s VNĐ\n\n"+
		"%s",
		FormatAmount(s.TotalIncome), FormatAmount(s.TotalExpense), FormatAmount(s.NetAmount), flag)
}

func spendingReply(s model.TransactionSummary, from, to time.Time) string {
	return fmt.Sprintf("📊 **Chi tiêu tháng %d/%d:**\n\n"+
		"💸 Tổng chi tiêu: %s VNĐ\n"+
		"💰 Thu nhập: %s VNĐ\n"+
		"📈 Còn lại: %s VNĐ\n\n"+
		"📅 Từ ngày %s đến %s",
		int(to.Month()), to.Year(),
		FormatAmount(s.TotalExpense), FormatAmount(s.TotalIncome), FormatAmount(s.NetAmount),
		from.Format(dayMonthLayout), to.Format(dayMonthLayout))
}

const basePrompt = `Bạn là một trợ lý tài chính thông minh và thân thiện, chuyên giúp người dùng quản lý tài chính cá nhân.
Bạn có thể trả lời bằng tiếng Việt và tiếng Anh tùy theo ngôn ngữ của người dùng.
Hãy đưa ra lời khuyên thực tế, dễ hiểu và có thể áp dụng được.`

// systemPrompt steers the responder for the given intent.
func systemPrompt(intent model.Intent) string {
	switch intent {
	case model.IntentBudgetAdvice:
		return basePrompt + `

Nhiệm vụ: Đưa ra lời khuyên tài chính dựa trên tình hình tài chính của người dùng.
Quy tắc:
- Phân tích tình hình tài chính hiện tại
- Đưa ra lời khuyên cụ thể và thực tế
- Sử dụng emoji phù hợp để làm sinh động
- Đề xuất các bước hành động cụ thể
- Khuyến khích thói quen tài chính tốt`
	case model.IntentGeneralQuery:
		return basePrompt + `

Nhiệm vụ: Trả lời các câu hỏi tài chính tổng quát.
Quy tắc:
- Cung cấp thông tin chính xác và hữu ích
- Giải thích các khái niệm tài chính một cách đơn giản
- Đưa ra ví dụ thực tế khi cần thiết
- Khuyến khích người dùng học hỏi thêm về tài chính`
	default:
		return basePrompt + `

Nhiệm vụ: Hỗ trợ người dùng với các tác vụ quản lý tài chính.
Hãy trả lời một cách thân thiện và hữu ích.`
	}
}

// financialContext is the summary handed to the responder for budget advice.
type financialContext struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	NetAmount    string `json:"net_amount"`
	ExpenseRatio string `json:"expense_ratio"`
}

func newFinancialContext(s model.TransactionSummary) *financialContext {
	return &financialContext{
		TotalIncome:  s.TotalIncome.String(),
		TotalExpense: s.TotalExpense.String(),
		NetAmount:    s.NetAmount.String(),
		ExpenseRatio: s.ExpenseRatio().String(),
	}
}

// userContent is the user turn sent to the responder.
func userContent(message string, entities model.Entities, fc *financialContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User message: %s\n", message)
	if !entities.IsEmpty() {
		if data, err := json.Marshal(entities); err == nil {
			fmt.Fprintf(&b, "Extracted entities: %s\n", data)
		}
	}
	if fc != nil {
		if data, err := json.Marshal(fc); err == nil {
			fmt.Fprintf(&b, "Financial context: %s\n", data)
		}
	}
	return b.String()
}

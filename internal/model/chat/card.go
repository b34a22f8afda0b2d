package chat

// 危机卡片上的动作标识。
const (
	ActionCallNow      = "call-now"
	ActionTryBreathing = "try-breathing"
)

// Helpline 描述一条已核实的求助热线。
type Helpline struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Dial   string `json:"dial"`
}

// CardAction 描述卡片上的一个按钮。
type CardAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CrisisCard 是危机消息的结构化内容，前端据此渲染求助卡片。
type CrisisCard struct {
	Headline  string       `json:"headline"`
	Helplines []Helpline   `json:"helplines"`
	Actions   []CardAction `json:"actions"`
}

// DefaultCrisisCard 返回带有热线与两个动作的标准危机卡片。
func DefaultCrisisCard() *CrisisCard {
	return &CrisisCard{
		Headline: "You are not alone. Help is available 24x7. If you ever feel unsafe, please reach out immediately.",
		Helplines: []Helpline{
			{Name: "KIRAN Helpline (24x7)", Number: "1800-599-0019", Dial: "tel:18005990019"},
			{Name: "iCALL Helpline", Number: "+91 9152987821", Dial: "tel:+919152987821"},
		},
		Actions: []CardAction{
			{ID: ActionCallNow, Label: "Call Now"},
			{ID: ActionTryBreathing, Label: "Try Breathing Exercise"},
		},
	}
}

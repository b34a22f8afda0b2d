package triage

import "strings"

// Sentiment 表示对用户话语的情绪分类。
type Sentiment string

const (
	Sad      Sentiment = "sad"
	Anxious  Sentiment = "anxious"
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
)

// Tool 表示可以在对话中推荐或启动的自助工具。
type Tool string

const (
	BreathingExercise Tool = "Breathing Exercise"
	GuidedMeditation  Tool = "Guided Meditation"
	JournalingSupport Tool = "Journaling or Peer Support"
	MoodTracker       Tool = "Mood Tracker"
	Journal           Tool = "Journal"
	CrisisHelpline    Tool = "Crisis Helpline"
)

// Result 给出一次分类的全部结论。Crisis 为 true 时其余字段保持零值。
type Result struct {
	Crisis        bool
	Sentiment     Sentiment
	CopingTool    Tool
	CopingKeyword string
}

// HasCopingTrigger 表示是否命中了应对工具关键词。
func (r Result) HasCopingTrigger() bool {
	return r.CopingTool != ""
}

var crisisPhrases = []string{
	"suicide", "kill myself", "end my life", "i can't go on", "want to die",
}

type sentimentBucket struct {
	sentiment Sentiment
	keywords  []string
}

// 顺序即优先级：sad > anxious > positive。
var sentimentBuckets = []sentimentBucket{
	{Sad, []string{"sad", "depressed", "unhappy", "down", "low", "hopeless", "tired"}},
	{Anxious, []string{"anxious", "nervous", "worried", "stressed", "overwhelmed", "panic"}},
	{Positive, []string{"happy", "good", "great", "joy", "excited", "love", "thankful"}},
}

type copingTrigger struct {
	keyword string
	tool    Tool
}

// 多个关键词同时命中时，取本表中靠前的一项。
var copingTriggers = []copingTrigger{
	{"stress", BreathingExercise},
	{"sleep", GuidedMeditation},
	{"lonely", JournalingSupport},
}

type quickAction struct {
	markers []string
	tool    Tool
}

var quickActions = []quickAction{
	{[]string{"breathing exercise"}, BreathingExercise},
	{[]string{"mood tracker", "log mood"}, MoodTracker},
	{[]string{"journal", "journaling"}, Journal},
	{[]string{"crisis helpline", "urgent help", "suicidal"}, CrisisHelpline},
}

// Classify 对用户输入做危机检测、应对工具匹配与情绪分类。
// 危机短语优先级最高，命中后不再进行其他分类。
func Classify(text string) Result {
	normalized := normalize(text)
	if IsCrisis(normalized) {
		return Result{Crisis: true}
	}

	result := Result{Sentiment: DetectSentiment(normalized)}
	if keyword, tool, ok := MatchCopingTrigger(normalized); ok {
		result.CopingKeyword = keyword
		result.CopingTool = tool
	}
	return result
}

// IsCrisis reports whether text contains any self-harm phrase.
func IsCrisis(text string) bool {
	normalized := normalize(text)
	for _, phrase := range crisisPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// DetectSentiment returns the first bucket with a substring hit, or Neutral.
// Matching is containment, so "download" counts as "down".
func DetectSentiment(text string) Sentiment {
	normalized := normalize(text)
	if normalized == "" {
		return Neutral
	}

	for _, bucket := range sentimentBuckets {
		for _, word := range bucket.keywords {
			if strings.Contains(normalized, word) {
				return bucket.sentiment
			}
		}
	}
	return Neutral
}

// MatchCopingTrigger returns the first coping trigger found in text.
func MatchCopingTrigger(text string) (string, Tool, bool) {
	normalized := normalize(text)
	for _, trigger := range copingTriggers {
		if strings.Contains(normalized, trigger.keyword) {
			return trigger.keyword, trigger.tool, true
		}
	}
	return "", "", false
}

// QuickActions 根据助手回复文本推导可直接点击的工具按钮。
func QuickActions(text string) []Tool {
	normalized := normalize(text)
	var tools []Tool
	for _, action := range quickActions {
		for _, marker := range action.markers {
			if strings.Contains(normalized, marker) {
				tools = append(tools, action.tool)
				break
			}
		}
	}
	return tools
}

func normalize(text string) string {
	lowered := strings.ToLower(text)
	// 兼容输入法产生的弯引号，例如 "can’t"。
	return strings.ReplaceAll(lowered, "’", "'")
}

package interview

import (
	"fmt"
	"strconv"

	"wisefido-intake/internal/models"
)

// Messages 一种语言下控制器使用的全部固定话术
type Messages struct {
	StandOnScale       string
	Greeting           string
	Retry              string
	Scanning           string
	ScanSuccess        string // %s 为患者姓名
	ScanError          string
	HeartbeatPrompt    string
	HeartbeatTitle     string
	HeartbeatHint      string
	WaitingFinger      string
	WaitingVitals      string
	TemperaturePrompt  string
	TemperatureTitle   string
	TemperatureHint    string
	ReadingTemperature string
	CapturedVitals     string // HR / SpO₂ / 体温
	CapturedTemp       string // 体温
	Timeout            string
	PhotoPrompt        string
	PhotoCountdown     string
	Closing            string
}

var englishMessages = Messages{
	StandOnScale:       "Please stand on the weight sensor. I will measure your weight.",
	Greeting:           "Hello! I can see you are here. I am here to help you.",
	Retry:              "I didn't catch that. Could you please repeat?",
	Scanning:           "Scanning QR code...",
	ScanSuccess:        "code scanned successfully! Hello %s.",
	ScanError:          "Error reading QR code. Please try again.",
	HeartbeatPrompt:    "Now please place your finger on the heartbeat sensor. I will read for 3 seconds.",
	HeartbeatTitle:     "Heartbeat Sensor",
	HeartbeatHint:      "Please place your finger on the sensor",
	WaitingFinger:      "Waiting for finger detection...",
	WaitingVitals:      "Waiting for captured vitals...",
	TemperaturePrompt:  "Now please place the temperature sensor on the middle of your forehead.",
	TemperatureTitle:   "Temperature Sensor",
	TemperatureHint:    "Please place the sensor on your forehead",
	ReadingTemperature: "Reading temperature... Please keep the sensor on your forehead.",
	CapturedVitals:     "Captured: HR %s bpm, SpO₂ %s%%, Temp %s°C",
	CapturedTemp:       "Captured temperature: %s°C",
	Timeout:            "Timeout, continuing...",
	PhotoPrompt:        "All sensor readings complete. Now I will take your picture.",
	PhotoCountdown:     "Taking photo... 3... 2... 1...",
	Closing:            "Thank you! Your examination is complete. The doctor will see you shortly. Please wait.",
}

var hindiMessages = Messages{
	StandOnScale:       "कृपया वजन सेंसर पर खड़े हों। मैं आपका वजन मापूंगा।",
	Greeting:           "नमस्ते! मैं देख रहा हूं कि आप यहां हैं। मैं आपकी मदद के लिए यहां हूं।",
	Retry:              "मुझे समझ नहीं आया, कृपया दोहराएँ।",
	Scanning:           "Scanning QR code...",
	ScanSuccess:        "QR कोड स्कैन सफल! नमस्ते %s",
	ScanError:          "QR कोड पढ़ने में त्रुटि। कृपया फिर से कोशिश करें।",
	HeartbeatPrompt:    "अब कृपया अपनी उंगली हृदय गति सेंसर पर रखें। मैं 3 सेकंड तक पढ़ूंगा।",
	HeartbeatTitle:     "हृदय गति सेंसर",
	HeartbeatHint:      "कृपया अपनी उंगली सेंसर पर रखें",
	WaitingFinger:      "उंगली का पता लगाने की प्रतीक्षा कर रहा हूं...",
	WaitingVitals:      "Waiting for captured vitals...",
	TemperaturePrompt:  "अब कृपया तापमान सेंसर को अपने माथे के बीच में रखें।",
	TemperatureTitle:   "तापमान सेंसर",
	TemperatureHint:    "कृपया सेंसर को माथे के बीच में रखें",
	ReadingTemperature: "तापमान पढ़ रहा हूं... कृपया सेंसर को माथे पर रखे रखें।",
	CapturedVitals:     "कॅप्चर किया गया: HR %s bpm, SpO₂ %s%%, Temp %s°C",
	CapturedTemp:       "कॅप्चर किया गया तापमान: %s°C",
	Timeout:            "Timeout, continuing...",
	PhotoPrompt:        "सभी सेंसर रीडिंग पूरी हो गई। अब मैं आपकी तस्वीर लूंगा।",
	PhotoCountdown:     "तस्वीर ले रहा हूं... 3... 2... 1...",
	Closing:            "धन्यवाद! आपकी जांच पूरी हो गई है। डॉक्टर जल्द ही आपसे मिलेंगे। कृपया प्रतीक्षा करें।",
}

// MessagesFor 返回对应语言的话术，未知语言回退英文
func MessagesFor(lang models.Language) Messages {
	if lang == models.LanguageHindi {
		return hindiMessages
	}
	return englishMessages
}

var englishQuestions = []models.Question{
	{Prompt: "Hi there, I'm here to help you feel better. Please scan your QR code in front of my camera.", Field: models.FieldQRScan, Type: models.QuestionQRScan},
	{Prompt: "I'm really sorry you're not feeling well. Could you tell me what's been bothering you the most today?", Field: models.FieldChiefComplaint},
	{Prompt: "That sounds uncomfortable. Can you describe how the pain feels, maybe sharp, dull, burning, or something else?", Field: models.FieldPainDescription},
	{Prompt: "Thank you for sharing that. Have you noticed anything else that's been bothering you or any changes in how you feel lately?", Field: models.FieldAdditionalFeelings},
	{Prompt: "Before we continue, do you have any health conditions, now or in the past, that you'd like me to know about?", Field: models.FieldMedicalHistory},
}

var hindiQuestions = []models.Question{
	{Prompt: "नमस्ते, मैं आपकी मदद के लिए यहाँ हूँ। कृपया अपना QR कोड मेरे कैमरे के सामने स्कैन करें।", Field: models.FieldQRScan, Type: models.QuestionQRScan},
	{Prompt: "मुझे खेद है कि आप ठीक नहीं लग रहे। क्या आप बता सकते हैं कि आज आपको सबसे ज्यादा क्या परेशान कर रहा है?", Field: models.FieldChiefComplaint},
	{Prompt: "यह असहज लगता है। क्या आप बता सकते हैं कि दर्द कैसा लगता है - तेज, सुस्त, जलन या कुछ और?", Field: models.FieldPainDescription},
	{Prompt: "यह साझा करने के लिए धन्यवाद। क्या आपने कुछ और नोटिस किया है जो आपको परेशान कर रहा है या आपके महसूस करने के तरीके में कोई बदलाव?", Field: models.FieldAdditionalFeelings},
	{Prompt: "आगे बढ़ने से पहले, क्या आपके पास कोई स्वास्थ्य स्थिति है - अभी या अतीत में - जो आप मुझे बताना चाहेंगे?", Field: models.FieldMedicalHistory},
}

// QuestionSet 两种语言的问题列表
type QuestionSet struct {
	English []models.Question `yaml:"en"`
	Hindi   []models.Question `yaml:"hi"`
}

// DefaultQuestions 内置问题列表
func DefaultQuestions() QuestionSet {
	return QuestionSet{
		English: append([]models.Question(nil), englishQuestions...),
		Hindi:   append([]models.Question(nil), hindiQuestions...),
	}
}

// For 返回对应语言的问题；该语言为空时回退英文
func (qs QuestionSet) For(lang models.Language) []models.Question {
	if lang == models.LanguageHindi && len(qs.Hindi) > 0 {
		return qs.Hindi
	}
	return qs.English
}

// Validate 检查问题字段都属于会话记录，且两种语言按位置一一对应
func (qs QuestionSet) Validate() error {
	if len(qs.English) == 0 {
		return fmt.Errorf("english question list is empty")
	}
	if len(qs.Hindi) > 0 {
		if len(qs.Hindi) != len(qs.English) {
			return fmt.Errorf("hindi list has %d questions, english has %d", len(qs.Hindi), len(qs.English))
		}
		for i := range qs.English {
			if qs.English[i].Field != qs.Hindi[i].Field || qs.English[i].Type != qs.Hindi[i].Type {
				return fmt.Errorf("question %d differs between languages", i)
			}
		}
	}
	for lang, list := range map[string][]models.Question{"en": qs.English, "hi": qs.Hindi} {
		for i, q := range list {
			if q.Prompt == "" {
				return fmt.Errorf("%s question %d has no prompt", lang, i)
			}
			if !models.IsRecordField(q.Field) {
				return fmt.Errorf("%s question %d uses unknown field %q", lang, i, q.Field)
			}
		}
	}
	return nil
}

// formatReading 心率 / 血氧：整数不带小数，缺失显示 "--"
func formatReading(p *float64) string {
	if p == nil || *p == 0 {
		return "--"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// formatTemperature 保留一位小数
func formatTemperature(p *float64) string {
	if p == nil {
		return "--"
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}

// vitalsBox capturedVitals 元素内容
func vitalsBox(v *models.CapturedVitals) string {
	if v == nil {
		v = &models.CapturedVitals{}
	}
	hr, sp := "--", "--"
	if v.HeartRate != nil {
		hr = strconv.FormatFloat(*v.HeartRate, 'f', -1, 64)
	}
	if v.SpO2 != nil {
		sp = strconv.FormatFloat(*v.SpO2, 'f', -1, 64)
	}
	return fmt.Sprintf("HR: %s bpm | SpO₂: %s%% | Temp: %s°C", hr, sp, formatTemperature(v.Temperature))
}

// vitalsStatus vitalsStatusText 元素内容
func vitalsStatus(v *models.CapturedVitals) string {
	if v == nil {
		v = &models.CapturedVitals{}
	}
	return fmt.Sprintf("Captured HR %s, SpO₂ %s, Temp %s°C",
		formatReading(v.HeartRate), formatReading(v.SpO2), formatTemperature(v.Temperature))
}

// weightBadge weightText 元素内容
func weightBadge(kg *float64) string {
	if kg == nil {
		return "Weight: -- kg"
	}
	return fmt.Sprintf("Weight: %.3f kg", *kg)
}

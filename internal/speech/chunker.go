package speech

import (
	"regexp"
	"strings"
)

// sentencePattern 按句末标点切分，包含天城文句号 "।"
var sentencePattern = regexp.MustCompile(`[^.!?।]+[.!?।]*`)

// SplitSentences 把文本拆成按顺序播放的句子
// 没有匹配时整段作为一个块；空白块被丢弃
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	matches := sentencePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	chunks := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			chunks = append(chunks, m)
		}
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

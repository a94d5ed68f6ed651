package speech

import "strings"

// PickVoice 先按完整区域码匹配（hi-IN），再按语言前缀匹配（hi）
// 都没有时返回 false，调用方使用引擎默认发音人
func PickVoice(voices []Voice, locale string) (Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.Lang, locale) {
			return v, true
		}
	}
	prefix := strings.ToLower(strings.SplitN(locale, "-", 2)[0])
	if prefix == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Lang), prefix) {
			return v, true
		}
	}
	return Voice{}, false
}

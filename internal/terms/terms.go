package terms

import (
	"strings"
	"unicode"
)

// 查询中常见的修饰词与尾缀，清洗阶段整体移除。
// 注意顺序："发布会" 必须排在 "发布" 之前，否则会残留 "会"。
var fillerWords = []string{
	"是什么", "怎么回事", "最新消息", "最新",
	"事件", "热搜", "曝光", "官宣",
	"发布会", "发布", "涨价", "降价",
}

// 品牌别名表：主题词 → 已知英文/缩写别名。
var brandAliases = []struct {
	match   func(q, lower string) bool
	aliases []string
}{
	{
		match:   func(q, _ string) bool { return strings.Contains(q, "小鹏") },
		aliases: []string{"小鹏汽车", "xpeng", "xpev", "xpeng motors"},
	},
	{
		match: func(_, lower string) bool {
			return strings.Contains(lower, "xpeng") || strings.Contains(lower, "xpev")
		},
		aliases: []string{"XPENG", "XPEV", "xpeng motors"},
	},
}

// Normalize 小写化并去掉全部空白与标点（含 # 话题符、中英文标点），
// 按 Unicode 类别判断而非硬编码字符表，用于模糊比较前的规范化。
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Expand 把原始主题词扩展为有序去重的查询词集合：
// 原词 → 去修饰词的清洗形 → 空格子词 → 品牌别名。
// 顺序表示特异度（最具体的在前），重复展开结果不变。
func Expand(query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}

	out := []string{q}

	cleaned := replacePunctWithSpace(q)
	for _, w := range fillerWords {
		cleaned = strings.ReplaceAll(cleaned, w, "")
	}
	cq := strings.TrimSpace(cleaned)
	if cq != "" && cq != q {
		out = append(out, cq)
	}
	for _, tok := range strings.Fields(cq) {
		out = append(out, tok)
	}

	lower := strings.ToLower(q)
	for _, ba := range brandAliases {
		if ba.match(q, lower) {
			out = append(out, ba.aliases...)
		}
	}

	return dedup(out)
}

// replacePunctWithSpace 将标点替换为空格，保留其余字符，供子词拆分使用。
func replacePunctWithSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dedup 去重并保持首次出现的顺序。
func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

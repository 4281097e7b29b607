package txt

import "regexp"

// Pattern is one chapter-heading rule. Generic patterns are weak signals
// (numbered lists look the same) and are subject to the segmenter's
// minimum-paragraph merge.
type Pattern struct {
	Name    string
	Regexp  *regexp.Regexp
	Generic bool
}

const (
	numberWords = `one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty`
	cjkNumerals = `0-9０-９一二三四五六七八九十百千零〇两兩`
	titleTail   = `(?:[\s:.\-–—]+.*)?`
)

// DefaultPatterns returns the built-in heading rules in priority order.
// The slice is freshly allocated so callers may extend it.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:   "chapter",
			Regexp: regexp.MustCompile(`(?i)^(?:chapter|chap\.)\s+(?:\d+|[ivxlcdm]+|` + numberWords + `)\b` + titleTail + `$`),
		},
		{
			Name:   "part",
			Regexp: regexp.MustCompile(`(?i)^(?:part|book|section|volume)\s+(?:\d+|[ivxlcdm]+|` + numberWords + `)\b` + titleTail + `$`),
		},
		{
			Name:   "cjk",
			Regexp: regexp.MustCompile(`^第\s*[` + cjkNumerals + `]+\s*[章节節卷回部篇話话集].*$`),
		},
		{
			Name:   "korean",
			Regexp: regexp.MustCompile(`^제\s*\d+\s*[장편화부](?:\s.*)?$`),
		},
		{
			Name:   "matter",
			Regexp: regexp.MustCompile(`(?i)^(?:prologue|epilogue|preface|foreword|afterword|introduction|序章|序言|楔子|尾声|尾聲|终章|終章|后记|後記|あとがき|프롤로그|에필로그)` + titleTail + `$`),
		},
		{
			Name:    "numbered",
			Regexp:  regexp.MustCompile(`^\d{1,3}\.\s+\S.{0,60}$`),
			Generic: true,
		},
	}
}

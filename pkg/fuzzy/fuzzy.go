package fuzzy

import (
	"strings"
	"unicode"
)

// LevenshteinDistance counts the single-rune edits needed to turn s1 into s2
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(Normalize(s1))
	r2 := []rune(Normalize(s2))
	m, n := len(r1), len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rows are enough for the distance alone
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// Threshold returns the allowed edit distance for a query of this length
func Threshold(query string) int {
	switch n := len([]rune(query)); {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Match reports whether query fuzzy-matches text within threshold edits
func Match(query, text string, threshold int) bool {
	query = Normalize(query)
	text = Normalize(text)
	if query == "" {
		return true
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}

	// Whole-text distance for short titles
	if len(text) < 50 {
		maxDistance := threshold + len(query)/5
		if LevenshteinDistance(query, text) <= maxDistance {
			return true
		}
	}

	return false
}

// MatchTask checks title first, then the first 500 runes of the description
func MatchTask(query, title, description string) bool {
	threshold := Threshold(query)
	if Match(query, title, threshold) {
		return true
	}
	if description == "" {
		return false
	}
	if r := []rune(description); len(r) > 500 {
		description = string(r[:500])
	}
	return Match(query, description, threshold)
}

// Score ranks how well a task matches; higher is better
func Score(query, title, description string) float64 {
	query = Normalize(query)
	if query == "" {
		return 0
	}
	score := 0.0

	titleNorm := Normalize(title)
	if strings.Contains(titleNorm, query) {
		score += 100
		if containsWord(titleNorm, query) {
			score += 50
		}
	} else {
		for _, word := range strings.Fields(titleNorm) {
			if dist := LevenshteinDistance(query, word); dist <= 2 {
				score += 50 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40
			}
		}
	}

	if strings.Contains(Normalize(description), query) {
		score += 30
	}

	return score
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// Normalize lowercases, strips accents and collapses whitespace
func Normalize(s string) string {
	s = removeAccents(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}

// removeAccents maps accented Latin and Vietnamese vowels to ASCII
func removeAccents(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch r {
		case 'á', 'à', 'ả', 'ã', 'ạ', 'ă', 'ắ', 'ằ', 'ẳ', 'ẵ', 'ặ', 'â', 'ấ', 'ầ', 'ẩ', 'ẫ', 'ậ', 'ä':
			result.WriteRune('a')
		case 'é', 'è', 'ẻ', 'ẽ', 'ẹ', 'ê', 'ế', 'ề', 'ể', 'ễ', 'ệ', 'ë':
			result.WriteRune('e')
		case 'í', 'ì', 'ỉ', 'ĩ', 'ị', 'ï':
			result.WriteRune('i')
		case 'ó', 'ò', 'ỏ', 'õ', 'ọ', 'ô', 'ố', 'ồ', 'ổ', 'ỗ', 'ộ', 'ơ', 'ớ', 'ờ', 'ở', 'ỡ', 'ợ', 'ö':
			result.WriteRune('o')
		case 'ú', 'ù', 'ủ', 'ũ', 'ụ', 'ư', 'ứ', 'ừ', 'ử', 'ữ', 'ự', 'ü':
			result.WriteRune('u')
		case 'ý', 'ỳ', 'ỷ', 'ỹ', 'ỵ':
			result.WriteRune('y')
		case 'đ':
			result.WriteRune('d')
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

package executor

import (
	"strings"
	"unicode"
)

// ChunkBySyllables splits text into chunks of whole words holding at most
// perChunk syllables each. A single word longer than perChunk gets a chunk
// of its own. perChunk below 1 is treated as 1.
func ChunkBySyllables(text string, perChunk int) []string {
	if perChunk < 1 {
		perChunk = 1
	}

	var (
		chunks  []string
		current []string
		count   int
	)
	for _, word := range strings.Fields(text) {
		n := CountSyllables(word)
		if len(current) > 0 && count+n > perChunk {
			chunks = append(chunks, strings.Join(current, " "))
			current, count = nil, 0
		}
		current = append(current, word)
		count += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// CountSyllables estimates the syllables in an English word by counting
// vowel groups, discounting a silent trailing "e". Words without letters
// count as zero; every other word counts at least one.
func CountSyllables(word string) int {
	var letters []rune
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range letters {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	n := len(letters)
	if count > 1 && letters[n-1] == 'e' && !(n >= 2 && letters[n-2] == 'l' && n >= 3 && !isVowel(letters[n-3])) {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

package chunker

import "unicode/utf8"

// CharCount measures text the way chunk limits are expressed: in Unicode
// code points, not bytes, so CJK text is not penalised.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

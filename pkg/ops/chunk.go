package ops

// chunkText splits text into overlapping windows of size chunkSize with
// overlap characters shared between consecutive windows, capped at
// maxChunks (spec §4.6 memorize large-file preprocessing).
func chunkText(text string, chunkSize, overlap, maxChunks int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	runes := []rune(text)
	step := chunkSize - overlap

	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if len(chunks) >= maxChunks {
			break
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

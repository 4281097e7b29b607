// Package progress computes reading progress fractions.
//
// Every function is total: any integer input yields a value in [0, 1].
package progress

import "math"

// Chapter is the progress within one chapter:
// page/(totalPages-1), or 1 when the chapter has a single page.
func Chapter(page, totalPages int) float64 {
	if totalPages <= 1 {
		return 1
	}
	return clamp(float64(page) / float64(totalPages-1))
}

// Combine places chapter progress inside the whole book:
// (chapterIndex + chapterProgress) / totalChapters.
func Combine(chapterIndex int, chapterProgress float64, totalChapters int) float64 {
	if totalChapters <= 0 {
		return 0
	}
	return clamp((float64(chapterIndex) + clamp(chapterProgress)) / float64(totalChapters))
}

// Overall is the whole-book progress of a page position.
func Overall(chapterIndex, currentPage, totalPagesInChapter, totalChapters int) float64 {
	if totalChapters <= 0 {
		return 0
	}
	return Combine(chapterIndex, Chapter(currentPage, totalPagesInChapter), totalChapters)
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

package match

import "strings"

// Quality labels form a total order used to pick the best of several
// equally-valid provider matches.
const (
	QualityStandard = "standard"
	QualityHigh     = "high"
	QualityLossless = "lossless"
	QualityHiRes    = "hires"    // 24bit / 96kHz
	QualityHiResMax = "hires_max" // 24bit / 192kHz
)

// QualityRank maps a quality label to its ordinal rank. Unknown labels rank
// below standard so a provider reporting garbage never wins on quality alone.
func QualityRank(label string) int {
	switch normalizeQualityLabel(label) {
	case QualityHiResMax:
		return 5
	case QualityHiRes:
		return 4
	case QualityLossless:
		return 3
	case QualityHigh:
		return 2
	case QualityStandard:
		return 1
	default:
		return 0
	}
}

// normalizeQualityLabel folds provider-specific spellings onto the ladder.
func normalizeQualityLabel(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "hires_max", "hi_res_max", "24bit/192khz", "hi-res max":
		return QualityHiResMax
	case "hires", "hi_res", "hi-res", "hires_lossless", "hi_res_lossless", "24bit/96khz":
		return QualityHiRes
	case "lossless", "flac", "cd", "16bit/44.1khz":
		return QualityLossless
	case "high", "mp3_320", "aac_320", "320":
		return QualityHigh
	case "standard", "low", "mp3_128", "128":
		return QualityStandard
	default:
		return ""
	}
}

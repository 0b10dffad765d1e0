package utils

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}}`

// NewProgressBar starts a progress bar over total steps writing to w. A nil writer discards
// the output so callers that do not care about progress need no special casing.
func NewProgressBar(total int, prefix string, w io.Writer) *pb.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	bar := pb.ProgressBarTemplate(progressTemplate).New(total)
	bar.Set("prefix", prefix)
	bar.SetWriter(w)
	return bar.Start()
}

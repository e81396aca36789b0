package cli

import (
	"fmt"
	"mime"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
)

const timeLayout = "2006-01-02 15:04"

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatMessage(m *chatrpc.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", m.ID, m.CreatedAt.Local().Format(timeLayout))
	if m.Text != "" {
		b.WriteString(" ")
		b.WriteString(m.Text)
	}
	if m.Edited {
		b.WriteString(" (edited)")
	}
	if m.Image != nil {
		fmt.Fprintf(&b, " [image %s %s]", m.Image.MimeType, formatSize(int64(len(m.Image.Data))))
	}
	if m.File != nil {
		fmt.Fprintf(&b, " [file %s %s]", m.File.FileName, formatSize(m.File.Size))
	}
	return b.String()
}

func formatEvent(e *chatrpc.Event) string {
	if e.Message == nil {
		return fmt.Sprintf("* %s %s", e.Type, e.MessageID)
	}
	return fmt.Sprintf("* %s %s", e.Type, formatMessage(e.Message))
}

func formatStats(st *chatrpc.StatsResponse) string {
	pct := 0.0
	if st.Quota > 0 {
		pct = float64(st.StoredBytes) * 100 / float64(st.Quota)
	}
	return fmt.Sprintf("messages: %d, stored: %s of %s (%.1f%%)",
		st.Messages, formatSize(st.StoredBytes), formatSize(st.Quota), pct)
}

// extensionFor returns a file extension for mimeType, or "" if none is known.
func extensionFor(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	exts, err := mime.ExtensionsByType(strings.TrimSpace(base))
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// package formatter renders followed channels and grid entries as text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name, case-insensitively. "markdown" is an alias for "md".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Directory is the live-first listing rendered by the follow exporters.
type Directory struct {
	Title   string
	Live    []models.FollowedChannel
	Offline []models.FollowedChannel
}

func (d Directory) channels() []models.FollowedChannel {
	all := make([]models.FollowedChannel, 0, len(d.Live)+len(d.Offline))
	return append(append(all, d.Live...), d.Offline...)
}

// Follows renders d in format.
func Follows(d Directory, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return FollowsToCSV(d.channels())
	case FormatMarkdown:
		return FollowsToMarkdown(d, nil)
	case FormatJSON:
		return toJSON(d.channels())
	default:
		return FollowsToText(d)
	}
}

// FollowsToCSV converts channels to CSV with columns: Login, Display Name, Live, Game, Viewers, Title
func FollowsToCSV(channels []models.FollowedChannel) ([]byte, error) {
	records := [][]string{{"Login", "Display Name", "Live", "Game", "Viewers", "Title"}}
	for _, c := range channels {
		records = append(records, []string{
			c.Login,
			c.DisplayName,
			strconv.FormatBool(c.IsLive),
			c.GameName,
			strconv.Itoa(c.ViewerCount),
			c.Title,
		})
	}
	return writeCSV(records)
}

// FollowsToMarkdown converts d to Markdown. avatars maps a login to a local image path
// shown next to the channel; nil omits images.
func FollowsToMarkdown(d Directory, avatars map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	title := d.Title
	if title == "" {
		title = "Followed channels"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Live**: %d\n", len(d.Live))
	fmt.Fprintf(&buf, "**Offline**: %d\n\n", len(d.Offline))

	section := func(name string, channels []models.FollowedChannel) {
		if len(channels) == 0 {
			return
		}
		fmt.Fprintf(&buf, "## %s\n\n", name)
		for i, c := range channels {
			image := ""
			if path, ok := avatars[c.Login]; ok {
				image = fmt.Sprintf("![%s](%s) ", c.Login, path)
			}
			fmt.Fprintf(&buf, "%d. %s[%s](https://www.twitch.tv/%s)", i+1, image, c.DisplayName, c.Login)
			if c.IsLive {
				fmt.Fprintf(&buf, " - %s (%s viewers)", c.GameName, shared.FormatViewerCount(c.ViewerCount))
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	section("Live", d.Live)
	section("Offline", d.Offline)

	return buf.Bytes(), nil
}

// FollowsToText converts d to plain text, one channel per line.
func FollowsToText(d Directory) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Live: %d\n", len(d.Live))
	for _, c := range d.Live {
		fmt.Fprintf(&buf, "  ● %-20s %-28s %7s  %s\n", c.DisplayName, truncate(c.GameName, 28), shared.FormatViewerCount(c.ViewerCount), c.Title)
	}
	fmt.Fprintf(&buf, "Offline: %d\n", len(d.Offline))
	for _, c := range d.Offline {
		fmt.Fprintf(&buf, "  ○ %s\n", c.DisplayName)
	}

	return buf.Bytes(), nil
}

// Entries renders grid entries in format. Markdown is treated as text.
func Entries(entries []models.StreamEntry, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		records := [][]string{{"Position", "ID", "Channel"}}
		for i, e := range entries {
			records = append(records, []string{strconv.Itoa(i), strconv.FormatInt(e.ID, 10), e.Channel})
		}
		return writeCSV(records)
	case FormatJSON:
		if entries == nil {
			entries = []models.StreamEntry{}
		}
		return toJSON(entries)
	default:
		var buf bytes.Buffer
		if len(entries) == 0 {
			buf.WriteString("No streams added yet.\n")
		}
		for i, e := range entries {
			fmt.Fprintf(&buf, "%d. %s (id %d)\n", i, e.Channel, e.ID)
		}
		return buf.Bytes(), nil
	}
}

// Suggestions renders search results as text, or JSON when format is [FormatJSON].
func Suggestions(suggestions []models.ChannelSuggestion, format Format) ([]byte, error) {
	if format == FormatJSON {
		if suggestions == nil {
			suggestions = []models.ChannelSuggestion{}
		}
		return toJSON(suggestions)
	}

	var buf bytes.Buffer
	if len(suggestions) == 0 {
		buf.WriteString("No channels found.\n")
	}
	for _, s := range suggestions {
		status := "offline"
		if s.IsLive {
			status = "live"
		}
		fmt.Fprintf(&buf, "%-24s %-8s %s\n", s.Channel(), status, s.GameName)
	}
	return buf.Bytes(), nil
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func toJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Failed    []string // logins whose avatar could not be saved
}

// WriteMarkdownExport writes d to {dir}/README.md. With withAvatars set, profile images are
// saved under {dir}/avatars and linked from the listing; a failed download only omits that
// image.
func WriteMarkdownExport(ctx context.Context, client *http.Client, d Directory, dir string, withAvatars bool) (*MarkdownExportResult, error) {
	if dir == "" {
		dir = "follows"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: dir}
	var avatars map[string]string
	if withAvatars {
		avatars = map[string]string{}
		if err := os.MkdirAll(filepath.Join(dir, "avatars"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create avatar directory: %w", err)
		}
		for _, c := range d.channels() {
			data, err := DownloadImage(ctx, client, c.ProfileImageURL)
			if err != nil {
				result.Failed = append(result.Failed, c.Login)
				continue
			}
			rel := filepath.Join("avatars", c.Login+filepath.Ext(c.ProfileImageURL))
			path := filepath.Join(dir, rel)
			if err := os.WriteFile(path, data, 0644); err != nil {
				result.Failed = append(result.Failed, c.Login)
				continue
			}
			avatars[c.Login] = filepath.ToSlash(rel)
			result.Files = append(result.Files, path)
		}
	}

	md, err := FollowsToMarkdown(d, avatars)
	if err != nil {
		return nil, err
	}
	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, md, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// package formatter renders pipeline items and playlist history as terminal tables, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/samber/lo"
)

// Format selects an output rendering.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat maps a --format value to a [Format]. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, Markdown, CSV, JSON:
		return f, nil
	case "md":
		return Markdown, nil
	case "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Row is the flattened, printable form of an item.
type Row struct {
	Name    string
	Artists string
	Detail  string // album for tracks, release date for albums, genres for artists, owner for playlists
	ID      string
}

// columns returns the header of a [Row] table for kind.
func columns(kind pipeline.Kind) []string {
	detail := "Detail"
	switch kind {
	case pipeline.Tracks:
		detail = "Album"
	case pipeline.Albums:
		detail = "Released"
	case pipeline.Artists:
		detail = "Genres"
	case pipeline.Playlists:
		detail = "Owner"
	}
	return []string{"#", "Name", "Artists", detail, "ID"}
}

// RowOf flattens item according to kind. Missing fields render as empty strings.
func RowOf(kind pipeline.Kind, item models.Item) Row {
	row := Row{Name: item.Name(), ID: item.ID()}
	if artists, err := item.Objects("artists"); err == nil {
		row.Artists = strings.Join(lo.Map(artists, func(a models.Item, _ int) string { return a.Name() }), ", ")
	}

	switch kind {
	case pipeline.Tracks:
		if album, err := item.Object("album"); err == nil {
			row.Detail = album.Name()
		}
	case pipeline.Albums:
		row.Detail, _ = item.String("release_date")
	case pipeline.Artists:
		if genres, ok := item["genres"].([]any); ok {
			row.Detail = strings.Join(lo.FilterMap(genres, func(g any, _ int) (string, bool) {
				s, ok := g.(string)
				return s, ok
			}), ", ")
		}
	case pipeline.Playlists:
		if owner, err := item.Object("owner"); err == nil {
			row.Detail, _ = owner.String("display_name")
			if row.Detail == "" {
				row.Detail = owner.ID()
			}
		}
	}
	return row
}

func (r Row) cells(n int) []string {
	return []string{strconv.Itoa(n), r.Name, r.Artists, r.Detail, r.ID}
}

// Write renders items to w in format f. title heads the Markdown and text renderings.
func Write(w io.Writer, f Format, title string, kind pipeline.Kind, items []models.Item) error {
	var (
		out []byte
		err error
	)
	switch f {
	case Text, "":
		out = []byte(ItemsTable(title, kind, items) + "\n")
	case Markdown:
		out = ItemsMarkdown(title, kind, items)
	case CSV:
		out, err = ItemsCSV(kind, items)
	case JSON:
		out, err = ItemsJSON(items)
	default:
		err = fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ItemsTable renders items as a bordered terminal table.
func ItemsTable(title string, kind pipeline.Kind, items []models.Item) string {
	t := styles.table().Headers(columns(kind)...)
	for i, item := range items {
		t.Row(RowOf(kind, item).cells(i + 1)...)
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(styles.title.Render(title))
		b.WriteString("\n")
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(styles.help.Render(fmt.Sprintf("%d %s", len(items), kindLabel(kind))))
	return b.String()
}

// ItemsMarkdown renders items as a Markdown numbered list.
func ItemsMarkdown(title string, kind pipeline.Kind, items []models.Item) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}
	label := kindLabel(kind)
	fmt.Fprintf(&buf, "**%s**: %d\n\n", strings.ToUpper(label[:1])+label[1:], len(items))

	for i, item := range items {
		row := RowOf(kind, item)
		fmt.Fprintf(&buf, "%d. ", i+1)
		if row.Artists != "" {
			fmt.Fprintf(&buf, "%s - ", row.Artists)
		}
		buf.WriteString(row.Name)
		if row.Detail != "" {
			fmt.Fprintf(&buf, " (%s)", row.Detail)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// ItemsCSV renders items as CSV with a header row.
func ItemsCSV(kind pipeline.Kind, items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns(kind)); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, item := range items {
		if err := writer.Write(RowOf(kind, item).cells(i + 1)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ItemsJSON renders items as an indented JSON array of the raw objects.
func ItemsJSON(items []models.Item) ([]byte, error) {
	if items == nil {
		items = []models.Item{}
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(out, '\n'), nil
}

// HistoryTable renders generated playlist records, newest first as given.
func HistoryTable(playlists []*models.GeneratedPlaylist) string {
	if len(playlists) == 0 {
		return styles.help.Render("No playlists generated yet.")
	}

	t := styles.table().Headers("#", "Name", "Tracks", "Visibility", "Recipe", "Created", "Spotify ID")
	for _, p := range playlists {
		t.Row(
			strconv.Itoa(p.Sequence()),
			p.Name(),
			strconv.Itoa(p.TrackCount()),
			visibility(p.Public()),
			p.Recipe(),
			p.CreatedAt().Local().Format("2006-01-02 15:04"),
			p.SpotifyID(),
		)
	}
	return t.String()
}

// Success and Warning style one-line status messages.
func Success(format string, args ...any) string {
	return styles.ok.Render("✓ " + fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) string {
	return styles.warn.Render("⚠ " + fmt.Sprintf(format, args...))
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func kindLabel(kind pipeline.Kind) string {
	if kind == pipeline.Untyped {
		return "items"
	}
	return string(kind)
}

var styles = newPalette("#7D56F4", "#04B575", "#FFA500", "#626262")

// palette is a small stylesheet of named [lipgloss.Style] fields.
type palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	header lipgloss.Style
	border lipgloss.Style
}

func newPalette(title, ok, warn, muted string) *palette {
	return &palette{
		title:  newStyle(title).Bold(true),
		ok:     newStyle(ok).Bold(true),
		warn:   newStyle(warn),
		help:   newStyle(muted).Italic(true),
		header: newStyle(title).Bold(true).Padding(0, 1),
		border: newStyle(muted),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func (p *palette) table() *table.Table {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return cell
		})
}

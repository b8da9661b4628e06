package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/John-Robertt/tmdbx/tmdb"
)

// entryView 是 Entry 的输出形态（JSON 字段名与配置一致使用 snake_case）。
type entryView struct {
	Category    string `json:"category,omitempty"`
	ID          string `json:"tmdb_id,omitempty"`
	Title       string `json:"title,omitempty"`
	ReleaseYear string `json:"release_year,omitempty"`
	Description string `json:"description,omitempty"`
	PosterID    string `json:"poster_id,omitempty"`
	Language    string `json:"language"`
	Display     string `json:"display"`
	Plex        string `json:"plex"`
}

func viewOf(e *tmdb.Entry) entryView {
	v := entryView{Language: e.Language(), Display: e.String(), Plex: e.PlexName()}
	v.Category, _ = e.Category()
	v.ID, _ = e.ID()
	v.Title, _ = e.Title()
	v.ReleaseYear, _ = e.ReleaseYear()
	v.Description, _ = e.Description()
	v.PosterID, _ = e.PosterID()
	return v
}

// emit：w 是终端时输出表格；否则 stdout 只输出一个 JSON 值，方便管道消费。
func emit(w io.Writer, header table.Row, rows []table.Row, v any) error {
	if !isTTY(w) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// isTTY 只把连接到终端的 *os.File 视为 TTY；bytes.Buffer 等一律按管道处理。
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

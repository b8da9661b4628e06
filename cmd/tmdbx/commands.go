package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/tmdbx/internal/infra/fsx"
	"github.com/John-Robertt/tmdbx/internal/infra/imgx"
	"github.com/John-Robertt/tmdbx/tmdb"
)

func newLanguagesCmd(a *app) *cobra.Command {
	var ietf bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "列出站点支持的语言",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs, err := a.client.Languages(cmd.Context(), !ietf)
			if err != nil {
				return err
			}
			return emit(a.out, table.Row{"Language"}, singleColumn(langs), langs)
		},
	}
	cmd.Flags().BoolVar(&ietf, "ietf", false, "输出 xx-YY 形式的 IETF 标签")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "列出搜索分类",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := a.client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return emit(a.out, table.Row{"Category"}, singleColumn(cats), cats)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		page      int
		recursive bool
		best      bool
		year      string
	)
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "按标题搜索电影与剧集",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			entries, err := a.client.Search(cmd.Context(), tmdb.SearchOptions{
				Query:     query,
				Page:      page,
				Language:  a.eff.Language,
				Recursive: recursive,
				MaxPages:  a.eff.MaxPages,
			})
			if err != nil {
				return err
			}
			a.log.WithField("query", query).Debugf("共 %d 条结果", len(entries))

			if best {
				e, ok := tmdb.BestMatch(entries, query, year)
				if !ok {
					return fmt.Errorf("没有与 %q 匹配的结果", query)
				}
				entries = []*tmdb.Entry{e}
			}

			views := lo.Map(entries, func(e *tmdb.Entry, _ int) entryView { return viewOf(e) })
			rows := lo.Map(views, func(v entryView, _ int) table.Row {
				return table.Row{v.Category, v.ID, v.Display, v.PosterID, v.Plex}
			})
			return emit(a.out, table.Row{"Category", "ID", "Title", "Poster", "Plex"}, rows, views)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "起始页")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "沿下一页继续搜索（最多 --max-pages 页）")
	cmd.Flags().BoolVar(&best, "best", false, "只输出与查询最接近的一条")
	cmd.Flags().StringVar(&year, "year", "", "配合 --best：优先匹配该年份")
	return cmd
}

func newSeasonsCmd(a *app) *cobra.Command {
	var count bool
	cmd := &cobra.Command{
		Use:   "seasons SERIES_ID",
		Short: "列出剧集的季编号（含特别篇 0）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count {
				n, err := a.client.CountSeasons(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emit(a.out, table.Row{"Seasons"}, []table.Row{{n}}, n)
			}
			seasons, err := a.client.Seasons(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(a.out, table.Row{"Season"}, singleColumn(seasons), seasons)
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "只输出季数（不含特别篇）")
	return cmd
}

func newEpisodesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes SERIES_ID SEASON",
		Short: "列出某一季的剧集",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := a.client.Episodes(cmd.Context(), args[0], args[1], a.eff.Language)
			if err != nil {
				return err
			}
			type episodeView struct {
				Number string `json:"number"`
				Title  string `json:"title"`
			}
			views := lo.Map(eps, func(e tmdb.Episode, _ int) episodeView {
				return episodeView{Number: e.Number, Title: e.Title}
			})
			rows := lo.Map(eps, func(e tmdb.Episode, _ int) table.Row { return table.Row{e.Number, e.Title} })
			return emit(a.out, table.Row{"#", "Title"}, rows, views)
		},
	}
}

func newPosterCmd(a *app) *cobra.Command {
	var (
		resolution string
		high       bool
		out        string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "poster POSTER_ID",
		Short: "下载海报并原子写入文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.client.NewEntry(cmd.Context(), tmdb.Fields{tmdb.FieldPosterID: args[0]})
			if err != nil {
				return err
			}
			b, ok, err := entry.Poster(cmd.Context(), tmdb.Resolution(resolution), high)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("条目没有海报")
			}

			info, err := imgx.Inspect(b)
			if err != nil {
				return fmt.Errorf("海报内容无效：%w", err)
			}

			dst := out
			if dst == "" {
				dst = args[0] + info.FileExt()
			}
			if err := fsx.WriteFile(dst, b, force); err != nil {
				if errors.Is(err, fsx.ErrExists) {
					return fmt.Errorf("%s 已存在（使用 --force 覆盖）", dst)
				}
				return err
			}
			abs, _ := filepath.Abs(dst)
			a.log.WithField("path", abs).WithField("bytes", len(b)).Info("已保存海报")

			type posterView struct {
				Path string `json:"path"`
				imgx.Info
			}
			view := posterView{Path: abs, Info: info}
			rows := []table.Row{{abs, info.Format, strconv.Itoa(info.Width) + "x" + strconv.Itoa(info.Height)}}
			return emit(a.out, table.Row{"Path", "Format", "Size"}, rows, view)
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", string(tmdb.ResolutionOriginal), "original|low|medium|high")
	cmd.Flags().BoolVar(&high, "high", false, "强制使用 high（600x900）")
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件（默认 <POSTER_ID>.jpg）")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")
	return cmd
}

func singleColumn(vals []string) []table.Row {
	return lo.Map(vals, func(v string, _ int) table.Row { return table.Row{v} })
}

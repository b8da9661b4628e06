package tmdb

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Size 是站点提供的海报尺寸（像素）。
type Size struct {
	Width  int
	Height int
}

var (
	SizeThumbnail   = Size{Width: 94, Height: 141}
	SizeThumbnail2x = Size{Width: 188, Height: 282}
	SizeLow         = Size{Width: 150, Height: 225}
	SizeMedium      = Size{Width: 300, Height: 450}
	SizeHigh        = Size{Width: 600, Height: 900}
)

var supportedSizes = []Size{SizeThumbnail, SizeThumbnail2x, SizeLow, SizeMedium, SizeHigh}

// Resolution 是 Entry.Poster 接受的分辨率关键字。
type Resolution string

const (
	ResolutionOriginal Resolution = "original"
	ResolutionLow      Resolution = "low"
	ResolutionMedium   Resolution = "medium"
	ResolutionHigh     Resolution = "high"
)

const (
	fieldResolution Field = "resolution"
	fieldSize       Field = "size"
)

// PosterPath 构造海报图片路径。width/height 为 0 表示未指定。
//
// 约束：
// - original=true 且宽高都未指定 => /t/p/original/{id}.jpg
// - 否则 (width, height) 必须恰好是 supportedSizes 之一；只给宽或只给高同样拒绝
func PosterPath(posterID string, original bool, width, height int) (string, error) {
	if original && width == 0 && height == 0 {
		return fmt.Sprintf("/t/p/original/%s.jpg", posterID), nil
	}
	if !lo.Contains(supportedSizes, Size{Width: width, Height: height}) {
		return "", &ValueError{
			Field:  fieldSize,
			Value:  fmt.Sprintf("%dx%d", width, height),
			Reason: "不支持的海报尺寸（94x141、188x282、150x225、300x450、600x900）",
		}
	}
	return fmt.Sprintf("/t/p/w%d_and_h%d_bestv2/%s.jpg", width, height, posterID), nil
}

// Poster 下载海报。
//
// 约束：
// - 没有 poster_id 时返回 (nil, false, nil)，不是错误
// - high=true 强制使用 ResolutionHigh；res 为空等同 ResolutionOriginal
func (e *Entry) Poster(ctx context.Context, res Resolution, high bool) ([]byte, bool, error) {
	id, ok := e.posterID.Get()
	if !ok {
		return nil, false, nil
	}
	if high {
		res = ResolutionHigh
	}

	var size Size
	switch res {
	case "", ResolutionOriginal:
	case ResolutionLow:
		size = SizeLow
	case ResolutionMedium:
		size = SizeMedium
	case ResolutionHigh:
		size = SizeHigh
	default:
		return nil, false, &ValueError{Field: fieldResolution, Value: string(res), Reason: "必须是 original、low、medium 或 high"}
	}

	path, err := PosterPath(id, true, size.Width, size.Height)
	if err != nil {
		return nil, false, err
	}
	if e.c == nil {
		return nil, false, &StateError{Op: "poster", Reason: "Entry 未绑定 Client"}
	}
	b, err := e.c.Image(ctx, path)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

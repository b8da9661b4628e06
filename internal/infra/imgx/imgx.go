// Package imgx 检查下载到的图片 payload。
package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // 站点海报是 JPEG
	_ "image/png"  // 个别镜像会返回 PNG
)

// Info 是图片的格式与像素尺寸。
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// Inspect 只解码图片头部，返回格式与尺寸。
//
// 约束：
// - 空 payload 与无法识别的格式都返回错误（例如站点把 HTML 错误页当 200 返回）
// - 不解码像素数据
func Inspect(b []byte) (Info, error) {
	if len(b) == 0 {
		return Info{}, errors.New("图片为空")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Info{}, fmt.Errorf("无法识别图片：%w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, errors.New("图片尺寸无效")
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// FileExt 返回与格式对应的扩展名（含 '.'）。
func (i Info) FileExt() string {
	switch i.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	default:
		return "." + i.Format
	}
}

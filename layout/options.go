package layout

import (
	"time"

	"go.uber.org/zap"
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端、时钟与日志。
type BuildOptions struct {
	Typesetter Typesetter
	Logger     *zap.Logger
	Now        func() time.Time
	Extra      map[string]any // 额外模板命名空间
	Marker     string         // 截断标记，默认 DefaultMarker
}

// Typesetter 按字体名与字号（pt）提供文本度量。
type Typesetter interface {
	Measure(font string, sizePt float64) (Measurer, error)
}

func (o BuildOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o BuildOptions) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o BuildOptions) marker() string {
	if o.Marker == "" {
		return DefaultMarker
	}
	return o.Marker
}
